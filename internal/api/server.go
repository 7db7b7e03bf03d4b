// Package api exposes the wheel engine's command surface over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"wheeltracker/internal/autowheel"
	"wheeltracker/internal/chains"
	apperrors "wheeltracker/internal/errors"
	"wheeltracker/internal/marketdata"
	"wheeltracker/internal/models"
)

// Server routes engine commands: chain lifecycle mutations, cost basis
// queries, and inferred wheel analyses.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	manager   *chains.Manager
	analyzer  *autowheel.Analyzer
	quotes    marketdata.Provider // optional, may be nil
	logger    *logrus.Logger
	port      int
	authToken string
}

// Config holds the server settings.
type Config struct {
	Port      int
	AuthToken string
}

// NewServer creates the API server. quotes may be nil; current prices are
// then only taken from the caller's query parameter.
func NewServer(cfg Config, manager *chains.Manager, analyzer *autowheel.Analyzer,
	quotes marketdata.Provider, logger *logrus.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		manager:   manager,
		analyzer:  analyzer,
		quotes:    quotes,
		logger:    logger,
		port:      cfg.Port,
		authToken: cfg.AuthToken,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.authToken != "" {
		s.router.Use(s.authMiddleware)
	}

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/chains", s.handleCreateChain)
		r.Get("/chains", s.handleListChains)
		r.Get("/chains/{id}", s.handleGetChain)
		r.Delete("/chains/{id}", s.handleDeleteChain)
		r.Post("/chains/{id}/positions", s.handleLinkPosition)
		r.Post("/chains/{id}/assignment", s.handleRecordAssignment)
		r.Post("/chains/{id}/exit", s.handleRecordExit)
		r.Get("/chains/{id}/costbasis", s.handleCostBasis)

		r.Get("/wheel", s.handleWheelAll)
		r.Get("/wheel/{symbol}", s.handleWheelSymbol)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if token != s.authToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infof("Starting wheel tracker API on port %d", s.port)
	return s.server.ListenAndServe()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createChainRequest struct {
	Underlying string `json:"underlying"`
}

func (s *Server) handleCreateChain(w http.ResponseWriter, r *http.Request) {
	var req createChainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.NewValidationError("body", nil, "malformed JSON"))
		return
	}
	chain, err := s.manager.Create(req.Underlying)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, chain)
}

func (s *Server) handleListChains(w http.ResponseWriter, _ *http.Request) {
	list, err := s.manager.List()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetChain(w http.ResponseWriter, r *http.Request) {
	chain, err := s.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, chain)
}

func (s *Server) handleDeleteChain(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Delete(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type linkPositionRequest struct {
	PositionID string `json:"position_id"`
}

func (s *Server) handleLinkPosition(w http.ResponseWriter, r *http.Request) {
	var req linkPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.NewValidationError("body", nil, "malformed JSON"))
		return
	}
	chain, err := s.manager.LinkPosition(chi.URLParam(r, "id"), req.PositionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, chain)
}

type recordAssignmentRequest struct {
	Strike decimal.Decimal `json:"strike"`
	Shares int             `json:"shares"` // 0 means unspecified: defaults to 100
}

func (s *Server) handleRecordAssignment(w http.ResponseWriter, r *http.Request) {
	var req recordAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.NewValidationError("body", nil, "malformed JSON"))
		return
	}
	chain, err := s.manager.RecordAssignment(chi.URLParam(r, "id"), req.Strike, req.Shares)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, chain)
}

type recordExitRequest struct {
	Price    decimal.Decimal `json:"price"`
	ExitType models.ExitType `json:"exit_type"`
}

func (s *Server) handleRecordExit(w http.ResponseWriter, r *http.Request) {
	var req recordExitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.NewValidationError("body", nil, "malformed JSON"))
		return
	}
	chain, err := s.manager.RecordExit(chi.URLParam(r, "id"), req.Price, req.ExitType)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, chain)
}

func (s *Server) handleCostBasis(w http.ResponseWriter, r *http.Request) {
	chainID := chi.URLParam(r, "id")
	chain, err := s.manager.Get(chainID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	price, err := s.resolvePrice(r, chain.Underlying)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.manager.CostBasis(chainID, price)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleWheelSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	price, err := s.resolvePrice(r, symbol)
	if err != nil {
		s.writeError(w, err)
		return
	}
	analysis, err := s.analyzer.Analyze(symbol, price)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleWheelAll(w http.ResponseWriter, r *http.Request) {
	results, err := s.analyzer.AnalyzeAll(r.Context(), nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

// resolvePrice takes the caller's current_price query parameter, falling back
// to the quote provider when one is configured. A nil result means unrealized
// P&L comes back absent.
func (s *Server) resolvePrice(r *http.Request, symbol string) (*decimal.Decimal, error) {
	raw := r.URL.Query().Get("current_price")
	if raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, apperrors.NewValidationError("current_price", raw, "must be a decimal number")
		}
		if !price.IsPositive() {
			return nil, apperrors.NewValidationError("current_price", raw, "must be positive")
		}
		return &price, nil
	}

	if s.quotes == nil {
		return nil, nil
	}
	quote, err := s.quotes.GetQuote(r.Context(), symbol)
	if err != nil {
		// Price is optional input; degrade rather than fail the query.
		s.logger.WithError(err).WithField("symbol", symbol).Warn("quote fetch failed")
		return nil, nil
	}
	return &quote.Last, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := "internal"

	var (
		validationErr  *apperrors.ValidationError
		stateErr       *apperrors.InvalidStateError
		notFoundErr    *apperrors.NotFoundError
		unavailableErr *apperrors.DataUnavailableError
	)
	switch {
	case errors.As(err, &validationErr):
		status, kind = http.StatusBadRequest, "validation"
	case errors.As(err, &stateErr):
		status, kind = http.StatusConflict, "invalid_state"
	case errors.As(err, &notFoundErr):
		status, kind = http.StatusNotFound, "not_found"
	case errors.As(err, &unavailableErr):
		status, kind = http.StatusUnprocessableEntity, "data_unavailable"
	default:
		s.logger.WithError(err).Error("Unhandled engine error")
	}

	s.writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}
