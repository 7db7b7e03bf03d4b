// Package marketdata supplies current prices to the engine's callers. The
// engine itself never fetches market data; this provider exists so the HTTP
// layer can fill in a current price when the caller does not supply one.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the latest price for one symbol.
type Quote struct {
	Symbol string          `json:"symbol"`
	Last   decimal.Decimal `json:"last"`
	AsOf   time.Time       `json:"as_of"`
}

// Provider is the current-price collaborator interface.
type Provider interface {
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
}

// HTTPProvider fetches quotes from a JSON endpoint of the form
// GET {base}/quotes?symbol=SYM returning {"symbol": ..., "last": ...}.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPProvider creates a quote client with a bounded request timeout.
func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// GetQuote fetches the latest price for symbol.
func (p *HTTPProvider) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	endpoint := fmt.Sprintf("%s/quotes?symbol=%s", p.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building quote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching quote for %s: %w", symbol, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote endpoint returned %d for %s", resp.StatusCode, symbol)
	}

	var quote Quote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("decoding quote for %s: %w", symbol, err)
	}
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}
	if quote.AsOf.IsZero() {
		quote.AsOf = time.Now().UTC()
	}
	return &quote, nil
}
