package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	apperrors "wheeltracker/internal/errors"
	"wheeltracker/internal/models"
)

// MemoryLedger is an in-memory snapshot of the position ledger and stock
// holdings. A sync.RWMutex serializes access so reads see a consistent
// snapshot while chain references are updated.
type MemoryLedger struct {
	mu        sync.RWMutex
	positions map[string]*models.Position
	order     []string // insertion order of position ids
	holdings  map[string]models.StockHolding
}

// Snapshot is the serialized ledger shape loaded from disk.
type Snapshot struct {
	Positions []models.Position     `json:"positions"`
	Holdings  []models.StockHolding `json:"holdings"`
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		positions: make(map[string]*models.Position),
		holdings:  make(map[string]models.StockHolding),
	}
}

// NewFromSnapshot creates a ledger from a snapshot, validating every position.
func NewFromSnapshot(snap Snapshot) (*MemoryLedger, error) {
	l := NewMemoryLedger()
	for i := range snap.Positions {
		if err := l.AddPosition(snap.Positions[i]); err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
	}
	for _, h := range snap.Holdings {
		l.SetHolding(h)
	}
	return l, nil
}

// LoadFile reads a JSON snapshot file into a new ledger.
func LoadFile(path string) (*MemoryLedger, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the config file
	if err != nil {
		return nil, fmt.Errorf("reading ledger file: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing ledger file: %w", err)
	}
	return NewFromSnapshot(snap)
}

// AddPosition inserts a position into the snapshot.
func (l *MemoryLedger) AddPosition(pos models.Position) error {
	if err := pos.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(pos.ID) == "" {
		return apperrors.NewValidationError("id", pos.ID, "must not be empty")
	}
	pos.Underlying = strings.ToUpper(pos.Underlying)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.positions[pos.ID]; ok {
		return apperrors.NewValidationError("id", pos.ID, "duplicate position id")
	}
	p := pos
	l.positions[pos.ID] = &p
	l.order = append(l.order, pos.ID)
	return nil
}

// SetHolding records the current stock lot for a symbol.
func (l *MemoryLedger) SetHolding(h models.StockHolding) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holdings[strings.ToUpper(h.Symbol)] = h
}

// Position returns a copy of the position with the given id.
func (l *MemoryLedger) Position(id string) (*models.Position, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.positions[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("position", id)
	}
	cp := *p
	return &cp, nil
}

// Positions returns every position for one underlying in insertion order.
func (l *MemoryLedger) Positions(underlying string) ([]models.Position, error) {
	symbol := strings.ToUpper(underlying)
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []models.Position
	for _, id := range l.order {
		if p := l.positions[id]; p.Underlying == symbol {
			out = append(out, *p)
		}
	}
	return out, nil
}

// Underlyings returns the distinct underlyings, sorted for deterministic scans.
func (l *MemoryLedger) Underlyings() ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, p := range l.positions {
		if _, ok := seen[p.Underlying]; !ok {
			seen[p.Underlying] = struct{}{}
			out = append(out, p.Underlying)
		}
	}
	sort.Strings(out)
	return out, nil
}

// SharesHeld returns the current held-share quantity for the symbol.
func (l *MemoryLedger) SharesHeld(symbol string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h, ok := l.holdings[strings.ToUpper(symbol)]
	if !ok {
		return 0, nil
	}
	return h.Quantity, nil
}

// Holding returns the stock lot record for the symbol, nil when none exists.
func (l *MemoryLedger) Holding(symbol string) (*models.StockHolding, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h, ok := l.holdings[strings.ToUpper(symbol)]
	if !ok {
		return nil, nil
	}
	cp := h
	return &cp, nil
}

// SetChainRef records a position's wheel chain back-reference.
func (l *MemoryLedger) SetChainRef(positionID, chainID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[positionID]
	if !ok {
		return apperrors.NewNotFoundError("position", positionID)
	}
	p.ChainID = chainID
	return nil
}

// ClearChainRefs removes the back-reference from every position linked to the
// chain; the positions are retained.
func (l *MemoryLedger) ClearChainRefs(chainID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.positions {
		if p.ChainID == chainID {
			p.ChainID = ""
		}
	}
	return nil
}
