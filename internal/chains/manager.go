// Package chains implements the explicit wheel chain manager: user-created
// chains, discrete lifecycle commands, and cost basis queries. All arithmetic
// is delegated to the costbasis package.
package chains

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wheeltracker/internal/costbasis"
	apperrors "wheeltracker/internal/errors"
	"wheeltracker/internal/ledger"
	"wheeltracker/internal/models"
	"wheeltracker/internal/storage"
)

// DefaultSharesAcquired is used when an assignment does not specify a share
// count: one standard contract.
const DefaultSharesAcquired = models.SharesPerContract

// Manager owns persisted WheelChain entities and applies the lifecycle state
// machine in response to commands. Mutations on the same chain id are
// serialized by a per-id mutex so the single-assignment and single-exit
// invariants cannot be violated by interleaving.
type Manager struct {
	store  storage.Interface
	ledger ledger.Interface
	logger *log.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a new chain manager.
func NewManager(store storage.Interface, led ledger.Interface, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(os.Stderr, "chains: ", log.LstdFlags)
	}
	return &Manager{
		store:  store,
		ledger: led,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		locks:  make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing mutations for one chain id.
func (m *Manager) lockFor(chainID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[chainID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[chainID] = l
	}
	return l
}

func (m *Manager) releaseLock(chainID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, chainID)
}

// Create starts a new chain for the underlying in COLLECTING_PREMIUM with no
// positions linked.
func (m *Manager) Create(underlying string) (*models.WheelChain, error) {
	chain, err := models.NewWheelChain(uuid.New().String(), underlying, m.now())
	if err != nil {
		return nil, err
	}
	if err := m.store.SaveChain(chain); err != nil {
		return nil, err
	}
	m.logger.Printf("created chain %s for %s", chain.ID, chain.Underlying)
	return chain, nil
}

// Get returns the chain with the given id.
func (m *Manager) Get(chainID string) (*models.WheelChain, error) {
	return m.store.GetChain(chainID)
}

// List returns every stored chain.
func (m *Manager) List() ([]models.WheelChain, error) {
	return m.store.ListChains()
}

// LinkPosition appends a PUT or CALL position to the chain's position set and
// records the back-reference in the ledger. Allowed in any chain state.
func (m *Manager) LinkPosition(chainID, positionID string) (*models.WheelChain, error) {
	lock := m.lockFor(chainID)
	lock.Lock()
	defer lock.Unlock()

	chain, err := m.store.GetChain(chainID)
	if err != nil {
		return nil, err
	}

	pos, err := m.ledger.Position(positionID)
	if err != nil {
		return nil, err
	}
	if !pos.OptionType.Valid() {
		return nil, apperrors.NewValidationError("option_type", pos.OptionType, "must be PUT or CALL")
	}
	if !strings.EqualFold(pos.Underlying, chain.Underlying) {
		return nil, apperrors.NewValidationError("underlying", pos.Underlying,
			fmt.Sprintf("position underlying does not match chain %s (%s)", chain.ID, chain.Underlying))
	}
	// A position belongs to at most one chain.
	if pos.ChainID != "" && pos.ChainID != chainID {
		return nil, apperrors.NewValidationError("position_id", positionID,
			fmt.Sprintf("already linked to chain %s", pos.ChainID))
	}

	if err := chain.LinkPosition(positionID, m.now()); err != nil {
		return nil, err
	}
	if err := m.store.SaveChain(chain); err != nil {
		return nil, err
	}
	if err := m.ledger.SetChainRef(positionID, chainID); err != nil {
		return nil, fmt.Errorf("linking position %s to chain %s: %w", positionID, chainID, err)
	}
	return chain, nil
}

// RecordAssignment transitions COLLECTING_PREMIUM -> HOLDING_SHARES. A zero
// shares argument means unspecified and defaults to 100.
func (m *Manager) RecordAssignment(chainID string, strike decimal.Decimal, shares int) (*models.WheelChain, error) {
	if shares == 0 {
		shares = DefaultSharesAcquired
	}

	lock := m.lockFor(chainID)
	lock.Lock()
	defer lock.Unlock()

	chain, err := m.store.GetChain(chainID)
	if err != nil {
		return nil, err
	}
	if err := chain.RecordAssignment(strike, shares, m.now()); err != nil {
		return nil, err
	}
	if err := m.store.SaveChain(chain); err != nil {
		return nil, err
	}
	m.logger.Printf("chain %s assigned: %d shares at %s", chain.ID, shares, strike.String())
	return chain, nil
}

// RecordExit transitions HOLDING_SHARES -> CLOSED.
func (m *Manager) RecordExit(chainID string, price decimal.Decimal, exitType models.ExitType) (*models.WheelChain, error) {
	lock := m.lockFor(chainID)
	lock.Lock()
	defer lock.Unlock()

	chain, err := m.store.GetChain(chainID)
	if err != nil {
		return nil, err
	}
	if err := chain.RecordExit(price, exitType, m.now()); err != nil {
		return nil, err
	}
	if err := m.store.SaveChain(chain); err != nil {
		return nil, err
	}
	m.logger.Printf("chain %s closed: %s at %s", chain.ID, exitType, price.String())
	return chain, nil
}

// Delete removes the chain entity and clears the chain reference on every
// linked position. The positions themselves are retained. Deleting a
// nonexistent chain fails with a NotFoundError.
func (m *Manager) Delete(chainID string) error {
	lock := m.lockFor(chainID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.store.DeleteChain(chainID); err != nil {
		return err
	}
	if err := m.ledger.ClearChainRefs(chainID); err != nil {
		return fmt.Errorf("unlinking positions of chain %s: %w", chainID, err)
	}
	m.releaseLock(chainID)
	m.logger.Printf("deleted chain %s", chainID)
	return nil
}

// CostBasis computes the chain's premium totals, cost basis, break-even, and
// P&L from its linked positions and current status. Pure: never mutates
// state, callable in any state. currentPrice may be nil.
func (m *Manager) CostBasis(chainID string, currentPrice *decimal.Decimal) (*costbasis.Result, error) {
	chain, err := m.store.GetChain(chainID)
	if err != nil {
		return nil, err
	}

	positions := make([]models.Position, 0, len(chain.PositionIDs))
	for _, id := range chain.PositionIDs {
		pos, err := m.ledger.Position(id)
		if err != nil {
			return nil, fmt.Errorf("resolving position %s of chain %s: %w", id, chainID, err)
		}
		positions = append(positions, *pos)
	}

	in := costbasis.Input{
		Positions:    positions,
		CurrentPrice: currentPrice,
	}
	if chain.Assignment != nil {
		strike := chain.Assignment.Strike
		in.AssignmentStrike = &strike
		in.SharesAcquired = chain.Assignment.Shares
	}
	if chain.Exit != nil {
		in.Exit = &costbasis.Exit{Price: chain.Exit.Price, Type: chain.Exit.Type}
	}

	res := costbasis.Compute(in)
	return &res, nil
}
