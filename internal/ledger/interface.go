// Package ledger defines the position-ledger collaborator the engine reads
// from: options positions and current stock holdings per underlying. The
// engine never fetches this data itself; synchronization from a brokerage is
// an external responsibility.
package ledger

import (
	"wheeltracker/internal/models"
)

// Interface is the contract the engine consumes. Implementations must be safe
// for concurrent use: the explicit chain manager and the inferred analyzer may
// read from multiple goroutines while chain links are being updated.
type Interface interface {
	// Position returns the position with the given id.
	Position(id string) (*models.Position, error)
	// Positions returns every position (open and closed) for one underlying.
	Positions(underlying string) ([]models.Position, error)
	// Underlyings returns the distinct underlyings present in the ledger.
	Underlyings() ([]string, error)

	// SharesHeld returns the current held-share quantity for the underlying,
	// zero when none are held.
	SharesHeld(symbol string) (int, error)
	// Holding returns the stock lot record for the underlying, or nil when
	// no shares are held.
	Holding(symbol string) (*models.StockHolding, error)

	// SetChainRef records a position's wheel chain back-reference.
	SetChainRef(positionID, chainID string) error
	// ClearChainRefs removes the back-reference from every position linked
	// to the given chain. Positions themselves are retained.
	ClearChainRefs(chainID string) error
}

// Ensure MemoryLedger implements Interface.
var _ Interface = (*MemoryLedger)(nil)
