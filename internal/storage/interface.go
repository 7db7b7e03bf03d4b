package storage

import (
	"wheeltracker/internal/models"
)

// Interface defines the contract for wheel chain persistence.
//
// Implementations must be safe for concurrent use - callers can assume all
// methods are goroutine-safe. The provided JSONStore uses sync.RWMutex to
// serialize access for concurrent readers and writers.
//
// GetChain and ListChains return deep copies; mutating a returned chain has
// no effect until it is written back with SaveChain.
type Interface interface {
	// GetChain returns the chain with the given id, or a NotFoundError.
	GetChain(id string) (*models.WheelChain, error)
	// ListChains returns every stored chain.
	ListChains() ([]models.WheelChain, error)
	// SaveChain inserts or replaces a chain and persists the store.
	SaveChain(chain *models.WheelChain) error
	// DeleteChain removes a chain, or returns a NotFoundError.
	DeleteChain(id string) error
}

// NewStorage creates a new storage implementation (currently JSON-based).
// In the future, this can be extended to support different storage backends.
func NewStorage(filepath string) (Interface, error) {
	return NewJSONStore(filepath)
}

// Ensure both implementations satisfy Interface.
var (
	_ Interface = (*JSONStore)(nil)
	_ Interface = (*MockStore)(nil)
)
