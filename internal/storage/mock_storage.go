package storage

import (
	apperrors "wheeltracker/internal/errors"
	"wheeltracker/internal/models"
)

// MockStore implements Interface for testing.
type MockStore struct {
	saveError     error
	deleteError   error
	chains        map[string]*models.WheelChain
	saveCallCount int
}

// NewMockStore creates a new mock store for testing.
func NewMockStore() *MockStore {
	return &MockStore{
		chains: make(map[string]*models.WheelChain),
	}
}

// SetSaveError makes subsequent SaveChain calls fail with err.
func (m *MockStore) SetSaveError(err error) {
	m.saveError = err
}

// SetDeleteError makes subsequent DeleteChain calls fail with err.
func (m *MockStore) SetDeleteError(err error) {
	m.deleteError = err
}

// SaveCallCount returns how many times SaveChain has been called.
func (m *MockStore) SaveCallCount() int {
	return m.saveCallCount
}

// GetChain returns a copy of the stored chain.
func (m *MockStore) GetChain(id string) (*models.WheelChain, error) {
	ch, ok := m.chains[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("chain", id)
	}
	return ch.Copy(), nil
}

// ListChains returns copies of every stored chain.
func (m *MockStore) ListChains() ([]models.WheelChain, error) {
	out := make([]models.WheelChain, 0, len(m.chains))
	for _, ch := range m.chains {
		out = append(out, *ch.Copy())
	}
	return out, nil
}

// SaveChain stores a copy of the chain, or fails with the injected error.
func (m *MockStore) SaveChain(chain *models.WheelChain) error {
	m.saveCallCount++
	if m.saveError != nil {
		return m.saveError
	}
	m.chains[chain.ID] = chain.Copy()
	return nil
}

// DeleteChain removes the chain, or fails with the injected error.
func (m *MockStore) DeleteChain(id string) error {
	if m.deleteError != nil {
		return m.deleteError
	}
	if _, ok := m.chains[id]; !ok {
		return apperrors.NewNotFoundError("chain", id)
	}
	delete(m.chains, id)
	return nil
}
