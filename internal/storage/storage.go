// Package storage persists wheel chain entities.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	apperrors "wheeltracker/internal/errors"
	"wheeltracker/internal/models"
)

// JSONStore keeps chains in a single JSON file, rewritten atomically on every
// mutation via a temp-file rename.
type JSONStore struct {
	mu       sync.RWMutex
	filepath string
	data     *storeData
}

type storeData struct {
	Chains      map[string]*models.WheelChain `json:"chains"`
	LastUpdated time.Time                     `json:"last_updated"`
}

// NewJSONStore creates a store backed by the given file, loading existing
// data if the file exists.
func NewJSONStore(filepath string) (*JSONStore, error) {
	s := &JSONStore{
		filepath: filepath,
		data: &storeData{
			Chains: make(map[string]*models.WheelChain),
		},
	}

	if _, err := os.Stat(filepath); err == nil {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("loading chain store: %w", err)
		}
	}

	return s, nil
}

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filepath) // #nosec G304 -- filepath comes from the config file
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, &s.data); err != nil {
		return err
	}
	if s.data.Chains == nil {
		s.data.Chains = make(map[string]*models.WheelChain)
	}

	for id, ch := range s.data.Chains {
		if err := ch.Validate(); err != nil {
			return fmt.Errorf("stored chain %s is inconsistent: %w", id, err)
		}
	}

	return nil
}

// save must be called with the write lock held.
func (s *JSONStore) save() error {
	s.data.LastUpdated = time.Now().UTC()

	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}

	// Write to temp file first, then rename so readers never see a torn file.
	tmpFile := s.filepath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpFile, s.filepath)
}

// GetChain returns a deep copy of the chain with the given id.
func (s *JSONStore) GetChain(id string) (*models.WheelChain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.data.Chains[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("chain", id)
	}
	return ch.Copy(), nil
}

// ListChains returns copies of every stored chain, sorted by creation time
// then id for stable output.
func (s *JSONStore) ListChains() ([]models.WheelChain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.WheelChain, 0, len(s.data.Chains))
	for _, ch := range s.data.Chains {
		out = append(out, *ch.Copy())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SaveChain inserts or replaces a chain and persists the store. On a write
// failure the in-memory state is rolled back so a rejected command leaves
// stored state unchanged.
func (s *JSONStore) SaveChain(chain *models.WheelChain) error {
	if chain == nil {
		return fmt.Errorf("cannot save nil chain")
	}
	if err := chain.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.data.Chains[chain.ID]
	s.data.Chains[chain.ID] = chain.Copy()
	if err := s.save(); err != nil {
		if existed {
			s.data.Chains[chain.ID] = prev
		} else {
			delete(s.data.Chains, chain.ID)
		}
		return fmt.Errorf("persisting chain %s: %w", chain.ID, err)
	}
	return nil
}

// DeleteChain removes a chain and persists the store.
func (s *JSONStore) DeleteChain(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.data.Chains[id]
	if !ok {
		return apperrors.NewNotFoundError("chain", id)
	}
	delete(s.data.Chains, id)
	if err := s.save(); err != nil {
		s.data.Chains[id] = prev
		return fmt.Errorf("persisting delete of chain %s: %w", id, err)
	}
	return nil
}
