package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	apperrors "wheeltracker/internal/errors"
	"wheeltracker/internal/models"
)

func newChain(t *testing.T, id, underlying string) *models.WheelChain {
	t.Helper()
	chain, err := models.NewWheelChain(id, underlying, time.Now().UTC())
	if err != nil {
		t.Fatalf("NewWheelChain failed: %v", err)
	}
	return chain
}

// testInterface exercises the Interface contract against any implementation.
func testInterface(t *testing.T, newStore func(t *testing.T) Interface) {
	t.Run("get missing chain", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetChain("missing")
		if !apperrors.IsNotFound(err) {
			t.Errorf("Expected NotFoundError, got %v", err)
		}
	})

	t.Run("save and get", func(t *testing.T) {
		store := newStore(t)
		chain := newChain(t, "chain-1", "AAPL")
		if err := chain.LinkPosition("pos-1", time.Now().UTC()); err != nil {
			t.Fatalf("LinkPosition failed: %v", err)
		}

		if err := store.SaveChain(chain); err != nil {
			t.Fatalf("SaveChain failed: %v", err)
		}

		got, err := store.GetChain("chain-1")
		if err != nil {
			t.Fatalf("GetChain failed: %v", err)
		}
		if got.Underlying != "AAPL" || len(got.PositionIDs) != 1 {
			t.Errorf("Stored chain mismatch: %+v", got)
		}
	})

	t.Run("returned chains are copies", func(t *testing.T) {
		store := newStore(t)
		chain := newChain(t, "chain-1", "AAPL")
		if err := chain.LinkPosition("pos-1", time.Now().UTC()); err != nil {
			t.Fatalf("LinkPosition failed: %v", err)
		}
		if err := store.SaveChain(chain); err != nil {
			t.Fatalf("SaveChain failed: %v", err)
		}

		got, err := store.GetChain("chain-1")
		if err != nil {
			t.Fatalf("GetChain failed: %v", err)
		}
		got.PositionIDs[0] = "mutated"

		again, err := store.GetChain("chain-1")
		if err != nil {
			t.Fatalf("GetChain failed: %v", err)
		}
		if again.PositionIDs[0] != "pos-1" {
			t.Error("Mutating a returned chain must not affect stored state")
		}
	})

	t.Run("save replaces", func(t *testing.T) {
		store := newStore(t)
		chain := newChain(t, "chain-1", "AAPL")
		if err := store.SaveChain(chain); err != nil {
			t.Fatalf("SaveChain failed: %v", err)
		}

		if err := chain.RecordAssignment(decimal.NewFromInt(440), 100, time.Now().UTC()); err != nil {
			t.Fatalf("RecordAssignment failed: %v", err)
		}
		if err := store.SaveChain(chain); err != nil {
			t.Fatalf("Second SaveChain failed: %v", err)
		}

		got, err := store.GetChain("chain-1")
		if err != nil {
			t.Fatalf("GetChain failed: %v", err)
		}
		if got.Status != models.StatusHoldingShares {
			t.Errorf("Replacement not stored: status %s", got.Status)
		}
	})

	t.Run("delete", func(t *testing.T) {
		store := newStore(t)
		if err := store.SaveChain(newChain(t, "chain-1", "AAPL")); err != nil {
			t.Fatalf("SaveChain failed: %v", err)
		}
		if err := store.DeleteChain("chain-1"); err != nil {
			t.Fatalf("DeleteChain failed: %v", err)
		}
		if _, err := store.GetChain("chain-1"); !apperrors.IsNotFound(err) {
			t.Errorf("Deleted chain still readable: %v", err)
		}
		if err := store.DeleteChain("chain-1"); !apperrors.IsNotFound(err) {
			t.Errorf("Second delete should be NotFoundError, got %v", err)
		}
	})

	t.Run("list", func(t *testing.T) {
		store := newStore(t)
		for _, id := range []string{"chain-1", "chain-2", "chain-3"} {
			if err := store.SaveChain(newChain(t, id, "AAPL")); err != nil {
				t.Fatalf("SaveChain(%s) failed: %v", id, err)
			}
		}
		chains, err := store.ListChains()
		if err != nil {
			t.Fatalf("ListChains failed: %v", err)
		}
		if len(chains) != 3 {
			t.Errorf("Expected 3 chains, got %d", len(chains))
		}
	})
}

func TestJSONStore_Interface(t *testing.T) {
	testInterface(t, func(t *testing.T) Interface {
		store, err := NewJSONStore(filepath.Join(t.TempDir(), "chains.json"))
		if err != nil {
			t.Fatalf("NewJSONStore failed: %v", err)
		}
		return store
	})
}

func TestMockStore_Interface(t *testing.T) {
	testInterface(t, func(t *testing.T) Interface {
		return NewMockStore()
	})
}

func TestJSONStore_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chains.json")

	store, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore failed: %v", err)
	}
	chain := newChain(t, "chain-1", "AAPL")
	if err := chain.RecordAssignment(decimal.NewFromInt(440), 100, time.Now().UTC()); err != nil {
		t.Fatalf("RecordAssignment failed: %v", err)
	}
	if err := chain.RecordExit(decimal.NewFromInt(460), models.ExitCalledAway, time.Now().UTC()); err != nil {
		t.Fatalf("RecordExit failed: %v", err)
	}
	if err := store.SaveChain(chain); err != nil {
		t.Fatalf("SaveChain failed: %v", err)
	}

	// A fresh store over the same file sees the persisted chain.
	reloaded, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("Reloading store failed: %v", err)
	}
	got, err := reloaded.GetChain("chain-1")
	if err != nil {
		t.Fatalf("GetChain after reload failed: %v", err)
	}
	if got.Status != models.StatusChainClosed {
		t.Errorf("Status after reload = %s, want CLOSED", got.Status)
	}
	if got.Assignment == nil || !got.Assignment.Strike.Equal(decimal.NewFromInt(440)) {
		t.Errorf("Assignment lost on reload: %+v", got.Assignment)
	}
	if got.Exit == nil || got.Exit.Type != models.ExitCalledAway {
		t.Errorf("Exit lost on reload: %+v", got.Exit)
	}
}

func TestJSONStore_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chains.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := NewJSONStore(path); err == nil {
		t.Error("Corrupt store file should fail to load")
	}
}

func TestJSONStore_RejectsInconsistentChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chains.json")
	// A HOLDING_SHARES chain without an assignment block is inconsistent.
	data := `{"chains":{"chain-1":{"id":"chain-1","underlying":"AAPL","status":"HOLDING_SHARES","created_at":"2025-05-01T00:00:00Z","updated_at":"2025-05-01T00:00:00Z"}}}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := NewJSONStore(path); err == nil {
		t.Error("Inconsistent stored chain should fail to load")
	}
}

func TestJSONStore_RejectsInvalidChain(t *testing.T) {
	store, err := NewJSONStore(filepath.Join(t.TempDir(), "chains.json"))
	if err != nil {
		t.Fatalf("NewJSONStore failed: %v", err)
	}
	chain := newChain(t, "chain-1", "AAPL")
	chain.Status = models.StatusHoldingShares // no assignment block
	if err := store.SaveChain(chain); err == nil {
		t.Error("Inconsistent chain should be rejected on save")
	}
}

func TestJSONStore_ListSortedByCreation(t *testing.T) {
	store, err := NewJSONStore(filepath.Join(t.TempDir(), "chains.json"))
	if err != nil {
		t.Fatalf("NewJSONStore failed: %v", err)
	}

	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"chain-c", "chain-a", "chain-b"} {
		chain, err := models.NewWheelChain(id, "AAPL", base.Add(time.Duration(len(id)-i)*time.Hour))
		if err != nil {
			t.Fatalf("NewWheelChain failed: %v", err)
		}
		if err := store.SaveChain(chain); err != nil {
			t.Fatalf("SaveChain failed: %v", err)
		}
	}

	chains, err := store.ListChains()
	if err != nil {
		t.Fatalf("ListChains failed: %v", err)
	}
	for i := 1; i < len(chains); i++ {
		prev, cur := chains[i-1], chains[i]
		if cur.CreatedAt.Before(prev.CreatedAt) {
			t.Errorf("Chains out of creation order at %d: %s before %s", i, prev.ID, cur.ID)
		}
	}
}
