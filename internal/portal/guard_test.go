package portal

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestAccountGuard(t *testing.T) {
	t.Parallel()

	t.Run("second lock on one account fails", func(t *testing.T) {
		t.Parallel()

		g := NewAccountGuard()
		release, err := g.TryLock("thorne", "jane@example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := g.TryLock("thorne", " JANE@example.com "); !errors.Is(err, ErrImportInProgress) {
			t.Errorf("expected ErrImportInProgress, got %v", err)
		}

		release()
		release()
		if g.Active() != 0 {
			t.Errorf("expected no active accounts, got %d", g.Active())
		}
		if _, err := g.TryLock("thorne", "jane@example.com"); err != nil {
			t.Errorf("expected lock after release, got %v", err)
		}
	})

	t.Run("different portals are independent", func(t *testing.T) {
		t.Parallel()

		g := NewAccountGuard()
		if _, err := g.TryLock("thorne", "jane@example.com"); err != nil {
			t.Fatal(err)
		}
		if _, err := g.TryLock("other", "jane@example.com"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("concurrent claims admit exactly one", func(t *testing.T) {
		t.Parallel()

		g := NewAccountGuard()
		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := g.TryLock("thorne", "jane@example.com"); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		if wins.Load() != 1 {
			t.Errorf("expected exactly one winner, got %d", wins.Load())
		}
	})

	t.Run("key does not contain the address", func(t *testing.T) {
		t.Parallel()

		key := AccountKey("thorne", "jane@example.com")
		if len(key) != 64 {
			t.Errorf("expected a 64-char hex digest, got %d chars", len(key))
		}
		if key != AccountKey("thorne", "Jane@Example.com") {
			t.Error("expected case-insensitive key")
		}
	})
}
