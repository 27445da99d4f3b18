package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func upper(_ context.Context, input string) (string, error) {
	return strings.ToUpper(input), nil
}

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(upper)
		if bp.Concurrency() != DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", DefaultConcurrency, bp.Concurrency())
		}
		if bp.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		if bp := NewBatchProcessor(upper, WithConcurrency(2)); bp.Concurrency() != 2 {
			t.Errorf("expected concurrency 2, got %d", bp.Concurrency())
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		if bp := NewBatchProcessor(upper, WithConcurrency(0)); bp.Concurrency() != DefaultConcurrency {
			t.Errorf("expected default concurrency, got %d", bp.Concurrency())
		}
	})

	t.Run("applies WithBatchLogger option", func(t *testing.T) {
		t.Parallel()

		logger := quietLogger()
		if bp := NewBatchProcessor(upper, WithBatchLogger(logger)); bp.logger != logger {
			t.Error("expected custom logger")
		}
	})
}

// TestBatchProcessorProcessBatch tests concurrent processing.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("maintains result order", func(t *testing.T) {
		t.Parallel()

		inputs := []string{"c.pdf", "a.pdf", "b.pdf"}
		slow := func(ctx context.Context, input string) (string, error) {
			if input == "c.pdf" {
				time.Sleep(20 * time.Millisecond)
			}
			return upper(ctx, input)
		}

		results, err := NewBatchProcessor(slow, WithBatchLogger(quietLogger())).ProcessBatch(context.Background(), inputs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, r := range results {
			if r.Input != inputs[i] || r.Value != strings.ToUpper(inputs[i]) {
				t.Errorf("result %d = %+v", i, r)
			}
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, peak atomic.Int32
		handler := func(_ context.Context, input string) (string, error) {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			current.Add(-1)
			return input, nil
		}

		inputs := make([]string, 10)
		for i := range inputs {
			inputs[i] = "doc"
		}
		if _, err := NewBatchProcessor(handler, WithConcurrency(2), WithBatchLogger(quietLogger())).ProcessBatch(context.Background(), inputs); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("expected at most 2 concurrent handlers, got %d", peak.Load())
		}
	})

	t.Run("continues after individual failure", func(t *testing.T) {
		t.Parallel()

		docErr := errors.New("malformed")
		handler := func(ctx context.Context, input string) (string, error) {
			if input == "bad.pdf" {
				return "partial", docErr
			}
			return upper(ctx, input)
		}

		results, err := NewBatchProcessor(handler, WithBatchLogger(quietLogger())).
			ProcessBatch(context.Background(), []string{"a.pdf", "bad.pdf", "b.pdf"})
		if err != nil {
			t.Fatalf("unexpected batch error: %v", err)
		}
		if !errors.Is(results[1].Err, docErr) {
			t.Errorf("expected document error, got %v", results[1].Err)
		}
		if results[1].Value != "" {
			t.Error("failed result should carry no value")
		}
		if results[0].Err != nil || results[2].Err != nil {
			t.Error("other documents should succeed")
		}
	})

	t.Run("handles context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		results, err := NewBatchProcessor(upper, WithBatchLogger(quietLogger())).
			ProcessBatch(ctx, []string{"a.pdf", "b.pdf"})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		for _, r := range results {
			if !errors.Is(r.Err, context.Canceled) || r.Input == "" {
				t.Errorf("expected cancelled result with input, got %+v", r)
			}
		}
	})
}

// TestBatchProcessorProcessBatchWithCallback tests streaming results.
func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	t.Run("calls callback for each result", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		seen := make(map[int]string)

		err := NewBatchProcessor(upper, WithBatchLogger(quietLogger())).ProcessBatchWithCallback(
			context.Background(),
			[]string{"a", "b", "c"},
			func(r Result[string], i int) {
				mu.Lock()
				seen[i] = r.Value
				mu.Unlock()
			},
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(seen) != 3 || seen[0] != "A" || seen[2] != "C" {
			t.Errorf("unexpected callbacks %v", seen)
		}
	})
}
