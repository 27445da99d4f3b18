package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of documents processed at once when
// WithConcurrency is not given.
const DefaultConcurrency = 4

// Handler processes one input, typically a document path, and returns its result.
type Handler[R any] func(ctx context.Context, input string) (R, error)

// Result is the outcome of one input in a batch.
type Result[R any] struct {
	// Input is the input as given to ProcessBatch.
	Input string

	// Value is the handler's result. It is the zero value when Err is set.
	Value R

	// Err is the handler's error, if any.
	Err error

	// Elapsed is how long the handler ran.
	Elapsed time.Duration
}

// BatchProcessor handles concurrent processing of independent inputs, such as
// the documents given to extract or redact.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because documents need no login and no shared
// state. The import Pipeline stays focused on one portal job.
type BatchProcessor[R any] struct {
	// handler processes a single input.
	handler Handler[R]

	// concurrency is the maximum number of concurrent handlers.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*batchSettings)

// batchSettings holds the type-independent BatchProcessor settings.
type batchSettings struct {
	concurrency int
	logger      *slog.Logger
}

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *batchSettings) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent handlers.
// Default is DefaultConcurrency if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *batchSettings) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor running handler per input.
func NewBatchProcessor[R any](handler Handler[R], opts ...BatchOption) *BatchProcessor[R] {
	settings := &batchSettings{concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(settings)
	}
	if settings.logger == nil {
		settings.logger = slog.Default()
	}

	return &BatchProcessor[R]{
		handler:     handler,
		concurrency: settings.concurrency,
		logger:      settings.logger,
	}
}

// Concurrency returns the concurrency limit.
func (bp *BatchProcessor[R]) Concurrency() int {
	return bp.concurrency
}

// ProcessBatch runs the handler on every input concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
//
// Results are returned in input order. A failing input records its error in its
// Result and does not stop the others; the returned error is only set when the
// batch was cancelled. Inputs never started because of cancellation carry the
// context error.
func (bp *BatchProcessor[R]) ProcessBatch(ctx context.Context, inputs []string) ([]Result[R], error) {
	bp.logger.Info("starting batch processing",
		"total", len(inputs),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	results := make([]Result[R], len(inputs))
	done := make([]bool, len(inputs))
	var mu sync.Mutex

	err := bp.run(ctx, inputs, func(i int, r Result[R]) {
		mu.Lock()
		results[i] = r
		done[i] = true
		mu.Unlock()
	})

	if err != nil {
		for i := range results {
			if !done[i] {
				results[i] = Result[R]{Input: inputs[i], Err: err}
			}
		}
	}

	bp.logger.Info("batch processing complete",
		"total", len(inputs),
		"elapsed", time.Since(startTime),
	)

	return results, err
}

// ProcessBatchWithCallback runs the handler on every input and calls callback
// for each completed one. This is useful for streaming results.
//
// The callback is called from the goroutine that completed the input, so it
// must be safe for concurrent use.
func (bp *BatchProcessor[R]) ProcessBatchWithCallback(
	ctx context.Context,
	inputs []string,
	callback func(result Result[R], index int),
) error {
	return bp.run(ctx, inputs, func(i int, r Result[R]) {
		callback(r, i)
	})
}

// run executes the handler for every input and hands each result to collect.
func (bp *BatchProcessor[R]) run(ctx context.Context, inputs []string, collect func(int, Result[R])) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, input := range inputs {
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Debug("processing input",
				"input", input,
				"index", i+1,
				"total", len(inputs),
			)

			start := time.Now()
			value, err := bp.handler(ctx, input)
			result := Result[R]{Input: input, Err: err, Elapsed: time.Since(start)}
			if err == nil {
				result.Value = value
			} else {
				// Don't return the error to errgroup; the other inputs still run.
				bp.logger.Warn("input failed",
					"input", input,
					"error", err,
				)
			}

			collect(i, result)
			return nil
		})
	}

	return g.Wait()
}
