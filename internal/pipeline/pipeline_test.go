package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"testing"

	"github.com/nao1215/biosnap/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, job *model.ImportJob) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, job *model.ImportJob) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, job)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()

		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))

		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})

	t.Run("applies WithLogger option", func(t *testing.T) {
		t.Parallel()

		logger := quietLogger()
		if p := New(WithLogger(logger)); p.logger != logger {
			t.Error("expected custom logger")
		}
	})
}

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	t.Run("adds single step", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "test-step"})

		if p.StepCount() != 1 {
			t.Errorf("expected 1 step, got %d", p.StepCount())
		}
	})

	t.Run("maintains step order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(&mockStep{name: "first"}, &mockStep{name: "second"})
		p.AddStep(&mockStep{name: "third"})

		if !slices.Equal(p.StepNames(), []string{"first", "second", "third"}) {
			t.Errorf("unexpected order %v", p.StepNames())
		}
	})
}

// TestPipelineExecute tests pipeline execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		step := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(context.Context, *model.ImportJob) error {
				order = append(order, name)
				return nil
			}}
		}

		p := New(WithLogger(quietLogger()))
		p.AddSteps(step("a"), step("b"), step("c"))

		job := model.NewImportJob("thorne", nil, "")
		if err := p.Execute(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(order, []string{"a", "b", "c"}) {
			t.Errorf("unexpected order %v", order)
		}
		if !slices.Equal(job.PerformedSteps, []string{"a", "b", "c"}) {
			t.Errorf("unexpected performed steps %v", job.PerformedSteps)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		stepErr := errors.New("login failed")
		failing := &mockStep{name: "fail", doFunc: func(context.Context, *model.ImportJob) error { return stepErr }}
		after := &mockStep{name: "after"}

		p := New(WithLogger(quietLogger()))
		p.AddSteps(failing, after)

		job := model.NewImportJob("thorne", nil, "")
		if err := p.Execute(context.Background(), job); !errors.Is(err, stepErr) {
			t.Errorf("expected step error, got %v", err)
		}
		if after.callCount != 0 {
			t.Error("expected later steps to be skipped")
		}
		if !errors.Is(job.Err, stepErr) {
			t.Errorf("expected error recorded on job, got %v", job.Err)
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		failing := &mockStep{name: "fail", doFunc: func(context.Context, *model.ImportJob) error { return errors.New("boom") }}
		after := &mockStep{name: "after"}

		p := New(WithLogger(quietLogger()), WithContinueOnError(true))
		p.AddSteps(failing, after)

		job := model.NewImportJob("thorne", nil, "")
		if err := p.Execute(context.Background(), job); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
		if after.callCount != 1 {
			t.Error("expected later step to run")
		}
		if job.Err == nil {
			t.Error("expected error recorded on job")
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		step := &mockStep{name: "never"}
		p := New(WithLogger(quietLogger()))
		p.AddStep(step)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		job := model.NewImportJob("thorne", nil, "")
		if err := p.Execute(ctx, job); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("expected step not to run")
		}
		if !errors.Is(job.Err, context.Canceled) {
			t.Errorf("expected cancellation recorded on job, got %v", job.Err)
		}
	})
}

// TestPipelineStepNames tests step name listing.
func TestPipelineStepNames(t *testing.T) {
	t.Parallel()

	t.Run("returns empty slice for empty pipeline", func(t *testing.T) {
		t.Parallel()

		if names := New().StepNames(); len(names) != 0 {
			t.Errorf("expected no names, got %v", names)
		}
	})
}
