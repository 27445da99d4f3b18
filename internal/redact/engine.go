package redact

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nao1215/biosnap/internal/config"
	"github.com/nao1215/biosnap/internal/model"
	"github.com/nao1215/biosnap/internal/pdftext"
)

// Engine redacts identifying content from PDF documents.
// An Engine holds no per-document state and may be shared between goroutines.
type Engine struct {
	logger        *slog.Logger
	denylistFile  string
	extraNames    []string
	extraPatterns []config.PatternConfig
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithDenylistFile sets the file of names redacted from diagnostic documents.
// The file is read on every call, so edits take effect without a restart.
func WithDenylistFile(path string) Option {
	return func(e *Engine) {
		e.denylistFile = path
	}
}

// WithExtraNames adds names redacted from diagnostic documents.
func WithExtraNames(names []string) Option {
	return func(e *Engine) {
		e.extraNames = append(e.extraNames, names...)
	}
}

// WithExtraPatterns adds configured patterns to the built-in profiles.
func WithExtraPatterns(patterns []config.PatternConfig) Option {
	return func(e *Engine) {
		e.extraPatterns = append(e.extraPatterns, patterns...)
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Result describes one redaction run.
type Result struct {
	// Data is the redacted document.
	Data []byte

	// Kind is the profile that was applied.
	Kind Kind

	// Marks is the number of marks applied by this run.
	// It is zero for a document that an earlier run already redacted.
	Marks int

	// Glyphs is the number of glyphs removed from the page content beneath marks.
	Glyphs int

	// DroppedPages is the number of leading pages removed.
	DroppedPages int

	// PatientFound reports whether a labeled patient name was discovered.
	PatientFound bool
}

// Redact returns a redacted copy of data. The input slice is never modified.
// Any failure is returned as *model.DocumentError and no bytes are returned.
func (e *Engine) Redact(ctx context.Context, data []byte, kind Kind) ([]byte, error) {
	res, err := e.Run(ctx, data, kind)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// Run is Redact with run details.
func (e *Engine) Run(ctx context.Context, data []byte, kind Kind) (*Result, error) {
	fail := func(err error) (*Result, error) {
		return nil, &model.DocumentError{Op: "redact", Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	profile, err := ProfileFor(kind)
	if err != nil {
		return nil, err
	}
	profile, err = profile.WithExtra(e.extraPatterns)
	if err != nil {
		return nil, err
	}

	doc, err := pdftext.Read(data)
	if err != nil {
		return fail(err)
	}

	res := &Result{Kind: kind}
	if profile.SparsePageLines > 0 && doc.PageCount() > 1 && len(doc.Pages[0].Lines) < profile.SparsePageLines {
		trimmed, err := removeFirstPage(data)
		if err != nil {
			return fail(err)
		}
		if doc, err = pdftext.Read(trimmed); err != nil {
			return fail(err)
		}
		data = trimmed
		res.DroppedPages = 1
		e.logger.Debug("dropped sparse leading page", "kind", kind)
	}

	var names []string
	if kind == KindDiagnostic {
		if names, err = e.names(); err != nil {
			return nil, err
		}
	}

	plan := BuildPlan(doc, profile, names)
	res.PatientFound = plan.Patient != ""

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, done, err := applyMarks(data, plan.Pages, true)
	if err != nil {
		return fail(err)
	}
	if err := verify(out, plan); err != nil {
		return fail(err)
	}

	res.Data = out
	res.Marks = done.marks
	res.Glyphs = done.glyphs
	e.logger.Info("document redacted",
		"kind", kind,
		"pages", doc.PageCount(),
		"marks", done.marks,
		"glyphs_removed", done.glyphs,
		"dropped_pages", res.DroppedPages,
	)
	for rule, n := range plan.Hits {
		e.logger.Debug("redaction rule matched", "rule", rule, "marks", n)
	}
	return res, nil
}

// names returns the denylist file's names followed by configured extra names.
// An absent file degrades to the extra names alone; a file that exists but
// cannot be read is an error.
func (e *Engine) names() ([]string, error) {
	fromFile, err := LoadDenylist(e.denylistFile)
	if err != nil {
		return nil, err
	}
	if fromFile == nil && e.denylistFile != "" {
		e.logger.Warn("denylist not found, continuing without it", "path", e.denylistFile)
	}
	return mergeNames(append(fromFile, e.extraNames...)), nil
}

// verify re-reads redacted output and checks that no glyph is left beneath a
// planned mark and that no identifying metadata survived. Titles are not
// checked since outline entries carry /Title too.
func verify(out []byte, plan Plan) error {
	doc, err := pdftext.Read(out)
	if err != nil {
		return err
	}
	if doc.PageCount() != len(plan.Pages) {
		return fmt.Errorf("%w: %d != %d", ErrPageMismatch, doc.PageCount(), len(plan.Pages))
	}
	for i, rects := range plan.Pages {
		for _, r := range rects {
			if strings.TrimSpace(doc.Pages[i].TextWithin(r)) != "" {
				return fmt.Errorf("%w on page %d", ErrTextRemains, i+1)
			}
		}
	}
	var left []string
	for _, f := range MetadataFields(out) {
		if f != "title" {
			left = append(left, f)
		}
	}
	if len(left) > 0 {
		return fmt.Errorf("%w: %s", ErrMetadataRemains, strings.Join(left, ", "))
	}
	return nil
}
