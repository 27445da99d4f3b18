package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/biosnap/internal/config"
	"github.com/nao1215/biosnap/internal/model"
	"github.com/nao1215/biosnap/internal/normalize"
	"github.com/nao1215/biosnap/internal/portal"
)

var (
	// ErrNoSession is returned by steps that need a session when none was acquired.
	ErrNoSession = errors.New("no portal session")

	// ErrNoReport is returned by NormalizeStep when no report was selected.
	ErrNoReport = errors.New("no report selected")

	// ErrNoCredential is returned by ExecuteExclusive for a job without a credential.
	ErrNoCredential = errors.New("import job has no credential")
)

// SessionAcquirer logs into a portal and returns its session cookies.
// *browser.Acquirer implements it.
type SessionAcquirer interface {
	Acquire(ctx context.Context, cred *model.Credential, portal config.PortalConfig, targets ...string) (model.SessionToken, error)
}

// PageScraper logs into a portal and reads its rendered results page.
// *browser.Acquirer implements it.
type PageScraper interface {
	Scrape(ctx context.Context, cred *model.Credential, portal config.PortalConfig) ([]model.PageElement, error)
}

// ReportFetcher downloads reports with a session.
// *portal.Fetcher implements it.
type ReportFetcher interface {
	FetchAll(ctx context.Context, session model.SessionToken) ([]model.RawReport, error)
}

// AcquireSessionStep logs into the portal and stores the session on the job.
// The job's credential is erased when the step returns, whatever the outcome.
type AcquireSessionStep struct {
	acquirer SessionAcquirer
	portal   config.PortalConfig
	logger   *slog.Logger
}

// NewAcquireSessionStep creates the login step.
func NewAcquireSessionStep(acquirer SessionAcquirer, portal config.PortalConfig, logger *slog.Logger) *AcquireSessionStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &AcquireSessionStep{acquirer: acquirer, portal: portal, logger: logger}
}

// Name returns the step name.
func (s *AcquireSessionStep) Name() string {
	return "acquire_session"
}

// Do executes the login step.
func (s *AcquireSessionStep) Do(ctx context.Context, job *model.ImportJob) error {
	cred := takeCredential(job)
	defer eraseCredential(cred)

	start := time.Now()
	token, err := s.acquirer.Acquire(ctx, cred, s.portal)
	if err != nil {
		return err
	}
	job.Session = &token

	s.logger.Debug("session step complete", "portal", s.portal.Name, "elapsed", time.Since(start))
	return nil
}

// takeCredential removes the credential from job so that no later step sees it.
func takeCredential(job *model.ImportJob) *model.Credential {
	cred := job.Credential
	job.Credential = nil
	return cred
}

func eraseCredential(cred *model.Credential) {
	if cred != nil {
		cred.Erase()
	}
}

// ScrapePageStep logs into the portal and reads its results page onto the job.
// Like AcquireSessionStep it erases the job's credential when it returns.
type ScrapePageStep struct {
	scraper PageScraper
	portal  config.PortalConfig
	logger  *slog.Logger
}

// NewScrapePageStep creates the scrape step.
func NewScrapePageStep(scraper PageScraper, portal config.PortalConfig, logger *slog.Logger) *ScrapePageStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScrapePageStep{scraper: scraper, portal: portal, logger: logger}
}

// Name returns the step name.
func (s *ScrapePageStep) Name() string {
	return "scrape_page"
}

// Do executes the scrape step.
func (s *ScrapePageStep) Do(ctx context.Context, job *model.ImportJob) error {
	cred := takeCredential(job)
	defer eraseCredential(cred)

	start := time.Now()
	elements, err := s.scraper.Scrape(ctx, cred, s.portal)
	if err != nil {
		return err
	}
	job.Elements = elements

	s.logger.Debug("scrape step complete", "portal", s.portal.Name, "elements", len(elements), "elapsed", time.Since(start))
	return nil
}

// BiomarkerStep parses the scraped elements into biomarker rows.
type BiomarkerStep struct {
	headerTag string
}

// NewBiomarkerStep creates the parse step. headerTag names the category headers.
func NewBiomarkerStep(headerTag string) *BiomarkerStep {
	return &BiomarkerStep{headerTag: headerTag}
}

// Name returns the step name.
func (s *BiomarkerStep) Name() string {
	return "parse_biomarkers"
}

// Do executes the parse step.
func (s *BiomarkerStep) Do(_ context.Context, job *model.ImportJob) error {
	job.Biomarkers = normalize.Biomarkers(job.Elements, s.headerTag)
	return nil
}

// FetchReportsStep downloads the report snapshot.
type FetchReportsStep struct {
	fetcher ReportFetcher
}

// NewFetchReportsStep creates the fetch step.
func NewFetchReportsStep(fetcher ReportFetcher) *FetchReportsStep {
	return &FetchReportsStep{fetcher: fetcher}
}

// Name returns the step name.
func (s *FetchReportsStep) Name() string {
	return "fetch_reports"
}

// Do executes the fetch step.
func (s *FetchReportsStep) Do(ctx context.Context, job *model.ImportJob) error {
	if job.Session == nil {
		return ErrNoSession
	}
	reports, err := s.fetcher.FetchAll(ctx, *job.Session)
	if err != nil {
		return err
	}
	job.Reports = reports
	return nil
}

// SelectReportStep picks the report matching the job's requested date.
type SelectReportStep struct {
	loc *time.Location
}

// NewSelectReportStep creates the selection step for the reference timezone.
func NewSelectReportStep(loc *time.Location) *SelectReportStep {
	if loc == nil {
		loc = time.UTC
	}
	return &SelectReportStep{loc: loc}
}

// Name returns the step name.
func (s *SelectReportStep) Name() string {
	return "select_report"
}

// Do executes the selection step.
func (s *SelectReportStep) Do(_ context.Context, job *model.ImportJob) error {
	report, label, err := portal.Select(job.Reports, job.RequestedDate, s.loc)
	if err != nil {
		return err
	}
	job.Selected = &report
	job.SelectedDate = label
	return nil
}

// NormalizeStep flattens the selected report into rows.
type NormalizeStep struct{}

// NewNormalizeStep creates the normalize step.
func NewNormalizeStep() *NormalizeStep {
	return &NormalizeStep{}
}

// Name returns the step name.
func (s *NormalizeStep) Name() string {
	return "normalize"
}

// Do executes the normalize step.
func (s *NormalizeStep) Do(_ context.Context, job *model.ImportJob) error {
	if job.Selected == nil {
		return ErrNoReport
	}
	job.Rows = normalize.Normalize(*job.Selected)
	return nil
}

// SessionPipeline creates a pipeline that logs in and fetches the report snapshot.
// It backs the listing of available tests.
func SessionPipeline(acquirer SessionAcquirer, fetcher ReportFetcher, portalCfg config.PortalConfig, opts ...Option) *Pipeline {
	p := New(opts...)
	p.AddSteps(
		NewAcquireSessionStep(acquirer, portalCfg, p.logger),
		NewFetchReportsStep(fetcher),
	)
	return p
}

// ImportPipeline creates the full import pipeline:
// login, fetch, select by local date, normalize.
func ImportPipeline(acquirer SessionAcquirer, fetcher ReportFetcher, portalCfg config.PortalConfig, loc *time.Location, opts ...Option) *Pipeline {
	p := SessionPipeline(acquirer, fetcher, portalCfg, opts...)
	p.AddSteps(
		NewSelectReportStep(loc),
		NewNormalizeStep(),
	)
	return p
}

// BiomarkerPipeline creates a pipeline that logs in, reads the portal's results
// page and parses it into biomarker rows.
func BiomarkerPipeline(scraper PageScraper, portalCfg config.PortalConfig, opts ...Option) *Pipeline {
	p := New(opts...)
	p.AddSteps(
		NewScrapePageStep(scraper, portalCfg, p.logger),
		NewBiomarkerStep(portalCfg.Scrape.HeaderTag),
	)
	return p
}

// ExecuteExclusive runs p while holding the job's account in guard, so two
// imports for one account never overlap.
func ExecuteExclusive(ctx context.Context, p *Pipeline, guard *portal.AccountGuard, job *model.ImportJob) error {
	if job.Credential == nil {
		return ErrNoCredential
	}
	release, err := guard.TryLock(job.Portal, job.Credential.Email)
	if err != nil {
		job.Err = err
		return fmt.Errorf("import %s: %w", job.Portal, err)
	}
	defer release()
	return p.Execute(ctx, job)
}
