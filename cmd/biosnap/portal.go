package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/biosnap/internal/browser"
	"github.com/nao1215/biosnap/internal/config"
	"github.com/nao1215/biosnap/internal/model"
	"github.com/nao1215/biosnap/internal/pipeline"
	"github.com/nao1215/biosnap/internal/portal"
)

// importGuard prevents two imports for one account within this process.
var importGuard = portal.NewAccountGuard()

// portalOptions are the flag values shared by portal commands.
type portalOptions struct {
	portal    string
	email     string
	fromStdin bool
}

// portalDeps are the collaborators of a portal command.
type portalDeps struct {
	acquirer pipeline.SessionAcquirer
	fetcher  pipeline.ReportFetcher
	scraper  pipeline.PageScraper
}

// addPortalFlags registers the flags read by applyPortalFlags.
func addPortalFlags(cmd *cobra.Command, defaultPortal string) {
	cmd.Flags().StringP("portal", "p", defaultPortal, "Portal to log into")
	cmd.Flags().StringP("email", "e", "", "Portal account e-mail (default: $"+envEmail+")")
	cmd.Flags().Bool("password-stdin", false, "Read the portal password from stdin (default: $"+envPassword+")")
	cmd.Flags().String("timezone", config.DefaultTimezone, "Reference timezone for report dates")
	cmd.Flags().Bool("headless", true, "Run the browser without a window")
	cmd.Flags().String("browser", "", "Chrome or Chromium executable (default: search PATH)")
	cmd.Flags().String("proxy", "", "SOCKS5 proxy for data API requests (host:port)")
	cmd.Flags().Duration("step-timeout", config.DefaultStepTimeout, "Timeout for each browser step")
	cmd.Flags().Duration("http-timeout", config.DefaultHTTPTimeout, "Timeout for the data API request")
}

// applyPortalFlags copies portal flags into cfg and returns the account options.
func applyPortalFlags(cmd *cobra.Command, cfg *config.Config) (portalOptions, error) {
	var (
		opts portalOptions
		err  error
	)
	flags := cmd.Flags()

	if opts.portal, err = flags.GetString("portal"); err != nil {
		return opts, err
	}
	if opts.email, err = flags.GetString("email"); err != nil {
		return opts, err
	}
	if opts.fromStdin, err = flags.GetBool("password-stdin"); err != nil {
		return opts, err
	}
	if cfg.Timezone, err = flags.GetString("timezone"); err != nil {
		return opts, err
	}
	if cfg.Headless, err = flags.GetBool("headless"); err != nil {
		return opts, err
	}
	if cfg.BrowserPath, err = flags.GetString("browser"); err != nil {
		return opts, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return opts, err
	}
	if cfg.StepTimeout, err = flags.GetDuration("step-timeout"); err != nil {
		return opts, err
	}
	if cfg.HTTPTimeout, err = flags.GetDuration("http-timeout"); err != nil {
		return opts, err
	}
	return opts, nil
}

// newPortalDeps builds the Chrome acquirer and the data API fetcher.
// A configured proxy is probed first so that a dead proxy fails before a
// browser is launched.
func newPortalDeps(ctx context.Context, cfg *config.Config, portalCfg config.PortalConfig, logger *slog.Logger, status model.StatusFunc) (portalDeps, error) {
	if cfg.ProxyAddress != "" {
		if st := portal.CheckProxy(ctx, cfg.ProxyAddress); st != portal.ProxyStatusOK {
			return portalDeps{}, fmt.Errorf("proxy check failed: %s (make sure a SOCKS5 proxy is running at %s): %w",
				st, cfg.ProxyAddress, st.Err())
		}
		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
	}

	client, err := portal.NewHTTPClient(cfg.ProxyAddress, cfg.HTTPTimeout)
	if err != nil {
		return portalDeps{}, err
	}

	acquirer := browser.NewChromeAcquirer(cfg,
		browser.WithLogger(logger),
		browser.WithStatus(status),
	)
	return portalDeps{
		acquirer: acquirer,
		scraper:  acquirer,
		fetcher: portal.NewFetcher(portalCfg,
			portal.WithHTTPClient(client),
			portal.WithLogger(logger),
			portal.WithStatus(status),
			portal.WithMaxBodySize(cfg.MaxBodySize),
			portal.WithUserAgent(cfg.UserAgent),
		),
	}, nil
}

// portalRun is everything a portal command needs after flag parsing.
type portalRun struct {
	cfg       *config.Config
	opts      portalOptions
	portalCfg config.PortalConfig
	loc       *time.Location
	logger    *slog.Logger
	status    model.StatusFunc
}

// portalSource is what a portal command reads: the data API or the results page.
type portalSource int

const (
	sourceDataAPI portalSource = iota
	sourceResultsPage
)

// preparePortalRun loads and validates configuration for a portal command.
// The portal must offer the source the command reads.
func preparePortalRun(cmd *cobra.Command, source portalSource) (*portalRun, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts, err := applyPortalFlags(cmd, cfg)
	if err != nil {
		return nil, err
	}
	if err := applyOutputFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	portalCfg, err := cfg.Portal(opts.portal)
	if err != nil {
		return nil, err
	}
	if err := checkPortalSource(opts.portal, portalCfg, source); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	return &portalRun{
		cfg:       cfg,
		opts:      opts,
		portalCfg: portalCfg,
		loc:       loc,
		logger:    setupLogger(cmd),
		status:    statusPrinter(cmd.ErrOrStderr()),
	}, nil
}

// checkPortalSource reports a portal that cannot serve the command's source,
// naming the command that can.
func checkPortalSource(key string, portalCfg config.PortalConfig, source portalSource) error {
	switch {
	case source == sourceDataAPI && portalCfg.DataURL == "":
		return fmt.Errorf("%w: %q is read from its results page, use \"biosnap biomarkers --portal %s\"",
			config.ErrNoDataAPI, key, key)
	case source == sourceResultsPage && !portalCfg.Scrape.Enabled():
		return fmt.Errorf("%w: %q is read from its data API, use \"biosnap import --portal %s\"",
			config.ErrNoScrapePage, key, key)
	}
	return nil
}
