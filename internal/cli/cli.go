package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/connpass-notify/internal/calendar"
	"github.com/pfrederiksen/connpass-notify/internal/config"
	"github.com/pfrederiksen/connpass-notify/internal/logger"
	"github.com/pfrederiksen/connpass-notify/internal/metrics"
	"github.com/pfrederiksen/connpass-notify/internal/pipeline"
	"github.com/pfrederiksen/connpass-notify/internal/storage"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// options holds flag values. Flags override the loaded configuration only when set.
type options struct {
	configPath      string
	format          string
	verbose         bool
	dryRun          bool
	source          string
	keywords        []string
	match           string
	store           string
	icsPath         string
	requireDelivery bool
	sortOrder       string
	countOnly       bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "connpass-notify",
		Short: "Notify a chat channel about newly published connpass events",
		Long: `A CLI tool that checks connpass for events matching a keyword filter and posts
each event it has not seen before to Slack or Telegram. Run it from a scheduler;
every invocation performs exactly one pass.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runNotify(cmd, opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to a config file (YAML, TOML or JSON)")
	pf.StringVar(&opts.format, "format", "text", "Output format: text or json")
	pf.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	pf.StringVar(&opts.source, "source", "", "Event source: api, scrape or feed")
	pf.StringSliceVar(&opts.keywords, "keyword", nil, "Search keyword (repeatable or comma-separated)")
	pf.StringVar(&opts.match, "match", "", "Keyword combinator: and or or")
	pf.StringVar(&opts.store, "store", "", "Path of the notified-ID store")

	f := cmd.Flags()
	f.BoolVar(&opts.dryRun, "dry-run", false, "Print payloads instead of posting and leave the store untouched")
	f.StringVar(&opts.icsPath, "ics", "", "Write the events notified in this run to an iCalendar file")
	f.BoolVar(&opts.requireDelivery, "require-delivery", false, "Do not record events whose delivery failed")

	cmd.AddCommand(newSearchCmd(opts), newPreviewCmd(opts), newIDsCmd(opts))
	return cmd
}

// loadConfig loads the configuration, applies flag overrides and installs the logger.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, OutputFormat, error) {
	format := OutputFormat(strings.ToLower(opts.format))
	if format != FormatText && format != FormatJSON {
		return config.Config{}, "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", opts.format)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, "", err
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source = opts.source
	}
	if flags.Changed("keyword") {
		cfg.Search.Keywords = opts.keywords
	}
	if flags.Changed("match") {
		cfg.Search.Match = opts.match
	}
	if flags.Changed("store") {
		cfg.Store.Path = opts.store
	}
	if flags.Changed("dry-run") && opts.dryRun {
		cfg.Notify.Kind = config.NotifyDryRun
	}
	if flags.Changed("require-delivery") {
		cfg.Notify.RequireDelivery = opts.requireDelivery
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, "", err
	}

	setupLogger(cfg, opts.verbose, cmd.ErrOrStderr())
	return cfg, format, nil
}

func setupLogger(cfg config.Config, verbose bool, w io.Writer) {
	level := logger.ParseLevel(cfg.Log.Level)
	if verbose {
		level = logger.LevelDebug
	}
	if cfg.Log.Development {
		logger.SetDefault(logger.NewDevelopment(level, w))
		return
	}
	logger.SetDefault(logger.New(level, w))
}

// runNotify is the main command logic
func runNotify(cmd *cobra.Command, opts *options) error {
	cfg, format, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Default().Sync() }()

	if err := cfg.ValidateNotify(); err != nil {
		return err
	}

	dryRun := cfg.Notify.Kind == config.NotifyDryRun
	payloadOut := cmd.OutOrStdout()
	if format == FormatJSON {
		payloadOut = cmd.ErrOrStderr()
	}

	src, err := buildSource(cfg)
	if err != nil {
		return err
	}
	n, err := buildNotifier(cfg, payloadOut)
	if err != nil {
		return err
	}
	resolver, err := buildResolver(cfg)
	if err != nil {
		return err
	}

	store, err := storage.Open(storage.Backend(cfg.Store.Backend), cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() { _ = store.Close() }()
	if dryRun {
		store = storage.ReadOnly(store)
	}

	rec := metrics.New()
	p := pipeline.New(src, store, n,
		pipeline.WithImageResolver(resolver),
		pipeline.WithMetrics(rec),
		pipeline.WithRequireDelivery(cfg.Notify.RequireDelivery),
	)

	result, runErr := p.Run(cmd.Context())
	if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logger.Warn("Writing metrics failed", logger.Fields{"path": cfg.Metrics.Textfile, "error": err.Error()})
	}
	if runErr != nil {
		return runErr
	}

	if opts.icsPath != "" && len(result.Notified) > 0 {
		if err := calendar.WriteFile(opts.icsPath, result.Notified, time.Now()); err != nil {
			return err
		}
		logger.Info("Wrote calendar", logger.Fields{"path": opts.icsPath, "events": len(result.Notified)})
	}

	out := &OutputResult{
		CheckedAt:  time.Now().UTC(),
		RunID:      result.RunID,
		Source:     src.Name(),
		Fetched:    result.Fetched,
		NewEvents:  result.New,
		EventCount: len(result.New),
		Failed:     len(result.Failed),
		DryRun:     dryRun,
	}
	if err := WriteOutput(cmd.OutOrStdout(), out, format, opts.verbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// Execute runs the CLI and returns the process exit code
func Execute(ctx context.Context) int {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}
