// Command features builds the event-study feature table for a batch of
// scored headlines and writes it to the output directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"esgpulse/internal/app"
	"esgpulse/internal/config"
	"esgpulse/internal/infrastructure"
	"esgpulse/internal/news"
)

// options are the command line switches.
type options struct {
	ConfigPath string
	Events     string
	News       string
	OutDir     string
	Formats    string
	Upload     bool
	Analysis   bool
	Verbose    bool
}

var errUsage = errors.New("usage")

func main() {
	var opts options
	flag.StringVar(&opts.ConfigPath, "config", "", "path to config.yaml (searched for when empty)")
	flag.StringVar(&opts.Events, "events", "", "scored headline CSV")
	flag.StringVar(&opts.News, "news", "", "raw headline CSV to score with the sentiment service")
	flag.StringVar(&opts.OutDir, "out", "", "output directory (overrides config)")
	flag.StringVar(&opts.Formats, "formats", "", "comma separated output formats: csv,xlsx,parquet,json")
	flag.BoolVar(&opts.Upload, "upload", false, "upload artifacts to the configured S3 bucket")
	flag.BoolVar(&opts.Analysis, "analysis", false, "send the analysis request and print the model summary")
	flag.BoolVar(&opts.Verbose, "v", false, "debug logging")
	flag.Parse()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	opts.apply(cfg)

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, opts, os.Stdout, logger); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			flag.Usage()
			os.Exit(2)
		}
		logger.Error("Feature run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// apply overlays the switches that shadow configuration keys.
func (o options) apply(cfg *config.Config) {
	if o.OutDir != "" {
		cfg.Paths.OutputDir = o.OutDir
	}
	if o.Formats != "" {
		cfg.Output.Formats = strings.Split(o.Formats, ",")
	}
	if o.Upload {
		cfg.Output.S3.Enabled = true
	}
	if o.Verbose {
		cfg.Logging.Level = "debug"
	}
}

// run executes one batch. A run that produces no rows is not an error.
func run(ctx context.Context, cfg *config.Config, opts options, out io.Writer, logger *slog.Logger) error {
	if (opts.Events == "") == (opts.News == "") {
		return fmt.Errorf("%w: exactly one of -events or -news is required", errUsage)
	}

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}

	pipeline, err := app.BuildPipeline(ctx, cfg, paths, nil, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	source := opts.Events
	if source == "" {
		source = opts.News
	}
	table, err := news.LoadFile(source)
	if err != nil {
		return err
	}
	events := table.Events

	if opts.News != "" || !table.Scored {
		if pipeline.Scorer == nil {
			return fmt.Errorf("%s has no sentiment columns and no sentiment service is configured", source)
		}
		logger.InfoContext(ctx, "scoring headlines", slog.Int("headlines", len(events)))
		if events, err = news.ScoreEvents(ctx, pipeline.Scorer, events, cfg.Sentiment.BatchSize, logger); err != nil {
			return err
		}
	}

	report, err := pipeline.Features.Run(ctx, events)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "run %s: %d events, %d processed, %d skipped, %d rows\n",
		report.RunID, report.Stats.Events, report.Stats.Processed, report.Stats.Skipped, report.Stats.Rows)
	for reason, n := range report.Stats.ByReason {
		fmt.Fprintf(out, "  skipped %-18s %d\n", reason, n)
	}
	for _, a := range report.Artifacts {
		fmt.Fprintf(out, "wrote %s (%d bytes)\n", a.Path, a.Size)
	}
	for _, key := range report.Uploaded {
		fmt.Fprintf(out, "uploaded %s\n", key)
	}
	if report.Outage {
		fmt.Fprintln(out, "warning: no price data could be fetched for any event")
	}

	if opts.Analysis {
		if len(report.Rows) == 0 {
			logger.WarnContext(ctx, "no rows to analyse")
			return nil
		}
		summary, err := pipeline.Analysis.Run(ctx, report.Rows)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, summary)
	}
	return nil
}
