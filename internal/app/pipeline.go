package app

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"path/filepath"
	"strings"

	"esgpulse/internal/analysis"
	"esgpulse/internal/config"
	"esgpulse/internal/eventstudy"
	"esgpulse/internal/exporter"
	"esgpulse/internal/infrastructure"
	"esgpulse/internal/marketdata"
	"esgpulse/internal/news"
	"esgpulse/internal/services"
)

// Pipeline is the feature engine with its collaborators, shared by the HTTP
// server and the batch CLI.
type Pipeline struct {
	Fetcher   *marketdata.Fetcher
	Assembler *eventstudy.Assembler
	Features  *services.FeatureService
	Analysis  *services.AnalysisService
	// Scorer is nil when no sentiment service is configured.
	Scorer  news.Scorer
	Formats []exporter.Format
}

// BuildPipeline wires the price provider, assembler, exporters and analysis
// service from cfg. metrics may be nil. extra options are applied after the
// ones derived from cfg.
func BuildPipeline(ctx context.Context, cfg *config.Config, paths *config.Paths, metrics *infrastructure.PipelineMetrics, logger *slog.Logger, extra ...services.FeatureServiceOption) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := newProvider(cfg, paths, logger)
	if err != nil {
		return nil, err
	}
	fetcher := marketdata.NewFetcher(provider, marketdata.FetcherConfig{
		Timeout:    cfg.Provider.Timeout,
		MaxRetries: cfg.Provider.MaxRetries,
		Backoff:    cfg.Provider.Backoff,
		CacheTTL:   cfg.Provider.CacheTTL,
		CacheSize:  cfg.Provider.CacheSize,
	}, logger)

	assembler := eventstudy.NewAssembler(fetcher, eventstudy.Config{
		MarketSymbol:     cfg.Study.MarketSymbol,
		VolatilitySymbol: cfg.Study.VolatilitySymbol,
		Concurrency:      cfg.Study.Concurrency,
	}, logger)

	formats, err := exporter.ParseFormats(strings.Join(cfg.Output.Formats, ","))
	if err != nil {
		return nil, err
	}
	fe := exporter.NewFeatureExporter(paths.OutputDir, cfg.Output.MissingMarker, logger)
	if cfg.Output.ParquetCompression != "" {
		fe.ParquetCompression = cfg.Output.ParquetCompression
	}

	opts := []services.FeatureServiceOption{
		services.WithExporter(fe, formats),
		services.WithLimits(cfg.Server.MaxEvents, cfg.Server.RunTimeout),
	}
	if metrics != nil {
		fetcher.Recorder = metrics
		assembler.Recorder = metrics
		opts = append(opts, services.WithRunRecorder(metrics))
	}
	if cfg.Output.TickerFiles {
		opts = append(opts, services.WithTickerExporter(
			exporter.NewTickerExporter(filepath.Join(paths.OutputDir, "tickers"), cfg.Output.MissingMarker, logger)))
	}
	if cfg.Output.S3.Enabled {
		s3cfg := cfg.Output.S3
		publisher, err := exporter.NewS3Publisher(ctx, exporter.S3Config{
			Bucket:          s3cfg.Bucket,
			Prefix:          s3cfg.Prefix,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
			PathStyle:       s3cfg.PathStyle,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 publisher: %w", err)
		}
		opts = append(opts, services.WithPublisher(publisher))
	}
	opts = append(opts, extra...)

	p := &Pipeline{
		Fetcher:   fetcher,
		Assembler: assembler,
		Features:  services.NewFeatureService(assembler, logger, opts...),
		Analysis:  newAnalysisService(cfg.Analysis, logger),
		Formats:   formats,
	}
	if cfg.Sentiment.URL != "" {
		p.Scorer = news.NewHTTPScorer(cfg.Sentiment.URL, cfg.Sentiment.Timeout)
	}
	return p, nil
}

func newProvider(cfg *config.Config, paths *config.Paths, logger *slog.Logger) (marketdata.Provider, error) {
	switch cfg.Provider.Kind {
	case config.ProviderCSV:
		return marketdata.NewCSVProvider(paths.PricesDir, logger), nil
	case config.ProviderEODHD:
		opts := []marketdata.EODHDOption{
			marketdata.WithAliases(cfg.Provider.Aliases),
			marketdata.WithLogger(logger),
			marketdata.WithHTTPClient(&http.Client{Timeout: cfg.Provider.Timeout}),
		}
		if cfg.Provider.BaseURL != "" {
			opts = append(opts, marketdata.WithBaseURL(cfg.Provider.BaseURL))
		}
		if cfg.Provider.RateLimit > 0 {
			opts = append(opts, marketdata.WithRateLimit(int(math.Ceil(cfg.Provider.RateLimit))))
		}
		return marketdata.NewEODHDProvider(cfg.Provider.APIKey, opts...), nil
	default:
		return nil, fmt.Errorf("unknown price provider: %q", cfg.Provider.Kind)
	}
}

func newAnalysisService(cfg config.AnalysisConfig, logger *slog.Logger) *services.AnalysisService {
	sectors := make(analysis.Sectors, len(cfg.Sectors))
	for ticker, sector := range cfg.Sectors {
		sectors[strings.ToUpper(strings.TrimSpace(ticker))] = sector
	}
	rules := analysis.AlertRules{Threshold: cfg.AlertThreshold, Sectors: cfg.AlertSectors}

	var client services.AnalysisRunner
	if cfg.URL != "" {
		client = analysis.NewClient(cfg.URL, cfg.Timeout)
	}
	return services.NewAnalysisService(sectors, cfg.DummySectors, rules, client, logger)
}
