package services

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"esgpulse/internal/files"
	"esgpulse/internal/marketdata"
	"esgpulse/pkg/contracts"
)

// PriceSource exposes the fetcher state shown by health checks.
type PriceSource interface {
	ProviderName() string
	Stats() marketdata.CacheStats
}

// ClientCounter reports connected WebSocket clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	prices    PriceSource
	features  *FeatureService
	hub       ClientCounter
	outputDir string
	pricesDir string
	discovery *files.Discovery
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    float64                `json:"uptime_seconds"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// NewHealthService creates a health service. Any collaborator may be nil.
func NewHealthService(prices PriceSource, features *FeatureService, hub ClientCounter, outputDir string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		prices:    prices,
		features:  features,
		hub:       hub,
		outputDir: outputDir,
		discovery: files.NewDiscovery(""),
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// WithPriceDir makes the health check report the price files found in dir.
func (hs *HealthService) WithPriceDir(dir string) *HealthService {
	hs.pricesDir = dir
	return hs
}

// HealthCheck returns liveness plus the state of each collaborator. The
// status is "degraded" when the output directory is missing.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   contracts.Version,
		Uptime:    time.Since(hs.startTime).Seconds(),
		Runtime: map[string]interface{}{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
		Services: map[string]interface{}{
			"provider":  hs.checkProvider(),
			"features":  hs.checkFeatures(),
			"websocket": hs.checkWebSocket(),
			"output":    hs.checkOutput(),
		},
	}

	if hs.pricesDir != "" {
		status.Services["prices"] = hs.checkPrices()
	}

	if out, ok := status.Services["output"].(ServiceHealth); ok && out.Status != "ready" {
		status.Status = "degraded"
	}

	hs.logger.DebugContext(ctx, "health check completed", slog.String("status", status.Status))
	return status
}

func (hs *HealthService) checkProvider() ServiceHealth {
	if hs.prices == nil {
		return ServiceHealth{Status: "not_configured"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: hs.prices.ProviderName(),
		Details: hs.prices.Stats(),
	}
}

func (hs *HealthService) checkFeatures() ServiceHealth {
	if hs.features == nil {
		return ServiceHealth{Status: "not_configured"}
	}
	details := map[string]interface{}{"running": hs.features.Running()}
	if latest, err := hs.features.Latest(); err == nil {
		details["last_run_id"] = latest.RunID
		details["last_run_rows"] = len(latest.Rows)
		details["last_run_at"] = latest.StartedAt.UTC().Format(time.RFC3339)
	}
	return ServiceHealth{Status: "ready", Details: details}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "not_configured"}
	}
	return ServiceHealth{
		Status:  "ready",
		Details: map[string]int{"clients": hs.hub.ClientCount()},
	}
}

func (hs *HealthService) checkOutput() ServiceHealth {
	if hs.outputDir == "" {
		return ServiceHealth{Status: "ready", Message: "exports disabled"}
	}
	info, err := os.Stat(hs.outputDir)
	if err != nil || !info.IsDir() {
		return ServiceHealth{Status: "not_ready", Message: "output directory not found: " + hs.outputDir}
	}
	inv, err := hs.discovery.Inventory(hs.outputDir)
	if err != nil {
		return ServiceHealth{Status: "ready", Message: err.Error()}
	}
	return ServiceHealth{Status: "ready", Details: inv}
}

// checkPrices lists local price files. An empty directory is only a problem
// for the csv provider, so it does not degrade the overall status.
func (hs *HealthService) checkPrices() ServiceHealth {
	found, err := hs.discovery.FindPriceFiles(hs.pricesDir)
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: err.Error()}
	}
	status := "ready"
	if len(found) == 0 {
		status = "empty"
	}
	return ServiceHealth{
		Status: status,
		Details: map[string]interface{}{
			"dir":     hs.pricesDir,
			"symbols": files.Symbols(found),
		},
	}
}
