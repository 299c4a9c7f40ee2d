package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. ESG_SERVER_PORT.
const EnvPrefix = "ESG"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Provider  ProviderConfig  `yaml:"provider" envconfig:"PROVIDER"`
	Study     StudyConfig     `yaml:"study" envconfig:"STUDY"`
	Sentiment SentimentConfig `yaml:"sentiment" envconfig:"SENTIMENT"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	// RunTimeout bounds one feature run started over HTTP.
	RunTimeout time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT"`
	MaxEvents  int           `yaml:"max_events" envconfig:"MAX_EVENTS"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`

	// APIKeys maps accepted keys to client names. Empty disables auth.
	APIKeys map[string]string `yaml:"api_keys" envconfig:"API_KEYS"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration. Output is console, file or
// both; file output is rotated.
type LoggingConfig struct {
	Level      string `yaml:"level" envconfig:"LEVEL"`
	Format     string `yaml:"format" envconfig:"FORMAT"`
	Output     string `yaml:"output" envconfig:"OUTPUT"`
	FilePath   string `yaml:"file_path" envconfig:"FILE_PATH"`
	MaxSizeMB  int    `yaml:"max_size_mb" envconfig:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" envconfig:"MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" envconfig:"MAX_AGE_DAYS"`
	Compress   bool   `yaml:"compress" envconfig:"COMPRESS"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	BaseDir   string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir   string `yaml:"data_dir" envconfig:"DATA_DIR"`
	PricesDir string `yaml:"prices_dir" envconfig:"PRICES_DIR"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// Provider kinds.
const (
	ProviderCSV   = "csv"
	ProviderEODHD = "eodhd"
)

// ProviderConfig selects and tunes the daily price source.
type ProviderConfig struct {
	Kind       string            `yaml:"kind" envconfig:"KIND"`
	BaseURL    string            `yaml:"base_url" envconfig:"BASE_URL"`
	APIKey     string            `yaml:"api_key" envconfig:"API_KEY"`
	RateLimit  float64           `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	Timeout    time.Duration     `yaml:"timeout" envconfig:"TIMEOUT"`
	// MaxRetries of 0 makes one attempt per fetch.
	MaxRetries int               `yaml:"max_retries" envconfig:"MAX_RETRIES"`
	Backoff    time.Duration     `yaml:"backoff" envconfig:"BACKOFF"`
	CacheTTL   time.Duration     `yaml:"cache_ttl" envconfig:"CACHE_TTL"`
	CacheSize  int               `yaml:"cache_size" envconfig:"CACHE_SIZE"`
	Aliases    map[string]string `yaml:"aliases" envconfig:"ALIASES"`
}

// StudyConfig holds the event-study reference symbols.
type StudyConfig struct {
	MarketSymbol     string `yaml:"market_symbol" envconfig:"MARKET_SYMBOL"`
	VolatilitySymbol string `yaml:"volatility_symbol" envconfig:"VOLATILITY_SYMBOL"`
	Concurrency      int    `yaml:"concurrency" envconfig:"CONCURRENCY"`
}

// SentimentConfig points at the sentiment scoring service.
type SentimentConfig struct {
	URL       string        `yaml:"url" envconfig:"URL"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	BatchSize int           `yaml:"batch_size" envconfig:"BATCH_SIZE"`
}

// AnalysisConfig configures the analysis service and sector alerts.
type AnalysisConfig struct {
	URL            string            `yaml:"url" envconfig:"URL"`
	Timeout        time.Duration     `yaml:"timeout" envconfig:"TIMEOUT"`
	Sectors        map[string]string `yaml:"sectors" envconfig:"SECTORS"`
	DummySectors   []string          `yaml:"dummy_sectors" envconfig:"DUMMY_SECTORS"`
	AlertSectors   []string          `yaml:"alert_sectors" envconfig:"ALERT_SECTORS"`
	AlertThreshold float64           `yaml:"alert_threshold" envconfig:"ALERT_THRESHOLD"`
}

// OutputConfig controls exported artifacts.
type OutputConfig struct {
	Formats            []string `yaml:"formats" envconfig:"FORMATS"`
	MissingMarker      string   `yaml:"missing_marker" envconfig:"MISSING_MARKER"`
	ParquetCompression string   `yaml:"parquet_compression" envconfig:"PARQUET_COMPRESSION"`
	TickerFiles        bool     `yaml:"ticker_files" envconfig:"TICKER_FILES"`
	S3                 S3Config `yaml:"s3" envconfig:"S3"`
}

// S3Config locates the upload bucket. Empty credentials fall back to the
// default AWS chain.
type S3Config struct {
	Enabled         bool   `yaml:"enabled" envconfig:"ENABLED"`
	Bucket          string `yaml:"bucket" envconfig:"BUCKET"`
	Prefix          string `yaml:"prefix" envconfig:"PREFIX"`
	Region          string `yaml:"region" envconfig:"REGION"`
	Endpoint        string `yaml:"endpoint" envconfig:"ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" envconfig:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" envconfig:"SECRET_ACCESS_KEY"`
	PathStyle       bool   `yaml:"path_style" envconfig:"PATH_STYLE"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// TelemetryConfig selects the OpenTelemetry exporters. TraceExporter is
// stdout or none; MetricExporter is prometheus or none.
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// Load builds the configuration from defaults, then the YAML file at path (or
// the first config.yaml found when path is empty), then a .env file, then
// ESG_* environment variables. Later sources win.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// .env never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys missing from the file
// keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// findConfigFile returns the first config file found in the usual places.
func findConfigFile() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// validate validates the configuration and normalizes enumerations.
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Server.MaxEvents <= 0 {
		return fmt.Errorf("server max events must be positive")
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid log output: %q", c.Logging.Output)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}

	c.Provider.Kind = strings.ToLower(c.Provider.Kind)
	switch c.Provider.Kind {
	case ProviderCSV:
	case ProviderEODHD:
		if c.Provider.APIKey == "" {
			return fmt.Errorf("provider %s requires an API key", ProviderEODHD)
		}
	default:
		return fmt.Errorf("unknown price provider: %q", c.Provider.Kind)
	}
	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("provider timeout must be positive")
	}

	if c.Study.MarketSymbol == "" || c.Study.VolatilitySymbol == "" {
		return fmt.Errorf("market and volatility symbols are required")
	}
	if c.Study.Concurrency <= 0 {
		return fmt.Errorf("study concurrency must be positive")
	}

	switch c.Telemetry.TraceExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("unsupported trace exporter: %q", c.Telemetry.TraceExporter)
	}
	switch c.Telemetry.MetricExporter {
	case "prometheus", "none":
	default:
		return fmt.Errorf("unsupported metric exporter: %q", c.Telemetry.MetricExporter)
	}

	if len(c.Output.Formats) == 0 {
		return fmt.Errorf("at least one output format must be specified")
	}
	if c.Output.S3.Enabled && c.Output.S3.Bucket == "" {
		return fmt.Errorf("s3 upload enabled without a bucket")
	}
	return nil
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    5 * time.Minute,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RunTimeout:      10 * time.Minute,
			MaxEvents:       500,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "console",
			FilePath:   "logs/esgpulse.log",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Paths: PathsConfig{
			DataDir:   "data",
			PricesDir: "data/prices",
			OutputDir: "data/output",
			LogsDir:   "logs",
		},
		Provider: ProviderConfig{
			Kind:       ProviderCSV,
			BaseURL:    "https://eodhd.com/api",
			RateLimit:  5,
			Timeout:    20 * time.Second,
			MaxRetries: 2,
			Backoff:    500 * time.Millisecond,
			CacheTTL:   time.Hour,
			CacheSize:  1024,
		},
		Study: StudyConfig{
			MarketSymbol:     "^GSPC",
			VolatilitySymbol: "^VIX",
			Concurrency:      4,
		},
		Sentiment: SentimentConfig{
			URL:       "http://localhost:8000",
			Timeout:   30 * time.Second,
			BatchSize: 32,
		},
		Analysis: AnalysisConfig{
			URL:            "http://localhost:8000",
			Timeout:        60 * time.Second,
			DummySectors:   []string{"energy", "consumer_goods"},
			AlertSectors:   []string{"energy", "consumer_goods"},
			AlertThreshold: -0.5,
		},
		Output: OutputConfig{
			Formats:            []string{"csv"},
			MissingMarker:      "NA",
			ParquetCompression: "snappy",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}
