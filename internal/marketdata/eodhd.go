package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"esgpulse/internal/eventstudy"
)

const (
	// DefaultEODHDBaseURL is the public EODHD API root.
	DefaultEODHDBaseURL = "https://eodhd.com/api"
	// DefaultEODHDTimeout bounds a single HTTP request.
	DefaultEODHDTimeout = 20 * time.Second
	// DefaultEODHDRateLimit is requests per second.
	DefaultEODHDRateLimit = 10
)

// APIError is a non-200 answer from the price API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("price API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Temporary reports whether retrying may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500
}

// RateLimitError is returned when the API or the local limiter refuses a call.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("price API rate limit exceeded, retry after %v", e.RetryAfter)
}

// Temporary implements the retry classification used by Fetcher.
func (e *RateLimitError) Temporary() bool { return true }

type eodBar struct {
	Date          string      `json:"date"`
	Open          json.Number `json:"open"`
	High          json.Number `json:"high"`
	Low           json.Number `json:"low"`
	Close         json.Number `json:"close"`
	AdjustedClose json.Number `json:"adjusted_close"`
	Volume        json.Number `json:"volume"`
}

// EODHDProvider fetches end-of-day bars over HTTP.
type EODHDProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	aliases    map[string]string
	logger     *slog.Logger
}

// EODHDOption configures an EODHDProvider.
type EODHDOption func(*EODHDProvider)

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) EODHDOption {
	return func(p *EODHDProvider) {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) EODHDOption {
	return func(p *EODHDProvider) {
		p.httpClient = c
	}
}

// WithRateLimit sets requests per second.
func WithRateLimit(perSecond int) EODHDOption {
	return func(p *EODHDProvider) {
		if perSecond > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
		}
	}
}

// WithAliases maps engine symbols to API symbols, e.g. ^GSPC to GSPC.INDX.
func WithAliases(aliases map[string]string) EODHDOption {
	return func(p *EODHDProvider) {
		for k, v := range aliases {
			p.aliases[k] = v
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EODHDOption {
	return func(p *EODHDProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewEODHDProvider creates an HTTP price provider.
func NewEODHDProvider(apiKey string, opts ...EODHDOption) *EODHDProvider {
	p := &EODHDProvider{
		baseURL:    DefaultEODHDBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultEODHDTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultEODHDRateLimit), DefaultEODHDRateLimit),
		aliases: map[string]string{
			"^GSPC": "GSPC.INDX",
			"^VIX":  "VIX.INDX",
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(slog.String("provider", "eodhd"))
	return p
}

// Name implements Provider.
func (p *EODHDProvider) Name() string { return "eodhd" }

// APISymbol returns the symbol sent to the API.
func (p *EODHDProvider) APISymbol(symbol string) string {
	if alias, ok := p.aliases[symbol]; ok {
		return alias
	}
	return symbol
}

// Frame implements Provider. Columns are plain-named.
func (p *EODHDProvider) Frame(ctx context.Context, symbol string, start, end time.Time) (*Frame, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RateLimitError{RetryAfter: time.Second}
	}

	apiSymbol := p.APISymbol(symbol)
	path := "/eod/" + url.PathEscape(apiSymbol)
	params := url.Values{}
	params.Set("from", start.Format("2006-01-02"))
	params.Set("to", end.Format("2006-01-02"))
	params.Set("period", "d")
	params.Set("order", "a")
	params.Set("api_token", p.apiKey)
	params.Set("fmt", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	p.logger.DebugContext(ctx, "price API request",
		slog.String("symbol", symbol),
		slog.String("api_symbol", apiSymbol),
		slog.String("from", params.Get("from")),
		slog.String("to", params.Get("to")),
	)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retry := time.Second
		if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && s > 0 {
			retry = time.Duration(s) * time.Second
		}
		return nil, &RateLimitError{RetryAfter: retry}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body)), Endpoint: path}
	}

	var bars []eodBar
	if err := json.NewDecoder(resp.Body).Decode(&bars); err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %v", eventstudy.ErrDataUnavailable, symbol, err)
	}
	return barsToFrame(bars)
}

func barsToFrame(bars []eodBar) (*Frame, error) {
	dates := make([]time.Time, 0, len(bars))
	var open, high, low, closing, adj, volume []any
	for _, b := range bars {
		d, err := parseDate(b.Date)
		if err != nil {
			continue
		}
		dates = append(dates, d)
		open = append(open, b.Open)
		high = append(high, b.High)
		low = append(low, b.Low)
		closing = append(closing, b.Close)
		adj = append(adj, b.AdjustedClose)
		volume = append(volume, b.Volume)
	}

	frame := NewFrame(dates)
	columns := []struct {
		name   string
		values []any
	}{
		{"Open", open},
		{"High", high},
		{"Low", low},
		{"Close", closing},
		{"Adj Close", adj},
		{"Volume", volume},
	}
	for _, c := range columns {
		if c.values == nil {
			c.values = []any{}
		}
		if err := frame.Set(ColumnKey{Field: c.name}, c.values); err != nil {
			return nil, err
		}
	}
	return frame, nil
}
