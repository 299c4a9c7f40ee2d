package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls the remote analysis service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type analysisResponse struct {
	ModelSummary string `json:"model_summary"`
}

// RunAnalysis posts req to /run-analysis and returns the model summary text.
func (c *Client) RunAnalysis(ctx context.Context, req Request) (string, error) {
	if req.Len() == 0 {
		return "", fmt.Errorf("analysis request has no observations")
	}
	var out analysisResponse
	if err := c.post(ctx, "/run-analysis", req, &out); err != nil {
		return "", err
	}
	return out.ModelSummary, nil
}

// GenerateAlerts posts records to /generate-alerts on the remote service.
func (c *Client) GenerateAlerts(ctx context.Context, records []AlertRecord) ([]Alert, error) {
	body := struct {
		Records []AlertRecord `json:"records"`
	}{Records: records}
	var out []Alert
	if err := c.post(ctx, "/generate-alerts", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("analysis service %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("analysis service %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
