// Package client talks to a running sidecar. Every call is a single attempt;
// retry policy belongs to the caller.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"observability/internal/transfer"
)

type Client struct {
	baseURL string
	http    *http.Client
}

// ProbeResult is the body of /health and /ready.
type ProbeResult struct {
	Status      string `json:"status"`
	Participant string `json:"participant"`
}

// TransferAck is the body of a successful /event/transfer.
type TransferAck struct {
	OK          bool    `json:"ok"`
	Participant string  `json:"participant"`
	Status      string  `json:"status"`
	Duration    float64 `json:"duration"`
	Duplicate   bool    `json:"duplicate,omitempty"`
}

// HTTPError is returned for any non-2xx answer.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Health(ctx context.Context) (*ProbeResult, error) {
	var out ProbeResult
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Ready(ctx context.Context) (*ProbeResult, error) {
	var out ProbeResult
	if err := c.doJSON(ctx, http.MethodGet, "/ready", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) EmitTransfer(ctx context.Context, ev transfer.Event) (*TransferAck, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	var out TransferAck
	if err := c.doJSON(ctx, http.MethodPost, "/event/transfer", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Metrics scrapes /metrics and parses the text exposition.
func (c *Client) Metrics(ctx context.Context) (map[string]*dto.MetricFamily, error) {
	body, err := c.do(ctx, http.MethodGet, "/metrics", nil)
	if err != nil {
		return nil, err
	}
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse exposition: %w", err)
	}
	return families, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload []byte, out interface{}) error {
	body, err := c.do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// plain text exposition keeps the parser simple
	if path == "/metrics" {
		req.Header.Set("Accept", string(expfmt.FmtText))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
