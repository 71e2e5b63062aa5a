// Package buzzer drives the ESP32 feedback hardware. Every decision
// outcome maps to a firmware pattern name (beep sequence plus LED
// color); the mapping lives in the embedded patterns file so firmware
// changes do not require a rebuild of this service.
package buzzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
)

// Client triggers buzzer patterns on the ESP32 over its local HTTP
// API. It implements attendance.Notifier.
type Client struct {
	parsedURL *url.URL
	client    *http.Client
	patterns  *config.Config
}

// New creates a buzzer client from the runtime configuration. Returns
// nil when no ESP32 base URL is configured; callers then run without a
// notifier.
func New(cfg *config.Config) (*Client, error) {
	if cfg.Buzzer.BaseURL == "" {
		return nil, nil
	}

	parsed, err := url.Parse(cfg.Buzzer.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ESP32 base URL: %w", err)
	}

	return &Client{
		parsedURL: parsed,
		client:    &http.Client{Timeout: time.Duration(cfg.Buzzer.TimeoutSeconds) * time.Second},
		patterns:  cfg,
	}, nil
}

type triggerRequest struct {
	Pattern string `json:"pattern"`
}

// Notify plays the pattern configured for the outcome kind.
func (c *Client) Notify(ctx context.Context, kind attendance.OutcomeKind) error {
	return c.TriggerPattern(ctx, c.patterns.PatternFor(string(kind)))
}

// TriggerPattern plays a named firmware pattern. Exposed directly so
// the web surface can offer a hardware test endpoint.
func (c *Client) TriggerPattern(ctx context.Context, pattern string) error {
	jsonBody, err := json.Marshal(triggerRequest{Pattern: pattern})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	reqURL := c.parsedURL.JoinPath("/buzzer")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("buzzer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("buzzer error (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}
