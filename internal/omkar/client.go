// Package omkar talks to the external fast-path verifier. Its answers are
// cheap and cached upstream; everything it cannot settle (catch-all domains,
// API failures) falls through to the probe engine.
package omkar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// Result is the subset of the verifier's response the service consumes.
// Optional fields are pointers so an absent field is distinguishable from a
// false one.
type Result struct {
	IsValid     bool   `json:"is_valid"`
	Status      string `json:"status"`
	CatchAll    *bool  `json:"catch_all"`
	IsFreeEmail *bool  `json:"is_free_email"`
	Reason      string `json:"reason"`
	Score       int    `json:"score"`
}

// IsCatchAll reports whether the verifier flagged the domain as accept-all.
// Some deployments only signal it through the status string.
func (r *Result) IsCatchAll() bool {
	if r.CatchAll != nil && *r.CatchAll {
		return true
	}
	return strings.Contains(strings.ToLower(r.Status), "catch")
}

// Client is a thin HTTPS client for the fast-path verifier. The zero value is
// not usable; construct with NewClient.
type Client struct {
	url    string
	apiKey string
	httpc  *http.Client
	log    *zap.Logger
}

func NewClient(apiURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:    apiURL,
		apiKey: apiKey,
		httpc: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log: logger.Named("omkar"),
	}
}

// Verify asks the fast-path verifier about one address. Transport failures
// and non-200 responses come back as errors; the caller decides whether to
// fall through to the probe.
func (c *Client) Verify(ctx context.Context, email string) (*Result, error) {
	target := c.url + "?email=" + url.QueryEscape(email)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fast-path request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("fast-path verifier error",
			zap.String("email", email),
			zap.Int("status_code", resp.StatusCode))
		return nil, fmt.Errorf("fast-path verifier returned %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}
