package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/casaverde/rewards-api/internal/domain"
	"golang.org/x/time/rate"
)

// Client dispatches redemption entries to the external ledger webhook.
// Every call first waits on a token bucket (default 5 ops/sec, refilled
// once per second); waiters queue in FIFO order, matching the admission
// control the ledger API expects.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

const (
	defaultOpsPerSecond = 5
	defaultTimeout      = 10 * time.Second
)

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second/defaultOpsPerSecond), defaultOpsPerSecond),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ClientOption func(*Client)

// WithRateLimit overrides the ops-per-second admitted to the ledger.
func WithRateLimit(opsPerSecond int) ClientOption {
	return func(c *Client) {
		if opsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Second/time.Duration(opsPerSecond)), opsPerSecond)
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

type recordRequest struct {
	AttemptID     string `json:"attempt_id"`
	UnitID        string `json:"unit_id"`
	AgentID       string `json:"agent_id"`
	BuyerRef      string `json:"buyer_ref"`
	ObservedStock int    `json:"observed_stock"`
}

type recordResponse struct {
	Reference string `json:"reference"`
}

// Record posts the entry to the ledger and returns its reference. The
// caller treats success as the durable fact that a redemption happened.
func (c *Client) Record(ctx context.Context, entry domain.LedgerEntry) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, err := json.Marshal(recordRequest{
		AttemptID:     entry.AttemptID,
		UnitID:        entry.UnitID,
		AgentID:       entry.AgentID,
		BuyerRef:      entry.BuyerRef,
		ObservedStock: entry.ObservedStock,
	})
	if err != nil {
		return "", fmt.Errorf("marshal ledger entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/redemptions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build ledger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ledger request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("ledger returned status %d", resp.StatusCode)
	}

	var rr recordResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return "", fmt.Errorf("decode ledger response: %w", err)
	}
	if rr.Reference == "" {
		return "", fmt.Errorf("ledger response missing reference")
	}
	return rr.Reference, nil
}
