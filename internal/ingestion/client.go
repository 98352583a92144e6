// Package ingestion fetches option-chain snapshots from the upstream
// market-data API.
package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/option-signal-feed/internal/chain"
	"github.com/option-signal-feed/internal/config"
)

// Fetcher is the per-cycle snapshot source the poll loop depends on.
type Fetcher interface {
	FetchChain(ctx context.Context, expiryDate string) (*chain.Snapshot, error)
}

// TokenSource supplies the upstream bearer token. Tokens rotate daily,
// so the client re-reads the source on every request.
type TokenSource interface {
	Token() (string, error)
}

// FileTokenSource reads the token from a file, trimming whitespace.
type FileTokenSource struct {
	Path string
}

func (f FileTokenSource) Token() (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", f.Path)
	}
	return token, nil
}

// StaticTokenSource returns a fixed token, used in tests.
type StaticTokenSource string

func (s StaticTokenSource) Token() (string, error) { return string(s), nil }

// Client is the rate-limited REST client for the option-chain endpoint.
type Client struct {
	baseURL       string
	instrumentKey string
	tokens        TokenSource
	client        *http.Client
	rateLimiter   *rate.Limiter
	now           func() time.Time
}

func NewClient(cfg config.UpstreamConfig, tokens TokenSource) *Client {
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		instrumentKey: cfg.InstrumentKey,
		tokens:        tokens,
		client: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSecs) * time.Second,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitPerSecond),
		now:         time.Now,
	}
}

// FetchChain pulls one option-chain snapshot for the given expiry and
// normalizes it.
func (c *Client) FetchChain(ctx context.Context, expiryDate string) (*chain.Snapshot, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	token, err := c.tokens.Token()
	if err != nil {
		return nil, err
	}

	url := c.baseURL + "/option/chain"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("instrument_key", c.instrumentKey)
	q.Set("expiry_date", expiryDate)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("option chain request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read option chain response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("option chain request returned status %d: %s", resp.StatusCode, string(body))
	}

	return chain.Normalize(body, expiryDate, c.now())
}
