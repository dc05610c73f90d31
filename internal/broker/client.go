// Package broker implements the brokerage gateway against the Alpaca v2
// trading API: account snapshot, market buy orders and the trading calendar.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://paper-api.alpaca.markets"
	DefaultTimeout = 30 * time.Second

	// Alpaca allows 200 requests per minute per key.
	requestsPerMinute = 200
)

// Credential environment variables, same names the Alpaca SDKs use.
const (
	EnvKeyID     = "APCA_API_KEY_ID"
	EnvSecretKey = "APCA_API_SECRET_KEY"
)

// GatewayError reports a failed account or calendar call. It is fatal for
// the run: no orders are placed and the state file is untouched.
type GatewayError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("broker: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("broker: %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// OrderError reports a single failed order submission. It is non-fatal: the
// ticker is skipped and the run continues.
type OrderError struct {
	Ticker     string
	StatusCode int
	Err        error
}

func (e *OrderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("broker: buy %s: status %d: %v", e.Ticker, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("broker: buy %s: %v", e.Ticker, e.Err)
}

func (e *OrderError) Unwrap() error { return e.Err }

// Client talks to the Alpaca trading API.
type Client struct {
	baseURL    string
	keyID      string
	secretKey  string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger

	// newOrderID generates client order ids; swapped out in tests.
	newOrderID func() string
}

func New(baseURL string, timeout time.Duration, keyID, secretKey string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		keyID:      keyID,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute/10),
		log:        log,
		newOrderID: uuid.NewString,
	}
}

// NewFromEnv builds a client with credentials from the process environment.
// Missing credentials are a fatal startup error.
func NewFromEnv(baseURL string, timeout time.Duration, log zerolog.Logger) (*Client, error) {
	keyID := os.Getenv(EnvKeyID)
	secretKey := os.Getenv(EnvSecretKey)
	if keyID == "" || secretKey == "" {
		return nil, fmt.Errorf("broker credentials: %s and %s must be set", EnvKeyID, EnvSecretKey)
	}
	return New(baseURL, timeout, keyID, secretKey, log), nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("APCA-API-KEY-ID", c.keyID)
	req.Header.Set("APCA-API-SECRET-KEY", c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do performs one rate-limited call and decodes a 2xx JSON response into out.
// Non-2xx statuses come back as errStatus with a body snippet.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, out any) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("%w: %s", errStatus, bytes.TrimSpace(snippet))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

var errStatus = errors.New("unexpected status")
