package alpaca

// client.go — HTTP plumbing for the Alpaca v2 REST API.
//
// Auth is header-based (APCA-API-KEY-ID / APCA-API-SECRET-KEY). Every call
// goes through a shared rate limiter and bounded retry-with-backoff:
// network errors, 429 and 5xx retry; 401/403/404/422 never do and surface
// as fatal gateway errors.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/dcabot/internal/domain"
)

const (
	defaultTradeBase = "https://paper-api.alpaca.markets"
	defaultDataBase  = "https://data.alpaca.markets"

	// Alpaca allows 200 req/min per key. Stay around 60% of that.
	requestsPerSec = 2
	requestBurst   = 10

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client is the low-level Alpaca HTTP client shared by the gateway.
type Client struct {
	http      *http.Client
	tradeBase string
	dataBase  string
	key       string
	secret    string
	limiter   *rate.Limiter
}

// NewClient creates a Client. Empty base URLs fall back to the paper
// trading endpoints.
func NewClient(tradeBase, dataBase, key, secret string) *Client {
	if tradeBase == "" {
		tradeBase = defaultTradeBase
	}
	if dataBase == "" {
		dataBase = defaultDataBase
	}
	return &Client{
		http:      &http.Client{Timeout: 10 * time.Second},
		tradeBase: tradeBase,
		dataBase:  dataBase,
		key:       key,
		secret:    secret,
		limiter:   rate.NewLimiter(requestsPerSec, requestBurst),
	}
}

// statusError is a non-2xx response after retries were exhausted or skipped.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

// retryable reports whether a status code is worth another attempt.
func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// do executes one API call with rate limiting and retries, decoding the JSON
// response into out (out may be nil for empty responses). The returned error
// is already classified via domain.Transient / domain.Fatal under op.
func (c *Client) do(ctx context.Context, op, method, url string, body, out any) error {
	var reqBody []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return domain.Fatal(op, fmt.Errorf("marshal body: %w", err))
		}
		reqBody = b
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.Transient(op, fmt.Errorf("rate limiter: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(reqBody))
		if err != nil {
			return domain.Fatal(op, err)
		}
		req.Header.Set("APCA-API-KEY-ID", c.key)
		req.Header.Set("APCA-API-SECRET-KEY", c.secret)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return domain.Transient(op, ctx.Err())
			}
			lastErr = err
			c.sleep(ctx, attempt)
			continue
		}

		if retryable(resp.StatusCode) {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = &statusError{code: resp.StatusCode, body: string(b)}
			slog.Warn("alpaca: retryable response",
				"op", op, "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return domain.Fatal(op, &statusError{code: resp.StatusCode, body: string(b)})
		}

		if out == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil
		}
		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return domain.Transient(op, fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	return domain.Transient(op, fmt.Errorf("exhausted %d retries: %w", maxRetries, lastErr))
}

// sleep waits with exponential backoff, respecting the context.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

// statusCode extracts the HTTP status from a gateway error chain, or 0.
func statusCode(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.code
	}
	return 0
}
