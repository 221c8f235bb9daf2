package fiscal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/cadvision/backend/internal/domain"
)

// Client handles communication with the Cosmos fiscal GTIN catalog
type Client struct {
	httpClient  *http.Client
	apiToken    string
	baseURL     string
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new fiscal catalog client. Cosmos caps free-tier
// usage at 25 requests/day per token, so the limiter stays conservative.
func NewClient(apiToken, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		apiToken:    apiToken,
		baseURL:     baseURL,
		rateLimiter: rate.NewLimiter(rate.Limit(1), 3),
	}
}

// SetDebug enables verbose request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// Lookup resolves a GTIN code against the fiscal catalog. A catalog miss
// is domain.ErrProductNotFound; transport faults map to the adapter errors.
func (c *Client) Lookup(ctx context.Context, code string) (*domain.EnrichedRecord, error) {
	if code == "" {
		return nil, domain.ErrProductNotFound
	}

	reqURL := fmt.Sprintf("%s/gtins/%s.json", c.baseURL, code)

	// Retry up to 3 times for transient failures
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			if c.debug {
				log.Printf("[FISCAL] request error (attempt %d): %v", attempt, err)
			}
			lastErr = err
			if errors.Is(err, domain.ErrAdapterTimeout) || ctx.Err() != nil {
				return nil, lastErr
			}
			time.Sleep(time.Duration(attempt*500) * time.Millisecond)
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			var wire gtinResponse
			if err := json.Unmarshal(body, &wire); err != nil {
				return nil, fmt.Errorf("%w: decode response: %v", domain.ErrAdapterUnavailable, err)
			}
			rec := mapRecord(code, &wire)
			if c.debug {
				log.Printf("[FISCAL] match for %s: %q (%s)", code, rec.Title, rec.Brand)
			}
			return rec, nil

		case http.StatusNotFound:
			return nil, domain.ErrProductNotFound

		case http.StatusForbidden, http.StatusTooManyRequests:
			// Quota exhausted or token rejected; retrying won't help today.
			return nil, fmt.Errorf("%w: status %d", domain.ErrAdapterUnavailable, resp.StatusCode)

		default:
			if c.debug {
				log.Printf("[FISCAL] catalog error (attempt %d) - status: %d", attempt, resp.StatusCode)
			}
			lastErr = fmt.Errorf("%w: status %d", domain.ErrAdapterUnavailable, resp.StatusCode)
			time.Sleep(time.Duration(attempt*500) * time.Millisecond)
		}
	}

	return nil, lastErr
}

// doRequest executes an HTTP GET with proper headers and error taxonomy mapping
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "CadVision/1.0")
	req.Header.Set("X-Cosmos-Token", c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %v", domain.ErrAdapterTimeout, err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", domain.ErrAdapterTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrAdapterUnavailable, err)
	}
	return resp, nil
}
