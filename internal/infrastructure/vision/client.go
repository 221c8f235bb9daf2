package vision

import (
	"bytes"
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

// extractResponse mirrors the optical engine's wire format.
type extractResponse struct {
	Tokens []struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
		Line       int     `json:"line"`
		Column     int     `json:"column"`
	} `json:"tokens"`
	Logos []struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"logos"`
}

// Client calls the external optical recognition engine: raw image bytes
// in, recognized text tokens plus logo hints out.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new optical extraction client. timeout bounds every
// request; the engine quota is generous, so the limiter only smooths bursts.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		apiKey:      apiKey,
		rateLimiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

// SetDebug enables verbose request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// Extract submits image bytes and returns the raw extraction.
// 4xx responses mean the input itself is unreadable (ErrInvalidImage);
// network faults and 5xx degrade as ErrAdapterUnavailable/ErrAdapterTimeout.
func (c *Client) Extract(ctx context.Context, image []byte) (*domain.RawExtraction, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrInvalidImage)
	}

	reqURL := fmt.Sprintf("%s/v1/extract", c.baseURL)

	// Retry up to 3 times for transient failures
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, reqURL, image)
		if err != nil {
			if c.debug {
				log.Printf("[VISION] request error (attempt %d): %v", attempt, err)
			}
			lastErr = err
			if errors.Is(err, domain.ErrAdapterTimeout) || ctx.Err() != nil {
				return nil, lastErr
			}
			time.Sleep(exponentialBackoff(attempt))
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			var wire extractResponse
			if err := json.Unmarshal(body, &wire); err != nil {
				return nil, fmt.Errorf("%w: decode response: %v", domain.ErrAdapterUnavailable, err)
			}
			raw := mapExtraction(&wire)
			if c.debug {
				log.Printf("[VISION] extracted %d tokens, %d logos", len(raw.Tokens), len(raw.Logos))
			}
			return raw, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("%w: status %d", domain.ErrAdapterUnavailable, resp.StatusCode)
			time.Sleep(exponentialBackoff(attempt))

		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			// The engine rejected the image itself; retrying won't help.
			return nil, fmt.Errorf("%w: engine status %d", domain.ErrInvalidImage, resp.StatusCode)

		default:
			if c.debug {
				log.Printf("[VISION] engine error (attempt %d) - status: %d", attempt, resp.StatusCode)
			}
			lastErr = fmt.Errorf("%w: status %d", domain.ErrAdapterUnavailable, resp.StatusCode)
			time.Sleep(exponentialBackoff(attempt))
		}
	}

	return nil, lastErr
}

// doRequest executes the POST with proper headers and error taxonomy mapping
func (c *Client) doRequest(ctx context.Context, reqURL string, image []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("User-Agent", "CadVision/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

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

func mapExtraction(wire *extractResponse) *domain.RawExtraction {
	raw := &domain.RawExtraction{}
	for _, t := range wire.Tokens {
		raw.Tokens = append(raw.Tokens, domain.TextToken{
			Text:       t.Text,
			Confidence: t.Confidence,
			Line:       t.Line,
			Column:     t.Column,
		})
	}
	for _, l := range wire.Logos {
		raw.Logos = append(raw.Logos, domain.LogoHint{
			Label:      l.Label,
			Confidence: l.Confidence,
		})
	}
	return raw
}

// exponentialBackoff returns the wait before the next retry attempt
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(250*(1<<(attempt-1))) * time.Millisecond
}
