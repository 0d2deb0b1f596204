package wakatime

// HTTP transport for the WakaTime API
// Authenticates with HTTP Basic (base64 of the API key), rate limits, retries 429/5xx
// and trips a circuit breaker on repeated failures

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"readme-image/internal/infra/log"
	"readme-image/internal/infra/retry"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public WakaTime API.
	DefaultBaseURL = "https://wakatime.com/api/v1"

	userAgent = "readme-image (+https://github.com)"
)

// ErrMissingAPIKey is returned before any request when no key is configured.
var ErrMissingAPIKey = errors.New("wakatime api key is not set")

// Options tunes the client. Zero values take defaults.
type Options struct {
	BaseURL         string
	Timeout         time.Duration
	MaxRetries      int
	MaxResponseSize int64
	HTTPClient      *http.Client
}

// Client talks to the WakaTime REST API.
type Client struct {
	baseURL         string
	apiKey          string
	httpClient      *http.Client
	rateLimiter     *rate.Limiter
	circuitBreaker  *gobreaker.CircuitBreaker
	retry           retry.Options
	maxResponseSize int64
}

// NewClient builds a client for apiKey.
func NewClient(apiKey string, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxResponseSize <= 0 {
		opts.MaxResponseSize = 10 * 1024 * 1024
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		baseURL:    opts.BaseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		// WakaTime allows roughly 10 requests per second per key
		rateLimiter: rate.NewLimiter(rate.Limit(5), 5),
		circuitBreaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "WakaTimeAPI",
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}),
		retry: retry.Options{
			MaxRetries: opts.MaxRetries,
			BaseDelay:  300 * time.Millisecond,
			MaxDelay:   5 * time.Second,
			OnRetry: func(attempt int, err error, sleep time.Duration) {
				log.LogWarn("Retrying WakaTime request",
					zap.Int("attempt", attempt+1),
					zap.Duration("sleep", sleep),
					zap.Error(err))
			},
		},
		maxResponseSize: opts.MaxResponseSize,
	}
}

// MakeRequest performs a GET against endpoint (path relative to the base URL).
func (c *Client) MakeRequest(ctx context.Context, endpoint string) ([]byte, int, error) {
	if c.apiKey == "" {
		return nil, 0, ErrMissingAPIKey
	}

	requestID := log.GenerateRequestID()
	startTime := time.Now()

	var body []byte
	var status int
	err := retry.Do(ctx, c.retry, func() error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
		_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			b, s, err := c.do(ctx, requestID, endpoint)
			if err != nil {
				return nil, err
			}
			body, status = b, s
			return nil, nil
		})
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	log.RequestLogger(requestID).Debug("WakaTime request finished",
		zap.Int64("duration_ms", time.Since(startTime).Milliseconds()))
	return body, status, nil
}

func (c *Client) do(ctx context.Context, requestID, endpoint string) ([]byte, int, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.apiKey)))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	log.LogRequest(requestID, http.MethodGet, endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.LogResponse(requestID, 0, time.Since(start).Milliseconds(), zap.String("endpoint", endpoint), zap.Error(err))
		return nil, 0, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	if err != nil {
		log.LogResponse(requestID, resp.StatusCode, time.Since(start).Milliseconds(), zap.String("endpoint", endpoint), zap.Error(err))
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	log.LogResponse(requestID, resp.StatusCode, time.Since(start).Milliseconds(), zap.String("endpoint", endpoint))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       body,
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return body, resp.StatusCode, nil
}
