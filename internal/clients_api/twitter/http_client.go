package twitter

// HTTP client for the Twitter v1.1 REST API
// Requests are signed with OAuth 1.0a user context credentials
// GETs go through the common retry module and a small rate limiter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"readme-image/internal/infra/log"
	"readme-image/internal/infra/retry"

	"github.com/dghubble/oauth1"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the v1.1 REST API root.
const DefaultBaseURL = "https://api.twitter.com/1.1"

// ErrMissingCredentials is returned when any of the four OAuth values is empty.
var ErrMissingCredentials = errors.New("twitter credentials are incomplete")

// Credentials are the consumer key pair and the user access token pair.
type Credentials struct {
	APIKey            string
	APISecretKey      string
	AccessToken       string
	AccessTokenSecret string
}

// Complete reports whether every credential is set.
func (c Credentials) Complete() bool {
	return c.APIKey != "" && c.APISecretKey != "" && c.AccessToken != "" && c.AccessTokenSecret != ""
}

// Options tunes the client. HTTPClient replaces the OAuth-signing client (tests).
type Options struct {
	BaseURL         string
	Timeout         time.Duration
	MaxRetries      int
	MaxResponseSize int64
	HTTPClient      *http.Client
}

// Client reads user timelines.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	rateLimiter     *rate.Limiter
	retry           retry.Options
	maxResponseSize int64
}

// NewClient builds an OAuth 1.0a signing client.
func NewClient(creds Credentials, opts Options) (*Client, error) {
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
		if !creds.Complete() {
			return nil, ErrMissingCredentials
		}
		config := oauth1.NewConfig(creds.APIKey, creds.APISecretKey)
		token := oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)
		base := context.WithValue(context.Background(), oauth1.HTTPClient, &http.Client{Timeout: opts.Timeout})
		httpClient = config.Client(base, token)
	}

	return &Client{
		baseURL:     opts.BaseURL,
		httpClient:  httpClient,
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 3),
		retry: retry.Options{
			MaxRetries: opts.MaxRetries,
			BaseDelay:  500 * time.Millisecond,
			MaxDelay:   15 * time.Second,
			OnRetry: func(attempt int, err error, sleep time.Duration) {
				log.LogWarn("Retrying Twitter request",
					zap.Int("attempt", attempt+1),
					zap.Duration("sleep", sleep),
					zap.Error(err))
			},
		},
		maxResponseSize: opts.MaxResponseSize,
	}, nil
}

func (c *Client) doGET(ctx context.Context, endpoint string) ([]byte, error) {
	requestID := log.GenerateRequestID()

	var respBody []byte
	err := retry.Do(ctx, c.retry, func() error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}

		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		log.LogRequest(requestID, http.MethodGet, endpoint)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.LogResponse(requestID, 0, time.Since(start).Milliseconds(), zap.String("endpoint", endpoint), zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
		if err != nil {
			return err
		}

		log.LogResponse(requestID, resp.StatusCode, time.Since(start).Milliseconds(), zap.String("endpoint", endpoint))

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &retry.HTTPError{
				StatusCode: resp.StatusCode,
				Body:       body,
				RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}
		respBody = body
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("twitter GET failed: %w", err)
	}
	return respBody, nil
}
