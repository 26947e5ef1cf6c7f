package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ekobres/spook/pkg/version"
	"github.com/sirupsen/logrus"
)

// RESTClient covers the REST endpoints used beside the WebSocket session
type RESTClient interface {
	GetConfig(ctx context.Context) (*HAConfig, error)
}

type restClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logrus.Logger

	maxRetries    int
	retryDelay    time.Duration
	maxRetryDelay time.Duration
}

// NewRESTClient creates a REST client that retries 5xx answers and
// transport failures with exponential backoff.
func NewRESTClient(baseURL, token string, requestTimeout time.Duration, logger *logrus.Logger) RESTClient {
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	return &restClient{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		token:         token,
		httpClient:    &http.Client{Timeout: requestTimeout},
		logger:        logger,
		maxRetries:    3,
		retryDelay:    time.Second,
		maxRetryDelay: 10 * time.Second,
	}
}

// GetConfig reads /api/config, which also proves the token is accepted
func (c *restClient) GetConfig(ctx context.Context) (*HAConfig, error) {
	var config HAConfig
	if err := c.getJSON(ctx, "/api/config", &config); err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"version":  config.Version,
		"timezone": config.TimeZone,
	}).Debug("Retrieved Home Assistant configuration")

	return &config, nil
}

func (c *restClient) getJSON(ctx context.Context, path string, out interface{}) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, path, err)
	}
	return nil
}

// get retries until an attempt succeeds, fails permanently or ctx ends
func (c *restClient) get(ctx context.Context, path string) ([]byte, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries+1; attempt++ {
		body, retryAfter, err := c.attempt(ctx, path)
		if err == nil {
			return body, nil
		}
		if retryAfter < 0 {
			return nil, err
		}
		lastErr = err

		if attempt > c.maxRetries {
			break
		}

		wait := max(delay, retryAfter)
		c.logger.WithError(err).WithFields(logrus.Fields{
			"path":     path,
			"attempt":  attempt,
			"retry_in": wait,
		}).Warn("Home Assistant REST request failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		delay = min(delay*2, c.maxRetryDelay)
	}

	return nil, lastErr
}

// attempt performs one request. A negative retryAfter marks the error as
// permanent.
func (c *restClient) attempt(ctx context.Context, path string) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, -1, NewHAError(0, "Failed to create request", map[string]interface{}{"error": err.Error()})
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, -1, ctx.Err()
		}
		return nil, 0, NewHAError(0, "HTTP request failed", map[string]interface{}{"error": err.Error()})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, NewHAError(resp.StatusCode, "Failed to read response body", map[string]interface{}{"error": err.Error()})
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, 0, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, -1, ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, 5 * time.Second, NewHAError(resp.StatusCode, "Rate limited", nil)
	case resp.StatusCode >= 500:
		return nil, 0, NewHAError(resp.StatusCode, "Server error", map[string]interface{}{"response": string(body)})
	default:
		return nil, -1, NewHAError(resp.StatusCode, "Client error", map[string]interface{}{"response": string(body)})
	}
}
