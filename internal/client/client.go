// Package client is a small HTTP client for the spook API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ekobres/spook/pkg/version"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx answer decoded from the error envelope
type APIError struct {
	StatusCode int         `json:"code"`
	Message    string      `json:"error"`
	RequestID  string      `json:"request_id,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%d %s", e.StatusCode, e.Message)
	if details, ok := e.Details.(map[string]interface{}); ok {
		if detail, ok := details["message"].(string); ok && detail != "" {
			msg += ": " + detail
		}
	}
	return msg
}

// Envelope is the success envelope of every JSON endpoint
type Envelope struct {
	Success bool                   `json:"success"`
	Data    json.RawMessage        `json:"data"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

// Option configures a Client
type Option func(*Client)

// WithToken sends token as a bearer credential
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client talks to one spook server
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListResult is the data of list_filtered_entities. Entities are kept raw:
// each is either an entity id string or an object of projected columns.
type ListResult struct {
	Count    int               `json:"count"`
	Entities []json.RawMessage `json:"entities"`
}

type HiddenResult struct {
	Count    int      `json:"count"`
	Entities []string `json:"entities"`
}

// SelectOption is one selector choice
type SelectOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ListFilteredEntities calls list_filtered_entities with data as the filter
func (c *Client) ListFilteredEntities(ctx context.Context, data map[string]interface{}) (*ListResult, *Envelope, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	var result ListResult
	env, err := c.call(ctx, http.MethodPost, "/api/v1/services/list_filtered_entities", data, &result)
	if err != nil {
		return nil, nil, err
	}
	return &result, env, nil
}

func (c *Client) ListHiddenEntities(ctx context.Context) (*HiddenResult, *Envelope, error) {
	var result HiddenResult
	env, err := c.call(ctx, http.MethodPost, "/api/v1/services/list_hidden_entities", nil, &result)
	if err != nil {
		return nil, nil, err
	}
	return &result, env, nil
}

// Fields returns the list_filtered_entities field schema
func (c *Client) Fields(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if _, err := c.call(ctx, http.MethodGet, "/api/v1/services/list_filtered_entities/fields", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// FieldsYAML returns the field schema as a services.yaml document
func (c *Client) FieldsYAML(ctx context.Context) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/v1/services/list_filtered_entities/fields?format=yaml", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeError(resp.StatusCode, body)
	}
	return body, nil
}

func (c *Client) Options(ctx context.Context, kind string) ([]SelectOption, error) {
	var opts []SelectOption
	if _, err := c.call(ctx, http.MethodGet, "/api/v1/options/"+url.PathEscape(kind), nil, &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

func (c *Client) RegistryStatus(ctx context.Context) (map[string]interface{}, error) {
	var status map[string]interface{}
	if _, err := c.call(ctx, http.MethodGet, "/api/v1/registry/status", nil, &status); err != nil {
		return nil, err
	}
	return status, nil
}

// Refresh queues a registry reload on the server
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodPost, "/api/v1/registry/refresh", nil, nil)
	return err
}

// RecentCalls lists served calls, newest first
func (c *Client) RecentCalls(ctx context.Context, limit int) ([]map[string]interface{}, error) {
	path := "/api/v1/calls"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var calls []map[string]interface{}
	if _, err := c.call(ctx, http.MethodGet, path, nil, &calls); err != nil {
		return nil, err
	}
	return calls, nil
}

func (c *Client) Version(ctx context.Context) (map[string]interface{}, error) {
	var info map[string]interface{}
	if _, err := c.call(ctx, http.MethodGet, "/api/v1/version", nil, &info); err != nil {
		return nil, err
	}
	return info, nil
}

// call sends a request and decodes the envelope data into out when out is
// not nil.
func (c *Client) call(ctx context.Context, method, path string, body interface{}, out interface{}) (*Envelope, error) {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeError(resp.StatusCode, raw)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return &env, nil
}

func (c *Client) send(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	return resp, nil
}

func decodeError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	apiErr.StatusCode = status
	return apiErr
}
