// Package dlclient is an HTTP client for the devlog server API. It backs
// the terminal panel's forwarding toggle and the MCP bridge.
package dlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/txn2/devlog/pkg/dlapi/types"
	"github.com/txn2/devlog/pkg/dlevent"
)

// DefaultTimeout bounds every request
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API returned status %d: %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server
func IsNotFound(err error) bool {
	apiErr, ok := errors.Cause(err).(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// HTTPClient wraps http.Client with base URL
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient creates a new HTTP client for the devlog API. baseURL is
// the server root, e.g. http://127.0.0.1:8000.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the server root
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// envelope is the response wrapper with data left raw
type envelope struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Error   *types.ErrorInfo `json:"error"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "HTTP request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var env envelope
		if json.Unmarshal(data, &env) == nil && env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}

// call performs a request against a wrapped endpoint and decodes its data
func (c *HTTPClient) call(ctx context.Context, method, path string, body, data interface{}) error {
	var env envelope
	if err := c.do(ctx, method, path, body, &env); err != nil {
		return err
	}
	if !env.Success {
		msg := "request was not successful"
		if env.Error != nil {
			msg = env.Error.Message
		}
		return errors.New(msg)
	}
	if data == nil || len(env.Data) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(env.Data, data), "failed to decode data")
}

// ListChannels returns every channel
func (c *HTTPClient) ListChannels(ctx context.Context) ([]types.ChannelResponse, error) {
	var list types.ChannelListResponse
	if err := c.call(ctx, http.MethodGet, "/api/channels", nil, &list); err != nil {
		return nil, err
	}
	return list.Channels, nil
}

// GetChannel returns one channel
func (c *HTTPClient) GetChannel(ctx context.Context, id string) (types.ChannelResponse, error) {
	var ch types.ChannelResponse
	err := c.call(ctx, http.MethodGet, "/api/channels/"+url.PathEscape(id), nil, &ch)
	return ch, err
}

// UpdateForwarding sets the forwarding flag and returns the stored channel
func (c *HTTPClient) UpdateForwarding(ctx context.Context, id string, forwarding bool) (types.ChannelResponse, error) {
	var ch types.ChannelResponse
	body := types.ForwardingRequest{IsForwarding: &forwarding}
	err := c.call(ctx, http.MethodPost, "/api/channels/"+url.PathEscape(id)+"/forwarding", body, &ch)
	return ch, err
}

// SetForwarding sets the forwarding flag. Any non-2xx answer is an error.
func (c *HTTPClient) SetForwarding(ctx context.Context, id string, forwarding bool) error {
	_, err := c.UpdateForwarding(ctx, id, forwarding)
	return err
}

// RecentLogs returns up to count recent server log events, oldest first
func (c *HTTPClient) RecentLogs(ctx context.Context, count int) ([]dlevent.LogEvent, error) {
	var logs types.LogsResponse
	path := fmt.Sprintf("/api/logs?count=%d", count)
	if err := c.call(ctx, http.MethodGet, path, nil, &logs); err != nil {
		return nil, err
	}
	return logs.Logs, nil
}

// ClearLogs empties the server history and returns how many events were removed
func (c *HTTPClient) ClearLogs(ctx context.Context) (int, error) {
	var cleared types.ClearResponse
	err := c.call(ctx, http.MethodDelete, "/api/logs", nil, &cleared)
	return cleared.Removed, err
}

// Health returns the server health. The health endpoint is not wrapped.
func (c *HTTPClient) Health(ctx context.Context) (types.HealthResponse, error) {
	var health types.HealthResponse
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &health)
	return health, err
}
