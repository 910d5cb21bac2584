// Package api provides a client for the tcagent command server.
package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/tidwall/gjson"
)

// Client talks to a command server over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     clientConfig
}

// CommandError is a failure reported by the server.
type CommandError struct {
	StatusCode int
	Message    string
}

func (e *CommandError) Error() string {
	return e.Message
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	timeout       time.Duration
	readyAttempts uint
	retryDelay    time.Duration
	httpClient    *http.Client
}

// WithTimeout bounds each request except the event stream.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithReadyAttempts sets how many times WaitReady polls the server.
func WithReadyAttempts(n uint) ClientOption {
	return func(c *clientConfig) {
		c.readyAttempts = n
	}
}

// WithRetryDelay sets the base delay between WaitReady polls.
func WithRetryDelay(delay time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.retryDelay = delay
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its Timeout should be zero so
// event streams are not cut off.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// NewClient returns a client for the server at addr, either host:port or a URL.
func NewClient(addr string, opts ...ClientOption) (*Client, error) {
	config := clientConfig{
		timeout:       15 * time.Second,
		readyAttempts: 10,
		retryDelay:    100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&config)
	}

	if addr == "" {
		return nil, fmt.Errorf("server address is required")
	}
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}

	hc := config.httpClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		httpClient: hc,
		baseURL:    strings.TrimSuffix(addr, "/"),
		config:     config,
	}, nil
}

// Invoke runs a command by name and returns the "result" member of the response.
func (c *Client) Invoke(ctx context.Context, name string, args any) (gjson.Result, error) {
	if args == nil {
		args = map[string]any{}
	}
	body, err := json.Marshal(args)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to marshal args: %w", err)
	}
	rsp, err := c.do(ctx, http.MethodPost, "/commands/"+name, body)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.GetBytes(rsp, "result"), nil
}

func (c *Client) LoadConfig(ctx context.Context) (*Config, error) {
	res, err := c.Invoke(ctx, "load_config", nil)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal([]byte(res.Raw), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

func (c *Client) StoreConfig(ctx context.Context, cfg Config) error {
	_, err := c.Invoke(ctx, "store_config", map[string]any{"config": cfg})
	return err
}

// WriteMCPConfig returns the path of the written descriptor.
func (c *Client) WriteMCPConfig(ctx context.Context, token, apiURL string) (string, error) {
	res, err := c.Invoke(ctx, "write_mcp_config", map[string]any{"token": token, "apiUrl": apiURL})
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

func (c *Client) StartSidecar(ctx context.Context, token, apiURL string) error {
	_, err := c.Invoke(ctx, "start_sidecar", map[string]any{"token": token, "apiUrl": apiURL})
	return err
}

func (c *Client) StopSidecar(ctx context.Context) error {
	_, err := c.Invoke(ctx, "stop_sidecar", nil)
	return err
}

func (c *Client) SidecarStatus(ctx context.Context) (bool, error) {
	res, err := c.Invoke(ctx, "sidecar_status", nil)
	if err != nil {
		return false, err
	}
	return res.Bool(), nil
}

func (c *Client) ConfigPath(ctx context.Context) (string, error) {
	res, err := c.Invoke(ctx, "get_config_path", nil)
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	rsp, err := c.do(ctx, http.MethodGet, "/version", nil)
	if err != nil {
		return nil, err
	}
	var v VersionInfo
	if err := json.Unmarshal(rsp, &v); err != nil {
		return nil, fmt.Errorf("failed to decode version: %w", err)
	}
	return &v, nil
}

// WaitReady polls /ready with backoff until the server answers or attempts run out.
func (c *Client) WaitReady(ctx context.Context) error {
	return retry.Do(func() error {
		_, err := c.do(ctx, http.MethodGet, "/ready", nil)
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return retry.Unrecoverable(err)
		}
		return err
	},
		retry.Context(ctx),
		retry.Attempts(c.config.readyAttempts),
		retry.Delay(c.config.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// Events streams events until ctx is done, the server closes the stream or fn returns
// an error. An empty name subscribes to every event. io.EOF from fn ends the stream
// without error.
func (c *Client) Events(ctx context.Context, name string, fn func(Event) error) error {
	path := "/events"
	if name != "" {
		path += "?event=" + name
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(apiVersionHeader, APIVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return fmt.Errorf("failed to decode event: %w", err)
		}
		if err := fn(ev); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if c.config.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(apiVersionHeader, APIVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}

func responseError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	msg := gjson.GetBytes(data, "error").String()
	if msg == "" {
		msg = strings.TrimSpace(string(data))
	}
	if msg == "" {
		msg = resp.Status
	}
	return &CommandError{StatusCode: resp.StatusCode, Message: msg}
}
