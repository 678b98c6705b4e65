// Package api is a small Go client for the profilebridge loopback API. The
// browser extension talks JSON over HTTP; this package gives scripts and
// tests the same access.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	EnvBridgeAddress = "PROFILEBRIDGE_ADDR"
	EnvBridgeToken   = "PROFILEBRIDGE_TOKEN"

	// DefaultAddress matches the server's default listener.
	DefaultAddress = "http://127.0.0.1:10999"

	apiTokenHeader = "X-API-Token"
)

// Config is used to configure the creation of the client.
type Config struct {
	// Address is the base URL of the bridge, e.g. "http://127.0.0.1:10999".
	Address string

	// Token authenticates every request except the health check.
	Token string

	// MaxRetries controls retrying on 5xx responses. Defaults to 2.
	MaxRetries int

	// Timeout bounds each request. Defaults to 30 seconds.
	Timeout time.Duration
}

// DefaultConfig builds a Config from the environment.
func DefaultConfig() *Config {
	config := &Config{
		Address:    DefaultAddress,
		MaxRetries: 2,
		Timeout:    30 * time.Second,
	}
	if addr := os.Getenv(EnvBridgeAddress); addr != "" {
		config.Address = addr
	}
	if token := os.Getenv(EnvBridgeToken); token != "" {
		config.Token = token
	}
	return config
}

// Client is the client to the profilebridge API.
type Client struct {
	addr   *url.URL
	token  string
	client *retryablehttp.Client
}

// NewClient returns a new client for the given configuration. A nil config
// is equivalent to DefaultConfig.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	addr, err := url.Parse(config.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", config.Address, err)
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = cleanhttp.DefaultPooledClient()
	client.HTTPClient.Timeout = config.Timeout
	client.RetryMax = config.MaxRetries
	client.Logger = nil

	return &Client{
		addr:   addr,
		token:  config.Token,
		client: client,
	}, nil
}

// SetToken changes the token used for subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Address returns the configured base URL.
func (c *Client) Address() string {
	return c.addr.String()
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody any) error {
	u := *c.addr
	u.Path = path

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set(apiTokenHeader, c.token)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return newResponseError(resp.StatusCode, data)
	}
	if respBody == nil {
		return nil
	}
	return json.Unmarshal(data, respBody)
}

// ResponseError carries the status code and server-reported errors of a
// non-200 response.
type ResponseError struct {
	StatusCode int
	Errors     []string
}

func (e *ResponseError) Error() string {
	if len(e.Errors) > 0 {
		return "status " + strconv.Itoa(e.StatusCode) + ": " + e.Errors[0]
	}
	return "status " + strconv.Itoa(e.StatusCode)
}

func newResponseError(status int, body []byte) *ResponseError {
	respErr := &ResponseError{StatusCode: status}
	var parsed struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		respErr.Errors = parsed.Errors
	}
	return respErr
}
