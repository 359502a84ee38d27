// Package rest implements the remote store gateway against a hosted
// table-and-auth service speaking the PostgREST row protocol.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/oakline/storefront-core/pkg/config"
)

const (
	restPrefix                 = "/rest/v1"
	authPrefix                 = "/auth/v1"
	errorBodyReadLimit   int64 = 2048
	defaultTimeout             = 10 * time.Second
	defaultRetryBackoff        = 250 * time.Millisecond
	defaultSessionLeeway       = 30 * time.Second
)

var errBaseURLRequired = errors.New("gateway base url is required")

// Client talks to the hosted remote store. It is safe for concurrent use.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	anonKey       string
	jwtSecret     []byte
	readRetries   uint64
	retryBackoff  time.Duration
	sessionLeeway time.Duration
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New builds a gateway client from configuration.
func New(cfg config.GatewayConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	leeway := cfg.SessionLeeway
	if leeway <= 0 {
		leeway = defaultSessionLeeway
	}

	client := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		anonKey:       strings.TrimSpace(cfg.AnonKey),
		jwtSecret:     []byte(cfg.JWTSecret),
		readRetries:   cfg.ReadRetries,
		retryBackoff:  backoff,
		sessionLeeway: leeway,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func (c *Client) restURL(table, query string) string {
	u := c.baseURL + restPrefix + "/" + table
	if query != "" {
		u += "?" + query
	}
	return u
}

func (c *Client) authURL(path string) string {
	return c.baseURL + authPrefix + path
}

// statusError distinguishes transport-level failures by status code so the
// retry policy can tell transient remote trouble from rejections.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("remote store returned status %d", e.status)
	}
	return fmt.Sprintf("remote store returned status %d: %s", e.status, e.body)
}

func (e *statusError) transient() bool {
	return e.status >= http.StatusInternalServerError || e.status == http.StatusTooManyRequests
}

// do executes one request and decodes a JSON response into out when out is
// non-nil. Callers own retry policy.
func (c *Client) do(ctx context.Context, method, url string, body any, headers map[string]string, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// doRead wraps do with the transient-failure retry policy used for loads.
func (c *Client) doRead(ctx context.Context, url string, out any) error {
	backoff := retry.WithMaxRetries(c.readRetries, retry.NewConstant(c.retryBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.do(ctx, http.MethodGet, url, nil, nil, out)
		if err == nil {
			return nil
		}
		var se *statusError
		if errors.As(err, &se) && !se.transient() {
			return err
		}
		return retry.RetryableError(err)
	})
}
