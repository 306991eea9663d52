// Package apiclient sends JSON requests to the inventory API through a
// transport that keeps the session's access token fresh.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/inventory-mgmt/invctl/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 64 << 10
)

// Client is the configured request sender: base URL, default headers and a
// per-request timeout.
type Client struct {
	baseURL string
	http    *http.Client
	headers http.Header
	timeout time.Duration
	logger  zerolog.Logger
}

type Option func(*Client)

// WithHeader adds a default header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithRequestTimeout bounds every request, retries included.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New returns a Client rooted at baseURL. A nil transport uses http.DefaultTransport.
func New(baseURL string, transport http.RoundTripper, options ...Option) *Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: transport},
		headers: http.Header{},
		timeout: defaultTimeout,
		logger:  log.Logger,
	}
	c.headers.Set("Content-Type", "application/json")
	c.headers.Set("Accept", "application/json")
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPClient exposes the underlying client for callers that need raw access.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// URL joins path (relative to the base URL) and query.
func (c *Client) URL(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Do sends a JSON request and decodes a 2xx response into out (which may be nil).
// Non-2xx responses become *errors.APIError matching ErrUnauthorized,
// ErrValidation, ErrNotFound or ErrUnexpectedStatus; transport failures match ErrNetwork.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Client.Do] encode body")
		}
		reader = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path, query), reader)
	if err != nil {
		return errors.Wrap(err, "[Client.Do] new request")
	}
	for k, v := range c.headers {
		req.Header[k] = append([]string(nil), v...)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(apperrors.ErrNetwork, "[Client.Do] %s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(apperrors.ErrResponseSchema, "[Client.Do] decode %s %s: %v", method, path, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	kind := apperrors.ErrUnexpectedStatus
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		kind = apperrors.ErrUnauthorized
	case http.StatusBadRequest:
		kind = apperrors.ErrValidation
	case http.StatusNotFound:
		kind = apperrors.ErrNotFound
	}
	body := map[string]any{}
	_ = json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&body)
	return &apperrors.APIError{StatusCode: resp.StatusCode, Body: body, Kind: kind}
}
