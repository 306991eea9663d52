package apiclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/inventory-mgmt/invctl/internal/metrics"
	"github.com/inventory-mgmt/invctl/jwtmodel"
	"github.com/inventory-mgmt/invctl/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const refreshFlightKey = "refresh"

// Authenticator is the part of the auth service the transport needs.
type Authenticator interface {
	Session(ctx context.Context) sessions.SessionUser
	Refresh(ctx context.Context) (string, error)
	Logout(ctx context.Context)
}

// SessionObserver is told about session changes made by the transport so an
// application store can mirror them.
type SessionObserver interface {
	AccessTokenRefreshed(access string)
	LoggedOut(ctx context.Context, reason string)
}

// Transport is an http.RoundTripper that authorises requests with the stored
// access token and recovers from a 401 by refreshing once and retrying once.
//
// Per dispatch: Initial -> Failed(401) -> Refreshing -> Retried | LoggedOut.
// Concurrent 401s share a single in-flight refresh.
type Transport struct {
	base           http.RoundTripper
	auth           Authenticator
	observer       SessionObserver
	proactive      bool
	refreshTimeout time.Duration
	flight         singleflight.Group
	logger         zerolog.Logger
	metrics        *metrics.Metrics
}

type TransportOption func(*Transport)

// WithBase sets the underlying RoundTripper. Defaults to http.DefaultTransport.
func WithBase(base http.RoundTripper) TransportOption {
	return func(t *Transport) {
		t.base = base
	}
}

// WithObserver routes token updates and logouts through o instead of the
// Authenticator alone.
func WithObserver(o SessionObserver) TransportOption {
	return func(t *Transport) {
		t.observer = o
	}
}

// WithProactiveRefresh refreshes before sending when the stored access
// token's exp has already passed.
func WithProactiveRefresh(enabled bool) TransportOption {
	return func(t *Transport) {
		t.proactive = enabled
	}
}

// WithRefreshTimeout bounds the shared refresh call.
func WithRefreshTimeout(d time.Duration) TransportOption {
	return func(t *Transport) {
		if d > 0 {
			t.refreshTimeout = d
		}
	}
}

func WithTransportLogger(logger zerolog.Logger) TransportOption {
	return func(t *Transport) {
		t.logger = logger
	}
}

func WithTransportMetrics(m *metrics.Metrics) TransportOption {
	return func(t *Transport) {
		t.metrics = m
	}
}

func NewTransport(auth Authenticator, options ...TransportOption) *Transport {
	t := &Transport{
		base:           http.DefaultTransport,
		auth:           auth,
		refreshTimeout: 15 * time.Second,
		logger:         log.Logger,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// dispatch tracks one original request through the pipeline. The refresh
// budget lives here, not on the request.
type dispatch struct {
	req       *http.Request
	body      []byte
	refreshed bool
	loggedOut bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	d := &dispatch{req: req}
	if req.Body != nil && req.Body != http.NoBody {
		body, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, errors.Wrap(err, "[Transport.RoundTrip] read body")
		}
		d.body = body
	}

	ctx := req.Context()
	authPath := jwtmodel.IsAuthPath(req.URL.Path)
	access := t.auth.Session(ctx).Access

	if t.proactive && !authPath && expired(access) {
		fresh, ok := t.refreshOrLogout(ctx, d, access)
		if !ok && !d.loggedOut {
			return nil, ctx.Err()
		}
		access = fresh
	}

	resp, err := t.send(d, access)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || authPath {
		return resp, nil
	}

	if d.refreshed {
		t.logout(ctx, d, metrics.ReasonRetryUnauthorized)
		return resp, nil
	}

	fresh, ok := t.refreshOrLogout(ctx, d, access)
	if !ok {
		return resp, nil
	}
	drain(resp)

	t.metrics.Retried()
	t.logger.Debug().Str("method", req.Method).Str("path", req.URL.Path).Msg("retrying after token refresh")
	retry, err := t.send(d, fresh)
	if err != nil {
		return nil, err
	}
	if retry.StatusCode == http.StatusUnauthorized {
		t.logout(ctx, d, metrics.ReasonRetryUnauthorized)
	}
	return retry, nil
}

// refreshOrLogout spends the dispatch's single refresh attempt. It reports
// false when no token is available, after logging out unless the caller's
// own context ended first.
func (t *Transport) refreshOrLogout(ctx context.Context, d *dispatch, sent string) (string, bool) {
	d.refreshed = true
	access, err := t.refresh(ctx, sent)
	if err == nil {
		return access, true
	}
	if ctx.Err() != nil {
		t.logger.Debug().Err(err).Str("path", d.req.URL.Path).Msg("caller gave up while waiting for refresh")
		return "", false
	}
	t.logger.Err(err).Str("path", d.req.URL.Path).Msg("refresh failed, logging out")
	t.logout(ctx, d, metrics.ReasonRefreshFailed)
	return "", false
}

// refresh returns a usable access token. Callers that sent a token which has
// since been replaced get the replacement without another refresh call.
func (t *Transport) refresh(ctx context.Context, sent string) (string, error) {
	ch := t.flight.DoChan(refreshFlightKey, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.refreshTimeout)
		defer cancel()

		if current := t.auth.Session(rctx).Access; current != "" && current != sent {
			return current, nil
		}
		access, err := t.auth.Refresh(rctx)
		if err != nil {
			return "", err
		}
		if t.observer != nil {
			t.observer.AccessTokenRefreshed(access)
		}
		return access, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			t.metrics.SharedRefresh()
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (t *Transport) logout(ctx context.Context, d *dispatch, reason string) {
	if d.loggedOut {
		return
	}
	d.loggedOut = true
	t.metrics.LoggedOut(reason)
	if t.observer != nil {
		t.observer.LoggedOut(ctx, reason)
		return
	}
	t.auth.Logout(ctx)
}

// send issues a copy of the original request authorised with access.
func (t *Transport) send(d *dispatch, access string) (*http.Response, error) {
	out := d.req.Clone(d.req.Context())
	if d.body != nil {
		body := d.body
		out.Body = io.NopCloser(bytes.NewReader(body))
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		out.ContentLength = int64(len(body))
	}
	if access != "" {
		tok := &oauth2.Token{AccessToken: access, TokenType: sessions.TokenType}
		tok.SetAuthHeader(out)
	}
	return t.base.RoundTrip(out)
}

func expired(access string) bool {
	if access == "" {
		return false
	}
	tok := sessions.SessionUser{Access: access}.OAuth2Token()
	return !tok.Expiry.IsZero() && !tok.Valid()
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
