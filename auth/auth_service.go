package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/inventory-mgmt/invctl/internal/errors"
	"github.com/inventory-mgmt/invctl/internal/metrics"
	"github.com/inventory-mgmt/invctl/jwtmodel"
	"github.com/inventory-mgmt/invctl/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 15 * time.Second

// Service owns the mapping between credentials and the persisted session.
// It talks to the auth endpoints with its own HTTP client, never through the
// refreshing transport, so a failing auth call cannot trigger another refresh.
type Service struct {
	host    string
	repo    sessions.Repo
	client  *http.Client
	timeout time.Duration
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithHTTPClient replaces the client used for the auth endpoints.
func WithHTTPClient(client *http.Client) ServiceOption {
	return func(s *Service) {
		s.client = client
	}
}

// WithTimeout bounds each auth call.
func WithTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService returns a Service posting to host + jwtmodel paths and persisting to repo.
func NewService(host string, repo sessions.Repo, options ...ServiceOption) (*Service, error) {
	if strings.TrimSpace(host) == "" {
		return nil, errors.New("[NewService] host is required")
	}
	if repo == nil {
		return nil, errors.New("[NewService] session repo is required")
	}

	s := &Service{
		host:    strings.TrimRight(host, "/"),
		repo:    repo,
		client:  &http.Client{},
		timeout: defaultTimeout,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Login exchanges credentials for a token pair and persists the resulting
// session. Storage is left untouched on every failure.
func (s *Service) Login(ctx context.Context, username, password string) (sessions.SessionUser, error) {
	resp, err := s.post(ctx, jwtmodel.CreatePath, jwtmodel.TokenCreateRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return sessions.Anonymous(), errors.Wrapf(apperrors.ErrNetwork, "[Service.Login] %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest ||
		resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusForbidden:
		return sessions.Anonymous(), apiError(resp, apperrors.ErrInvalidCredentials)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return sessions.Anonymous(), apiError(resp, apperrors.ErrUnexpectedStatus)
	}

	pair, err := jwtmodel.Decode[jwtmodel.TokenPair](resp.Body)
	if err != nil {
		return sessions.Anonymous(), errors.Wrap(err, "[Service.Login] decode")
	}

	user := sessions.SessionUser{
		Username: username,
		LoggedIn: true,
		Access:   pair.Access,
		Refresh:  pair.Refresh,
	}
	if err := s.repo.Put(ctx, user); err != nil {
		return sessions.Anonymous(), errors.Wrap(err, "[Service.Login] repo.Put")
	}
	s.logger.Debug().Str("username", username).Msg("login succeeded")
	return user, nil
}

// Logout clears the persisted session. It never fails; storage errors are logged.
func (s *Service) Logout(ctx context.Context) {
	if err := s.repo.Delete(ctx); err != nil {
		s.logger.Err(err).Msg("Logout: failed to clear stored session")
		return
	}
	s.logger.Debug().Msg("session cleared")
}

// Refresh posts the stored refresh token and replaces the stored access
// token. Every failure matches ErrRefreshInvalid; the caller decides whether
// to log out.
func (s *Service) Refresh(ctx context.Context) (string, error) {
	access, err := s.refresh(ctx)
	s.metrics.Refreshed(err == nil)
	if err != nil {
		s.logger.Err(err).Msg("token refresh failed")
		return "", err
	}
	s.logger.Debug().Msg("access token refreshed")
	return access, nil
}

func (s *Service) refresh(ctx context.Context) (string, error) {
	refreshToken := s.RefreshToken(ctx)
	if refreshToken == "" {
		return "", errors.Wrap(apperrors.ErrRefreshInvalid, "[Service.Refresh] no refresh token stored")
	}

	resp, err := s.post(ctx, jwtmodel.RefreshPath, jwtmodel.RefreshRequest{Refresh: refreshToken})
	if err != nil {
		return "", fmt.Errorf("[Service.Refresh] %w: %w: %v", apperrors.ErrRefreshInvalid, apperrors.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apiError(resp, apperrors.ErrRefreshInvalid)
	}

	body, err := jwtmodel.Decode[jwtmodel.AccessResponse](resp.Body)
	if err != nil {
		return "", fmt.Errorf("[Service.Refresh] %w: %w", apperrors.ErrRefreshInvalid, err)
	}

	_, err = s.repo.Update(ctx, func(u *sessions.SessionUser) error {
		// A logout or a new login raced the refresh; do not resurrect or clobber it.
		if u.Refresh != refreshToken {
			return errors.Wrap(apperrors.ErrRefreshInvalid, "session changed during refresh")
		}
		u.Access = body.Access
		if body.Refresh != "" {
			u.Refresh = body.Refresh
		}
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "[Service.Refresh] repo.Update")
	}
	return body.Access, nil
}

// Session returns the stored session, anonymous when absent or unreadable.
func (s *Service) Session(ctx context.Context) sessions.SessionUser {
	user, err := s.repo.Get(ctx)
	if err != nil {
		s.logger.Err(err).Msg("Session: failed to read stored session")
		return sessions.Anonymous()
	}
	return user
}

// AccessToken returns the stored access token or "".
func (s *Service) AccessToken(ctx context.Context) string {
	return s.Session(ctx).Access
}

// RefreshToken returns the stored refresh token or "".
func (s *Service) RefreshToken(ctx context.Context) string {
	return s.Session(ctx).Refresh
}

func (s *Service) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+path, bytes.NewReader(data))
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := s.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose releases the request context once the body has been consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func apiError(resp *http.Response, kind error) error {
	body := map[string]any{}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	return &apperrors.APIError{StatusCode: resp.StatusCode, Body: body, Kind: kind}
}
