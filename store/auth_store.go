// Package store holds the application's auth state. Mutations are pure
// functions over State; actions do the I/O and then commit a mutation.
package store

import (
	"context"
	"sync"

	"github.com/inventory-mgmt/invctl/apiclient"
	"github.com/inventory-mgmt/invctl/internal/metrics"
	"github.com/inventory-mgmt/invctl/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AuthService is the part of auth.Service the store drives.
type AuthService interface {
	Login(ctx context.Context, username, password string) (sessions.SessionUser, error)
	Logout(ctx context.Context)
	Session(ctx context.Context) sessions.SessionUser
}

// State is the auth slice.
type State struct {
	AuthUser sessions.SessionUser
}

// Mutation replaces State. It must not do I/O.
type Mutation func(State) State

func LoginSuccess(user sessions.SessionUser) Mutation {
	return func(State) State {
		return State{AuthUser: user}
	}
}

func LoginFailure() Mutation {
	return func(State) State {
		return State{AuthUser: sessions.Anonymous()}
	}
}

func Logout() Mutation {
	return func(State) State {
		return State{AuthUser: sessions.Anonymous()}
	}
}

// SetAccessToken marks the user logged in with a fresh access token.
func SetAccessToken(access string) Mutation {
	return func(s State) State {
		s.AuthUser.LoggedIn = true
		s.AuthUser.Access = access
		return s
	}
}

var _ apiclient.SessionObserver = (*AuthStore)(nil)

type AuthStore struct {
	service AuthService
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu          sync.RWMutex
	state       State
	subscribers map[int]func(State)
	nextSubID   int
}

type Option func(*AuthStore)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *AuthStore) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *AuthStore) {
		s.metrics = m
	}
}

// NewAuthStore builds the store from whatever session is persisted.
func NewAuthStore(ctx context.Context, service AuthService, options ...Option) *AuthStore {
	s := &AuthStore{
		service:     service,
		logger:      log.Logger,
		subscribers: make(map[int]func(State)),
	}
	for _, opt := range options {
		opt(s)
	}

	user := service.Session(ctx)
	if err := user.Validate(); err != nil {
		s.logger.Err(err).Msg("NewAuthStore: stored session rejected")
		user = sessions.Anonymous()
	}
	s.state = State{AuthUser: user}
	return s
}

// State returns a copy of the current state.
func (s *AuthStore) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *AuthStore) IsLoggedIn() bool {
	return s.State().AuthUser.LoggedIn
}

// Subscribe registers fn to be called after every commit. The returned func
// removes it.
func (s *AuthStore) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Commit applies m and notifies subscribers. A mutation that would leave a
// logged-in user without an access token is rejected.
func (s *AuthStore) Commit(m Mutation) error {
	s.mu.Lock()
	next := m(s.state)
	if err := next.AuthUser.Validate(); err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "[AuthStore.Commit]")
	}
	s.state = next
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return nil
}

// Login delegates to the auth service and commits the outcome.
func (s *AuthStore) Login(ctx context.Context, username, password string) (sessions.SessionUser, error) {
	user, err := s.service.Login(ctx, username, password)
	if err != nil {
		if cerr := s.Commit(LoginFailure()); cerr != nil {
			s.logger.Err(cerr).Msg("Login: commit failure")
		}
		return sessions.Anonymous(), err
	}
	if err := s.Commit(LoginSuccess(user)); err != nil {
		return sessions.Anonymous(), err
	}
	return user, nil
}

// Logout clears storage and state.
func (s *AuthStore) Logout(ctx context.Context) {
	s.LoggedOut(ctx, metrics.ReasonUser)
}

// SetAccessToken commits a token minted outside the store.
func (s *AuthStore) SetAccessToken(access string) error {
	return s.Commit(SetAccessToken(access))
}

// AccessTokenRefreshed is called by the transport after a successful refresh.
func (s *AuthStore) AccessTokenRefreshed(access string) {
	if err := s.SetAccessToken(access); err != nil {
		s.logger.Err(err).Msg("AccessTokenRefreshed: commit")
	}
}

// LoggedOut is called by the transport when the session can no longer be
// refreshed, and by Logout for user-initiated logouts.
func (s *AuthStore) LoggedOut(ctx context.Context, reason string) {
	s.service.Logout(ctx)
	if reason == metrics.ReasonUser {
		s.metrics.LoggedOut(reason)
	}
	if err := s.Commit(Logout()); err != nil {
		s.logger.Err(err).Msg("LoggedOut: commit")
	}
	s.logger.Debug().Str("reason", reason).Msg("logged out")
}
