package store_test

import (
	"context"
	"testing"

	"github.com/inventory-mgmt/invctl/apiclient"
	"github.com/inventory-mgmt/invctl/auth"
	apperrors "github.com/inventory-mgmt/invctl/internal/errors"
	"github.com/inventory-mgmt/invctl/internal/fakeapi"
	"github.com/inventory-mgmt/invctl/internal/metrics"
	"github.com/inventory-mgmt/invctl/sessions"
	fakesessionrepo "github.com/inventory-mgmt/invctl/sessions/repofakes"
	"github.com/inventory-mgmt/invctl/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const (
	testUsername = "alice"
	testPassword = "s3cret"
)

type testFixture struct {
	api     *fakeapi.Server
	repo    *fakesessionrepo.FakeSessionRepo
	service *auth.Service
	metrics *metrics.Metrics
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	api := fakeapi.New()
	t.Cleanup(api.Close)
	api.AddUser(testUsername, testPassword)
	api.Seed("orders", map[string]any{"customer": 1, "date": "2024-01-01"})

	repo := fakesessionrepo.NewFakeSessionRepo()
	svc, err := auth.NewService(api.BaseURL(), repo)
	require.NoError(t, err)

	return &testFixture{api: api, repo: repo, service: svc, metrics: metrics.New()}
}

func (f *testFixture) newStore(t *testing.T) *store.AuthStore {
	t.Helper()
	return store.NewAuthStore(context.Background(), f.service, store.WithMetrics(f.metrics))
}

func TestMutationsArePure(t *testing.T) {
	user := sessions.SessionUser{Username: "bob", LoggedIn: true, Access: "a", Refresh: "r"}
	before := store.State{AuthUser: user}

	after := store.SetAccessToken("b")(before)
	require.Equal(t, "a", before.AuthUser.Access)
	require.Equal(t, "b", after.AuthUser.Access)
	require.Equal(t, "r", after.AuthUser.Refresh)
	require.True(t, after.AuthUser.LoggedIn)

	require.True(t, store.Logout()(before).AuthUser.IsAnonymous())
	require.True(t, store.LoginFailure()(before).AuthUser.IsAnonymous())
	require.Equal(t, user, store.LoginSuccess(user)(store.State{}).AuthUser)
}

func TestSetAccessTokenOnAnonymousStateLogsIn(t *testing.T) {
	s := store.SetAccessToken("tok")(store.State{})
	require.True(t, s.AuthUser.LoggedIn)
	require.Equal(t, "tok", s.AuthUser.Access)
}

func TestCommitRejectsInvariantBreak(t *testing.T) {
	f := setupTestFixture(t)
	s := f.newStore(t)

	err := s.SetAccessToken("")
	require.ErrorIs(t, err, apperrors.ErrInvariant)
	require.True(t, s.State().AuthUser.IsAnonymous())
}

func TestNewAuthStoreLoadsPersistedSession(t *testing.T) {
	f := setupTestFixture(t)
	user, err := f.service.Login(context.Background(), testUsername, testPassword)
	require.NoError(t, err)

	s := f.newStore(t)
	require.Equal(t, user, s.State().AuthUser)
	require.True(t, s.IsLoggedIn())
}

func TestLoginCommitsSuccess(t *testing.T) {
	f := setupTestFixture(t)
	s := f.newStore(t)
	require.False(t, s.IsLoggedIn())

	user, err := s.Login(context.Background(), testUsername, testPassword)
	require.NoError(t, err)
	require.Equal(t, user, s.State().AuthUser)

	stored, err := f.repo.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, stored, s.State().AuthUser)
}

func TestLoginCommitsFailure(t *testing.T) {
	f := setupTestFixture(t)
	s := f.newStore(t)

	_, err := s.Login(context.Background(), testUsername, "nope")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	require.True(t, s.State().AuthUser.IsAnonymous())
	require.False(t, f.repo.Stored())
}

func TestLogoutClearsStateAndStorage(t *testing.T) {
	f := setupTestFixture(t)
	s := f.newStore(t)
	ctx := context.Background()
	_, err := s.Login(ctx, testUsername, testPassword)
	require.NoError(t, err)

	s.Logout(ctx)
	s.Logout(ctx)

	require.False(t, s.IsLoggedIn())
	require.True(t, s.State().AuthUser.IsAnonymous())
	require.False(t, f.repo.Stored())
	require.Empty(t, f.service.AccessToken(ctx))
	require.Equal(t, 2.0, testutil.ToFloat64(f.metrics.LogoutCounter(metrics.ReasonUser)))
}

func TestSubscribe(t *testing.T) {
	f := setupTestFixture(t)
	s := f.newStore(t)

	var seen []store.State
	unsubscribe := s.Subscribe(func(st store.State) {
		seen = append(seen, st)
	})

	_, err := s.Login(context.Background(), testUsername, testPassword)
	require.NoError(t, err)
	require.Len(t, seen, 1)
	require.True(t, seen[0].AuthUser.LoggedIn)

	unsubscribe()
	s.Logout(context.Background())
	require.Len(t, seen, 1)
}

func TestStoreFollowsTransport(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	s := f.newStore(t)
	client := apiclient.New(f.api.BaseURL(), apiclient.NewTransport(f.service, apiclient.WithObserver(s)))

	before, err := s.Login(ctx, testUsername, testPassword)
	require.NoError(t, err)

	f.api.ExpireAccessTokens()
	require.NoError(t, client.Get(ctx, "/orders/", nil, nil))
	refreshed := s.State().AuthUser
	require.NotEqual(t, before.Access, refreshed.Access)
	require.Equal(t, f.service.AccessToken(ctx), refreshed.Access)
	require.Equal(t, before.Refresh, refreshed.Refresh)

	f.api.ExpireAccessTokens()
	f.api.RevokeRefreshTokens()
	err = client.Get(ctx, "/orders/", nil, nil)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	require.False(t, s.IsLoggedIn())
	require.False(t, f.repo.Stored())
	// Only user-initiated logouts are counted by the store.
	require.Zero(t, testutil.ToFloat64(f.metrics.LogoutCounter(metrics.ReasonUser)))
}
