package main

import (
	"context"
	"path/filepath"
	"testing"

	apperrors "github.com/inventory-mgmt/invctl/internal/errors"
	"github.com/inventory-mgmt/invctl/internal/fakeapi"
	"github.com/inventory-mgmt/invctl/sessions/filerepo"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) (*fakeapi.Server, string) {
	t.Helper()

	api := fakeapi.New()
	t.Cleanup(api.Close)
	api.AddUser("alice", "s3cret")
	api.Seed("customers", map[string]any{"name": "Acme"})

	sessionFile := filepath.Join(t.TempDir(), "authUser.json")
	t.Setenv("API_BASE_URL", api.BaseURL())
	t.Setenv("API_HOST", "")
	t.Setenv("SESSION_STORE", "file")
	t.Setenv("SESSION_FILE", sessionFile)
	t.Setenv("SESSION_PASSPHRASE", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("INVCTL_CONFIG", "")
	return api, sessionFile
}

func TestLoginListLogout(t *testing.T) {
	api, sessionFile := setupEnv(t)

	require.NoError(t, run([]string{"login", "-u", "alice", "-p", "s3cret"}))
	user, err := filerepo.New(sessionFile).Get(context.Background())
	require.NoError(t, err)
	require.True(t, user.LoggedIn)

	api.ExpireAccessTokens()
	require.NoError(t, run([]string{"--metrics", "list", "customers"}))
	require.Equal(t, 1, api.RefreshCalls())

	require.NoError(t, run([]string{"logout"}))
	user, err = filerepo.New(sessionFile).Get(context.Background())
	require.NoError(t, err)
	require.True(t, user.IsAnonymous())
}

func TestListWhileLoggedOutIsUnauthorized(t *testing.T) {
	setupEnv(t)

	err := run([]string{"list", "customers"})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	require.Contains(t, describe(err), "invctl login")
}

func TestUnknownInputs(t *testing.T) {
	setupEnv(t)

	require.Error(t, run([]string{"frobnicate"}))
	require.ErrorIs(t, run([]string{"list", "widgets"}), apperrors.ErrUnknownResource)
	require.Error(t, run([]string{"get", "customers", "abc"}))
	require.NoError(t, run(nil))
}

func TestDescribe(t *testing.T) {
	require.Equal(t, "invalid username or password", describe(errors.Wrap(apperrors.ErrInvalidCredentials, "login")))
	require.Equal(t, "boom", describe(errors.New("boom")))
}
