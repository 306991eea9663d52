package filerepo_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/inventory-mgmt/invctl/internal/errors"
	"github.com/inventory-mgmt/invctl/sessions"
	"github.com/inventory-mgmt/invctl/sessions/filerepo"
	"github.com/stretchr/testify/require"
)

var alice = sessions.SessionUser{Username: "alice", LoggedIn: true, Access: "access-1", Refresh: "refresh-1"}

func newRepo(t *testing.T, options ...filerepo.Option) *filerepo.Repo {
	t.Helper()
	return filerepo.New(filepath.Join(t.TempDir(), "nested", "authUser.json"), options...)
}

func TestGetAbsentIsAnonymous(t *testing.T) {
	r := newRepo(t)
	u, err := r.Get(context.Background())
	require.NoError(t, err)
	require.True(t, u.IsAnonymous())
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	require.NoError(t, r.Put(ctx, alice))

	u, err := r.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, alice, u)

	info, err := os.Stat(r.Path())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestUpdateOnlyTouchesAccess(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	require.NoError(t, r.Put(ctx, alice))

	u, err := r.Update(ctx, func(u *sessions.SessionUser) error {
		u.Access = "access-2"
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "access-2", u.Access)
	require.Equal(t, "refresh-1", u.Refresh)

	stored, err := r.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, u, stored)
}

func TestUpdateErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	require.NoError(t, r.Put(ctx, alice))

	_, err := r.Update(ctx, func(u *sessions.SessionUser) error {
		u.Access = ""
		return nil
	})
	require.ErrorIs(t, err, apperrors.ErrInvariant)

	stored, err := r.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, alice, stored)
}

func TestDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	require.NoError(t, r.Put(ctx, alice))
	require.NoError(t, r.Delete(ctx))
	require.NoError(t, r.Delete(ctx))

	u, err := r.Get(ctx)
	require.NoError(t, err)
	require.True(t, u.IsAnonymous())
}

func TestSealedFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "authUser.json")
	r := filerepo.New(path, filerepo.WithPassphrase("correct horse"))
	require.NoError(t, r.Put(ctx, alice))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "access-1")

	u, err := r.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, alice, u)

	_, err = filerepo.New(path, filerepo.WithPassphrase("wrong")).Get(ctx)
	require.ErrorIs(t, err, apperrors.ErrSessionCorrupt)

	_, err = filerepo.New(path).Get(ctx)
	require.ErrorIs(t, err, apperrors.ErrSessionCorrupt)
}

func TestCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authUser.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	_, err := filerepo.New(path).Get(context.Background())
	require.ErrorIs(t, err, apperrors.ErrSessionCorrupt)
}
