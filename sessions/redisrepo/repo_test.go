package redisrepo_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/inventory-mgmt/invctl/sessions"
	"github.com/inventory-mgmt/invctl/sessions/redisrepo"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var alice = sessions.SessionUser{Username: "alice", LoggedIn: true, Access: "access-1", Refresh: "refresh-1"}

func newRedisRepo(t *testing.T, options ...redisrepo.Option) (*redisrepo.Repo, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return redisrepo.New(rdb, "test", options...), mr
}

func TestRedisPutGetDelete(t *testing.T) {
	ctx := context.Background()
	r, mr := newRedisRepo(t)
	require.Equal(t, "test:authUser", r.Key())

	u, err := r.Get(ctx)
	require.NoError(t, err)
	require.True(t, u.IsAnonymous())

	require.NoError(t, r.Put(ctx, alice))
	require.True(t, mr.Exists("test:authUser"))

	u, err = r.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, alice, u)

	require.NoError(t, r.Delete(ctx))
	require.NoError(t, r.Delete(ctx))
	require.False(t, mr.Exists("test:authUser"))
}

func TestRedisTTL(t *testing.T) {
	ctx := context.Background()
	r, mr := newRedisRepo(t, redisrepo.WithTTL(time.Minute))
	require.NoError(t, r.Put(ctx, alice))

	mr.FastForward(2 * time.Minute)
	u, err := r.Get(ctx)
	require.NoError(t, err)
	require.True(t, u.IsAnonymous())
}

func TestRedisConcurrentUpdatesAreNotLost(t *testing.T) {
	ctx := context.Background()
	r, _ := newRedisRepo(t)
	require.NoError(t, r.Put(ctx, sessions.SessionUser{Username: "alice", LoggedIn: true, Access: "0"}))

	const n = 5
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Update(ctx, func(u *sessions.SessionUser) error {
				u.Refresh += "x"
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		}
	}
	u, err := r.Get(ctx)
	require.NoError(t, err)
	require.Len(t, u.Refresh, ok, fmt.Sprintf("every successful update must be visible, got %q", u.Refresh))
}

func TestRedisUpdateCallbackError(t *testing.T) {
	ctx := context.Background()
	r, _ := newRedisRepo(t)
	require.NoError(t, r.Put(ctx, alice))

	boom := fmt.Errorf("boom")
	_, err := r.Update(ctx, func(u *sessions.SessionUser) error {
		u.Access = "changed"
		return boom
	})
	require.ErrorIs(t, err, boom)

	u, err := r.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, alice, u)
}
