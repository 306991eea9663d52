// Package redisrepo persists the session record in Redis so several client
// processes can share one login.
package redisrepo

import (
	"context"
	"time"

	apperrors "github.com/inventory-mgmt/invctl/internal/errors"
	"github.com/inventory-mgmt/invctl/sessions"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const maxUpdateRetries = 8

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

var _ sessions.Repo = (*Repo)(nil)

type Repo struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

type Option func(*Repo)

// WithTTL expires the stored session after ttl of inactivity. Zero keeps it forever.
func WithTTL(ttl time.Duration) Option {
	return func(r *Repo) {
		r.ttl = ttl
	}
}

func New(client redis.UniversalClient, prefix string, options ...Option) *Repo {
	key := sessions.StorageKey
	if prefix != "" {
		key = prefix + ":" + key
	}
	r := &Repo{client: client, key: key}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *Repo) Key() string {
	return r.key
}

func (r *Repo) Get(ctx context.Context) (sessions.SessionUser, error) {
	return r.get(ctx, r.client)
}

func (r *Repo) Put(ctx context.Context, user sessions.SessionUser) error {
	data, err := sessions.Marshal(user)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return errors.Wrap(err, "[redisrepo.Put] set")
	}
	return nil
}

// Update runs fn inside a WATCH transaction and retries when another writer
// touched the key in between.
func (r *Repo) Update(ctx context.Context, fn func(*sessions.SessionUser) error) (sessions.SessionUser, error) {
	var result sessions.SessionUser
	txf := func(tx *redis.Tx) error {
		current, err := r.get(ctx, tx)
		if err != nil {
			return err
		}
		if err := fn(&current); err != nil {
			return err
		}
		data, err := sessions.Marshal(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key, data, r.ttl)
			return nil
		})
		if err == nil {
			result = current
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, r.key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return sessions.Anonymous(), err
	}
	return sessions.Anonymous(), errors.Wrapf(apperrors.ErrUpdateConflict, "[redisrepo.Update] gave up after %d attempts", maxUpdateRetries)
}

func (r *Repo) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return errors.Wrap(err, "[redisrepo.Delete] del")
	}
	return nil
}

func (r *Repo) get(ctx context.Context, c getter) (sessions.SessionUser, error) {
	data, err := c.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return sessions.Anonymous(), nil
	}
	if err != nil {
		return sessions.Anonymous(), errors.Wrap(err, "[redisrepo.get] get")
	}
	return sessions.Unmarshal(data)
}
