package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/inventory-mgmt/invctl/apiclient"
	"github.com/inventory-mgmt/invctl/auth"
	"github.com/inventory-mgmt/invctl/internal/config"
	"github.com/inventory-mgmt/invctl/internal/metrics"
	"github.com/inventory-mgmt/invctl/sessions"
	"github.com/inventory-mgmt/invctl/sessions/filerepo"
	"github.com/inventory-mgmt/invctl/sessions/redisrepo"
	fakesessionrepo "github.com/inventory-mgmt/invctl/sessions/repofakes"
	"github.com/inventory-mgmt/invctl/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// app is the session context shared by every command: created once from
// config and persisted storage, torn down on exit.
type app struct {
	cfg     config.Config
	logger  zerolog.Logger
	metrics *metrics.Metrics
	auth    *auth.Service
	store   *store.AuthStore
	client  *apiclient.Client
	closers []func() error
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

func newApp(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}

	repo, err := a.sessionRepo(ctx)
	if err != nil {
		return nil, err
	}

	a.auth, err = auth.NewService(cfg.GetHost(), repo,
		auth.WithTimeout(cfg.GetRequestTimeout()),
		auth.WithLogger(logger),
		auth.WithMetrics(a.metrics),
	)
	if err != nil {
		a.close()
		return nil, err
	}

	a.store = store.NewAuthStore(ctx, a.auth, store.WithLogger(logger), store.WithMetrics(a.metrics))

	transport := apiclient.NewTransport(a.auth,
		apiclient.WithObserver(a.store),
		apiclient.WithProactiveRefresh(cfg.GetProactiveRefresh()),
		apiclient.WithRefreshTimeout(cfg.GetRequestTimeout()),
		apiclient.WithTransportLogger(logger),
		apiclient.WithTransportMetrics(a.metrics),
	)
	a.client = apiclient.New(cfg.GetBaseURL(), transport,
		apiclient.WithRequestTimeout(cfg.GetRequestTimeout()),
		apiclient.WithLogger(logger),
	)
	return a, nil
}

func (a *app) sessionRepo(ctx context.Context) (sessions.Repo, error) {
	switch a.cfg.GetSessionStore() {
	case config.StoreMemory:
		return fakesessionrepo.NewFakeSessionRepo(), nil
	case config.StoreRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{a.cfg.GetRedisAddr()}})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis %s: %w", a.cfg.GetRedisAddr(), err)
		}
		a.closers = append(a.closers, client.Close)
		return redisrepo.New(client, a.cfg.GetRedisPrefix()), nil
	default:
		return filerepo.New(a.cfg.GetSessionFile(), filerepo.WithPassphrase(a.cfg.GetSessionPassphrase())), nil
	}
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Err(err).Msg("close")
		}
	}
	a.closers = nil
}
