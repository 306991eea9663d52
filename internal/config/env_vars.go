package config

import (
	"strconv"
	"strings"
	"time"
)

const (
	appNameVar          = "APP_NAME"
	envVar              = "ENV"
	logLevelVar         = "LOG_LEVEL"
	baseURLVar          = "API_BASE_URL"
	hostVar             = "API_HOST"
	requestTimeoutVar   = "REQUEST_TIMEOUT"
	proactiveRefreshVar = "PROACTIVE_REFRESH"
	sessionStoreVar     = "SESSION_STORE"
	sessionFileVar      = "SESSION_FILE"
	sessionPassVar      = "SESSION_PASSPHRASE"
	redisAddrVar        = "REDIS_ADDR"
	redisPrefixVar      = "REDIS_PREFIX"

	defaultBaseURL        = "http://localhost:8000/api"
	defaultRequestTimeout = 15 * time.Second
)

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type APIConfig interface {
	GetBaseURL() string
	GetHost() string
	GetRequestTimeout() time.Duration
	GetProactiveRefresh() bool
}

type SessionConfig interface {
	GetSessionStore() StoreKind
	GetSessionFile() string
	GetSessionPassphrase() string
	GetRedisAddr() string
	GetRedisPrefix() string
}

// StoreKind selects the persistent session storage backend.
type StoreKind string

const (
	StoreFile   StoreKind = "file"
	StoreRedis  StoreKind = "redis"
	StoreMemory StoreKind = "memory"
)

type EnvVars struct {
	src source
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.src.get(appNameVar, "Inventory")
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.src.get(envVar, "DEV"))
}

func (e EnvVars) GetLogLevel() string {
	return strings.ToLower(e.src.get(logLevelVar, "info"))
}

type API struct {
	src source
}

var _ APIConfig = API{}

// GetBaseURL returns the root of the CRUD resources, e.g. "https://inventory.example.com/api".
func (a API) GetBaseURL() string {
	return strings.TrimRight(a.src.get(baseURLVar, defaultBaseURL), "/")
}

// GetHost returns the root the auth endpoints hang off. Defaults to the base URL.
func (a API) GetHost() string {
	host := a.src.get(hostVar, "")
	if host == "" {
		return a.GetBaseURL()
	}
	return strings.TrimRight(host, "/")
}

func (a API) GetRequestTimeout() time.Duration {
	value := a.src.get(requestTimeoutVar, "")
	if value == "" {
		return defaultRequestTimeout
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultRequestTimeout
}

func (a API) GetProactiveRefresh() bool {
	b, err := strconv.ParseBool(a.src.get(proactiveRefreshVar, "false"))
	if err != nil {
		return false
	}
	return b
}

type Session struct {
	src source
}

var _ SessionConfig = Session{}

func (s Session) GetSessionStore() StoreKind {
	switch kind := StoreKind(strings.ToLower(s.src.get(sessionStoreVar, string(StoreFile)))); kind {
	case StoreFile, StoreRedis, StoreMemory:
		return kind
	default:
		return StoreFile
	}
}

func (s Session) GetSessionFile() string {
	return s.src.get(sessionFileVar, "./data/authUser.json")
}

func (s Session) GetSessionPassphrase() string {
	return s.src.get(sessionPassVar, "")
}

func (s Session) GetRedisAddr() string {
	return s.src.get(redisAddrVar, "localhost:6379")
}

func (s Session) GetRedisPrefix() string {
	return s.src.get(redisPrefixVar, "invctl")
}
