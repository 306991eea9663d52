package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const configFileEnvVar = "INVCTL_CONFIG"

type Config interface {
	EnvConfig
	APIConfig
	SessionConfig
}

type mainConfig struct {
	EnvVars
	API
	Session
}

// New returns a Config backed by environment variables only.
func New() Config {
	return newConfig(source{})
}

// Load returns a Config backed by environment variables, falling back to the
// YAML file at path. An empty path uses INVCTL_CONFIG; if that is unset too
// the result is the same as New.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(configFileEnvVar)
	}
	if path == "" {
		return New(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "[config.Load] read")
	}
	src, err := parseFile(data)
	if err != nil {
		return nil, errors.Wrapf(err, "[config.Load] parse %s", path)
	}
	return newConfig(src), nil
}

func newConfig(src source) Config {
	return mainConfig{
		EnvVars: EnvVars{src: src},
		API:     API{src: src},
		Session: Session{src: src},
	}
}

// source resolves a key from the environment first, then the config file.
type source struct {
	file map[string]string
}

func (s source) get(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	if value := strings.TrimSpace(s.file[key]); value != "" {
		return value
	}
	return defaultValue
}

// parseFile reads a flat YAML mapping. Keys are matched case-insensitively
// against the environment variable names, e.g. api_base_url -> API_BASE_URL.
func parseFile(data []byte) (source, error) {
	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return source{}, err
	}
	file := make(map[string]string, len(raw))
	for k, v := range raw {
		file[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return source{file: file}, nil
}

func GetEnv(envVar, defaultValue string) string {
	return source{}.get(envVar, defaultValue)
}
