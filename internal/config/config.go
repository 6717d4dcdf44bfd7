package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

type Config interface {
	EnvConfig
	SessionConfig
	StorageConfig
	AuthServerConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetLogLevel() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars    `yaml:"-"`
	Session    `yaml:"session"`
	Storage    `yaml:"storage"`
	AuthServer `yaml:"auth_server"`
}

// New returns the default configuration. Environment variables still override
// every value at read time.
func New() Config {
	return newMainConfig()
}

func newMainConfig() *mainConfig {
	return &mainConfig{
		Session:    DefaultSession(),
		Storage:    DefaultStorage(),
		AuthServer: DefaultAuthServer(),
	}
}

// Load overlays a YAML file on top of the defaults. A missing file is not an
// error; an unreadable or invalid one is.
func Load(path string) (Config, error) {
	c := newMainConfig()
	if path == "" {
		return c, nil
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("config.Load read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, c); err != nil {
		return c, fmt.Errorf("config.Load parse %s: %w", path, err)
	}
	return c, nil
}
