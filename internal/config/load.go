package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/BurntSushi/toml"
)

// Load decodes the TOML file at path over the defaults and validates the
// result. Keys the schema does not know are errors.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return cfg, err
}

// Resolve layers defaults, the config file, the environment and flags, in
// that order, and returns the effective configuration.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := firstNonEmpty(cli.ConfigPath, env.ConfigPath, DefaultConfigPath())

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	env.apply(cfg)
	cli.apply(cfg)

	// The file was valid; the overrides may not be.
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	timeout, _ := time.ParseDuration(cfg.Network.Timeout)
	ttl, _ := time.ParseDuration(cfg.UI.NotificationTTL)

	return &Resolved{
		Config:          *cfg,
		ConfigPath:      cfgPath,
		Timeout:         timeout,
		NotificationTTL: ttl,
		TokenPath:       DefaultTokenPath(),
		StatePath:       DefaultStatePath(),
		PIDDir:          DefaultDataDir(),
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}

	return ""
}
