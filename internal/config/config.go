// Package config implements TOML configuration loading, validation, and
// override resolution for blobfm.
package config

import "time"

// Config is the top-level configuration structure, one field per TOML table.
type Config struct {
	API     APIConfig     `toml:"api"`
	Auth    AuthConfig    `toml:"auth"`
	Network NetworkConfig `toml:"network"`
	UI      UIConfig      `toml:"ui"`
	Logging LoggingConfig `toml:"logging"`
}

// APIConfig locates the blob HTTP API.
type APIConfig struct {
	BaseURL     string `toml:"base_url"`
	DownloadDir string `toml:"download_dir,omitempty"`
}

// AuthConfig holds the Entra ID application registration used for sign-in.
type AuthConfig struct {
	ClientID string   `toml:"client_id,omitempty"`
	Tenant   string   `toml:"tenant"`
	Scopes   []string `toml:"scopes"`
}

// NetworkConfig controls HTTP client behavior.
type NetworkConfig struct {
	Timeout           string  `toml:"timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	UserAgent         string  `toml:"user_agent,omitempty"`
}

// UIConfig controls rendering and notification behavior.
type UIConfig struct {
	NotificationTTL   string `toml:"notification_ttl"`
	Emoji             string `toml:"emoji"`
	ExpandConcurrency int    `toml:"expand_concurrency"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFile   string `toml:"log_file,omitempty"`
	LogFormat string `toml:"log_format"`
}

// CLIOverrides holds values from command-line flags that override config
// file and environment settings. Pointer fields distinguish "not specified"
// from "set to zero value".
type CLIOverrides struct {
	ConfigPath string
	APIURL     *string
}

func (c CLIOverrides) apply(cfg *Config) {
	if c.APIURL != nil {
		cfg.API.BaseURL = *c.APIURL
	}
}

// Resolved is the effective configuration after all override layers, with
// durations parsed and data paths filled in.
type Resolved struct {
	Config

	ConfigPath      string
	Timeout         time.Duration
	NotificationTTL time.Duration
	TokenPath       string
	StatePath       string
	PIDDir          string
}
