package config

// Default values for configuration options. These are layer 0 of the
// override chain and work without any config file.
const (
	defaultBaseURL           = "http://localhost:8000"
	defaultTenant            = "common"
	defaultTimeout           = "30s"
	defaultNotificationTTL   = "5s"
	defaultEmoji             = EmojiAuto
	defaultExpandConcurrency = 4
	defaultLogLevel          = "info"
	defaultLogFormat         = "auto"
)

// Emoji rendering modes.
const (
	EmojiAuto   = "auto"
	EmojiAlways = "always"
	EmojiNever  = "never"
)

// defaultScopes request an id_token with the user's name and a refresh token.
var defaultScopes = []string{"openid", "profile", "offline_access"}

// DefaultConfig returns a Config populated with all default values.
// It is the starting point for TOML decoding so unset fields keep defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: defaultBaseURL,
		},
		Auth: AuthConfig{
			Tenant: defaultTenant,
			Scopes: append([]string(nil), defaultScopes...),
		},
		Network: NetworkConfig{
			Timeout: defaultTimeout,
		},
		UI: UIConfig{
			NotificationTTL:   defaultNotificationTTL,
			Emoji:             defaultEmoji,
			ExpandConcurrency: defaultExpandConcurrency,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
	}
}
