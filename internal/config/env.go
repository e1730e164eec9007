package config

import "os"

const (
	EnvConfig   = "BLOBFM_CONFIG"
	EnvAPIURL   = "BLOBFM_API_URL"
	EnvLogLevel = "BLOBFM_LOG_LEVEL"
)

// EnvOverrides is the environment layer, applied between the config file
// and command-line flags. Empty fields leave the file's value alone.
type EnvOverrides struct {
	ConfigPath string
	APIURL     string
	LogLevel   string
}

// ReadEnvOverrides reads the process environment.
func ReadEnvOverrides() EnvOverrides {
	return envOverridesFrom(os.Getenv)
}

func envOverridesFrom(getenv func(string) string) EnvOverrides {
	return EnvOverrides{
		ConfigPath: getenv(EnvConfig),
		APIURL:     getenv(EnvAPIURL),
		LogLevel:   getenv(EnvLogLevel),
	}
}

// apply copies the set fields onto cfg.
func (e EnvOverrides) apply(cfg *Config) {
	if e.APIURL != "" {
		cfg.API.BaseURL = e.APIURL
	}

	if e.LogLevel != "" {
		cfg.Logging.LogLevel = e.LogLevel
	}
}
