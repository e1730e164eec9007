package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

const (
	minTimeout           = 1 * time.Second
	minNotificationTTL   = 500 * time.Millisecond
	minExpandConcurrency = 1
	maxExpandConcurrency = 32
)

// Validate reports every invalid value in cfg at once, joined.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateAPI(&cfg.API)...)
	errs = append(errs, validateAuth(&cfg.Auth)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)
	errs = append(errs, validateUI(&cfg.UI)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

func validateAPI(a *APIConfig) []error {
	u, err := url.Parse(a.BaseURL)
	if err != nil {
		return []error{fmt.Errorf("base_url: %w", err)}
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return []error{fmt.Errorf("base_url: must be an absolute http(s) URL, got %q", a.BaseURL)}
	}

	return nil
}

func validateAuth(a *AuthConfig) []error {
	var errs []error

	if strings.TrimSpace(a.Tenant) == "" {
		errs = append(errs, errors.New("tenant: must not be empty"))
	}

	if len(a.Scopes) == 0 {
		errs = append(errs, errors.New("scopes: must list at least one scope"))
	}

	for _, s := range a.Scopes {
		if strings.TrimSpace(s) == "" || strings.ContainsAny(s, " \t") {
			errs = append(errs, fmt.Errorf("scopes: invalid scope %q", s))
		}
	}

	return errs
}

func validateNetwork(n *NetworkConfig) []error {
	errs := []error{durationAtLeast("timeout", n.Timeout, minTimeout)}

	if n.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("requests_per_second: must be >= 0, got %g", n.RequestsPerSecond))
	}

	return errs
}

func validateUI(u *UIConfig) []error {
	errs := []error{
		durationAtLeast("notification_ttl", u.NotificationTTL, minNotificationTTL),
		oneOf("emoji", u.Emoji, EmojiAuto, EmojiAlways, EmojiNever),
	}

	if u.ExpandConcurrency < minExpandConcurrency || u.ExpandConcurrency > maxExpandConcurrency {
		errs = append(errs, fmt.Errorf("expand_concurrency: must be between %d and %d, got %d",
			minExpandConcurrency, maxExpandConcurrency, u.ExpandConcurrency))
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	return []error{
		oneOf("log_level", l.LogLevel, "debug", "info", "warn", "error"),
		oneOf("log_format", l.LogFormat, "auto", "text", "json"),
	}
}

// durationAtLeast parses value as a Go duration no shorter than minimum.
func durationAtLeast(field, value string, minimum time.Duration) error {
	d, err := time.ParseDuration(value)
	switch {
	case err != nil:
		return fmt.Errorf("%s: %q is not a duration like \"30s\": %w", field, value, err)
	case d < minimum:
		return fmt.Errorf("%s: %s is shorter than the minimum %s", field, d, minimum)
	}

	return nil
}

func oneOf(field, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}

	return fmt.Errorf("%s: must be one of %s; got %q", field, strings.Join(allowed, ", "), value)
}
