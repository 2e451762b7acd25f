package sessionguard

import (
	"fmt"
	"strings"
	"time"
)

// Config controls guard retry, redirect and observability behavior.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Retry    RetryConfig
	Redirect RedirectConfig
	UI       UIConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
RETRY CONFIG
====================================
*/

// RetryConfig bounds retries of a single logical session check.
//
// The wait before attempt n+1 is n × BaseDelay, so the default schedule is
// 1s, 2s, 3s. The schedule is linear, not exponential.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

/*
====================================
REDIRECT CONFIG
====================================
*/

// RedirectConfig names the two well-known locations used by the redirect guards.
type RedirectConfig struct {
	LandingPath string // anonymous landing location
	HomePath    string // authenticated home location
}

// UIConfig holds the static labels shown through the Presenter.
type UIConfig struct {
	AnonymousLabel    string
	CheckingMessage   string
	RedirectMessage   string
	SigningOutMessage string
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// FlushTimeout bounds how long Guard.Close waits for queued events to
	// reach the sink.
	FlushTimeout time.Duration
}

// MetricsConfig toggles in-process counters and the check latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration used when Builder.WithConfig is not called.
func DefaultConfig() Config {
	return Config{
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  time.Second,
		},
		Redirect: RedirectConfig{
			LandingPath: "/landing",
			HomePath:    "/",
		},
		UI: UIConfig{
			AnonymousLabel:    "My Profile",
			CheckingMessage:   "Checking authentication...",
			RedirectMessage:   "Redirecting...",
			SigningOutMessage: "Signing out...",
		},
		Audit: AuditConfig{
			Enabled:      false,
			BufferSize:   256,
			DropIfFull:   true,
			FlushTimeout: 2 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Retry.MaxRetries < 0 {
		return invalidConfig("Retry MaxRetries must be >= 0")
	}
	if c.Retry.MaxRetries > 10 {
		return invalidConfig("Retry MaxRetries must be <= 10")
	}
	if c.Retry.BaseDelay < 0 {
		return invalidConfig("Retry BaseDelay must be >= 0")
	}
	if c.Retry.BaseDelay > time.Minute {
		return invalidConfig("Retry BaseDelay must be <= 1m")
	}

	if !strings.HasPrefix(c.Redirect.LandingPath, "/") {
		return invalidConfig("Redirect LandingPath must be an absolute path")
	}
	if !strings.HasPrefix(c.Redirect.HomePath, "/") {
		return invalidConfig("Redirect HomePath must be an absolute path")
	}
	if c.Redirect.LandingPath == c.Redirect.HomePath {
		return invalidConfig("Redirect LandingPath and HomePath must differ")
	}

	if strings.TrimSpace(c.UI.AnonymousLabel) == "" {
		return invalidConfig("UI AnonymousLabel must not be blank")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return invalidConfig("Audit BufferSize must be > 0 when Audit is enabled")
	}
	if c.Audit.Enabled && c.Audit.FlushTimeout <= 0 {
		return invalidConfig("Audit FlushTimeout must be > 0 when Audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return invalidConfig("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func invalidConfig(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
