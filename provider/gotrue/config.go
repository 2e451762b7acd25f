package gotrue

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/sessionguard/session"
)

// ErrInvalidConfig is returned by NewClient for unusable configuration.
var ErrInvalidConfig = errors.New("gotrue: invalid config")

// Config locates the auth backend and tunes session refresh.
type Config struct {
	// URL is the project base URL, e.g. https://xyz.supabase.co.
	URL string
	// APIKey is the project's anon (public) key.
	APIKey string
	// StorageKey names the persisted session in the Store.
	StorageKey string

	HTTPTimeout time.Duration

	// AutoRefresh rotates the session in GetSession once it is within
	// RefreshMargin of expiry.
	AutoRefresh   bool
	RefreshMargin time.Duration
}

// DefaultConfig returns the defaults for everything except URL and APIKey.
func DefaultConfig() Config {
	return Config{
		StorageKey:    session.DefaultKey,
		HTTPTimeout:   10 * time.Second,
		AutoRefresh:   true,
		RefreshMargin: time.Minute,
	}
}

// Validate reports the first unusable field.
func (c *Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.URL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: URL must be an absolute http(s) URL", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: APIKey must not be blank", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.StorageKey) == "" {
		return fmt.Errorf("%w: StorageKey must not be blank", ErrInvalidConfig)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("%w: HTTPTimeout must be >= 0", ErrInvalidConfig)
	}
	if c.RefreshMargin < 0 {
		return fmt.Errorf("%w: RefreshMargin must be >= 0", ErrInvalidConfig)
	}
	return nil
}
