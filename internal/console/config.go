// Package console is the lasctl terminal client: configuration, rendering
// and the cobra command tree over the list and detail views.
package console

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config holds lasctl settings.
type Config struct {
	APIURL       string        `env:"LASDESK_API_URL, default=http://localhost:1729"`
	StateDir     string        `env:"LASDESK_STATE_DIR"`
	Timeout      time.Duration `env:"LASDESK_TIMEOUT, default=30s"`
	LogLevel     string        `env:"LASDESK_LOG_LEVEL, default=warn"`
	LogRetention time.Duration `env:"LASDESK_LOG_RETENTION, default=2s"`
	LogCacheSize int           `env:"LASDESK_LOG_CACHE_SIZE, default=64"`
	PollInterval time.Duration `env:"LASDESK_POLL_INTERVAL, default=2s"`
}

// LoadConfig reads Config from the environment, or from lookuper when set.
// A .env file in the working directory is loaded first without overriding
// existing variables.
func LoadConfig(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	if lookuper == nil {
		if _, err := os.Stat(".env"); err == nil {
			_ = godotenv.Load(".env")
		}
		lookuper = envconfig.OsLookuper()
	}

	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.StateDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = os.TempDir()
		}
		cfg.StateDir = filepath.Join(dir, "lasdesk")
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("LASDESK_API_URL must be an absolute URL, got %q", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("LASDESK_TIMEOUT must be positive, got %s", c.Timeout)
	}
	if c.LogRetention < 0 {
		return fmt.Errorf("LASDESK_LOG_RETENTION must not be negative, got %s", c.LogRetention)
	}
	if c.LogCacheSize <= 0 {
		return fmt.Errorf("LASDESK_LOG_CACHE_SIZE must be positive, got %d", c.LogCacheSize)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("LASDESK_POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	return nil
}
