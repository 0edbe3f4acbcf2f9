// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/dukerupert/potluck/internal/logging"
	"github.com/dukerupert/potluck/internal/search"
)

// EnvPrefix is prepended to every variable name, e.g. POTLUCK_PORT.
const EnvPrefix = "POTLUCK"

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	DBPath    string `envconfig:"DB_PATH" default:"potluck.db"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	SearchMode        string `envconfig:"SEARCH_MODE" default:"browse"`
	SearchLookupLimit int    `envconfig:"SEARCH_LOOKUP_LIMIT" default:"20"`
	SearchBrowseLimit int    `envconfig:"SEARCH_BROWSE_LIMIT" default:"500"`
	PhoneUnique       bool   `envconfig:"PHONE_UNIQUE" default:"false"`
	NotificationLimit int    `envconfig:"NOTIFICATION_LIMIT" default:"50"`
	LoginRateLimit    int    `envconfig:"LOGIN_RATE_LIMIT" default:"10"`

	CORSOrigins   []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`
	CatalogMaxAge time.Duration `envconfig:"CATALOG_MAX_AGE" default:"1h"`

	OrganizerUsername string `envconfig:"ORGANIZER_USERNAME" default:"organizer"`
	OrganizerPassword string `envconfig:"ORGANIZER_PASSWORD"`
}

// Load reads the given dotenv files (missing ones are skipped) and then the
// process environment. Variables already set in the environment win over
// dotenv values.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("db path is required"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := search.ParseMode(c.SearchMode); err != nil {
		errs = append(errs, err)
	}
	if c.SearchLookupLimit <= 0 || c.SearchBrowseLimit <= 0 {
		errs = append(errs, errors.New("search limits must be greater than 0"))
	}
	if c.NotificationLimit <= 0 {
		errs = append(errs, errors.New("notification limit must be greater than 0"))
	}
	if c.LoginRateLimit <= 0 {
		errs = append(errs, errors.New("login rate limit must be greater than 0"))
	}
	if c.CatalogMaxAge < 0 {
		errs = append(errs, errors.New("catalog max age must not be negative"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// SearchLimits returns the per-mode result caps.
func (c *Config) SearchLimits() search.Limits {
	return search.Limits{Lookup: c.SearchLookupLimit, Browse: c.SearchBrowseLimit}
}

// DefaultSearchMode is the mode used when a request does not name one.
// Load has already validated it.
func (c *Config) DefaultSearchMode() search.Mode {
	m, err := search.ParseMode(c.SearchMode)
	if err != nil {
		return search.ModeBrowse
	}
	return m
}
