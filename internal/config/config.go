package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ahmadfadadm/indostock-ai/internal/model"
)

// Data source drivers.
const (
	DriverSupabase = "supabase"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMock     = "mock"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Driver     string `yaml:"driver"`
		URL        string `yaml:"url"`
		APIKey     string `yaml:"api_key"`
		DSN        string `yaml:"dsn"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"data_source"`
	Gemini struct {
		APIKey         string        `yaml:"api_key"`
		BaseURL        string        `yaml:"base_url"`
		Models         []string      `yaml:"models"`
		AttemptTimeout time.Duration `yaml:"attempt_timeout"`
		RateLimitDelay time.Duration `yaml:"rate_limit_delay"`
	} `yaml:"gemini"`
	Cache struct {
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       int    `yaml:"redis_db"`
	} `yaml:"cache"`
	Reveal struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"reveal"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
		BucketCron  string `yaml:"bucket_cron"`
	} `yaml:"schedule"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Instruments []model.Instrument `yaml:"instruments"`
	Proxy       string             `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	// Environment variable overrides
	if v := os.Getenv("DATA_SOURCE_DRIVER"); v != "" {
		cfg.DataSource.Driver = v
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		cfg.DataSource.URL = v
	}
	if v := os.Getenv("SUPABASE_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DataSource.DSN = v
	}
	if v := os.Getenv("VITE_GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.RedisDB = db
		}
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.Schedule.RefreshCron = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	// Defaults
	if cfg.DataSource.Driver == "" {
		switch {
		case cfg.DataSource.DSN != "":
			cfg.DataSource.Driver = DriverPostgres
		case cfg.DataSource.URL != "":
			cfg.DataSource.Driver = DriverSupabase
		default:
			cfg.DataSource.Driver = DriverSQLite
		}
	}
	if cfg.DataSource.SQLitePath == "" {
		cfg.DataSource.SQLitePath = "data/stock_store.db"
	}
	if len(cfg.Gemini.Models) == 0 {
		cfg.Gemini.Models = []string{"gemini-2.0-flash", "gemini-2.0-flash-lite"}
	}
	if cfg.Gemini.AttemptTimeout == 0 {
		cfg.Gemini.AttemptTimeout = 8 * time.Second
	}
	if cfg.Gemini.RateLimitDelay == 0 {
		cfg.Gemini.RateLimitDelay = time.Second
	}
	if cfg.Reveal.Interval == 0 {
		cfg.Reveal.Interval = 20 * time.Millisecond
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 */5 9-16 * * 1-5"
	}
	if cfg.Schedule.BucketCron == "" {
		cfg.Schedule.BucketCron = "0 0 * * * *"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/indostock_activity.db"
	}
	if len(cfg.Instruments) == 0 {
		cfg.Instruments = append([]model.Instrument(nil), model.DefaultInstruments...)
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	switch c.DataSource.Driver {
	case DriverSupabase:
		if c.DataSource.URL == "" {
			return fmt.Errorf("data_source.url is required for the supabase driver")
		}
		if c.DataSource.APIKey == "" {
			return fmt.Errorf("data_source.api_key is required for the supabase driver")
		}
	case DriverPostgres:
		if c.DataSource.DSN == "" {
			return fmt.Errorf("data_source.dsn is required for the postgres driver")
		}
	case DriverSQLite:
		if c.DataSource.SQLitePath == "" {
			return fmt.Errorf("data_source.sqlite_path is required for the sqlite driver")
		}
	case DriverMock:
	default:
		return fmt.Errorf("data_source.driver %q is not supported", c.DataSource.Driver)
	}
	if c.Gemini.AttemptTimeout < 0 || c.Gemini.RateLimitDelay < 0 {
		return fmt.Errorf("gemini timings must not be negative")
	}
	if c.Reveal.Interval <= 0 {
		return fmt.Errorf("reveal.interval must be positive")
	}
	seen := make(map[string]bool, len(c.Instruments))
	for _, inst := range c.Instruments {
		if inst.Code == "" {
			return fmt.Errorf("instruments: entry with empty code")
		}
		if seen[inst.Code] {
			return fmt.Errorf("instruments: duplicate code %s", inst.Code)
		}
		seen[inst.Code] = true
	}
	return nil
}
