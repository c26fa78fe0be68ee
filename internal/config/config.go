// Package config loads skrbnik's settings from the environment, an optional
// .env file and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Session store backends.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds the server settings.
type Config struct {
	Debug   bool   `env:"DEBUG" envDefault:"false"`
	LogFile string `env:"LOG_FILE"`
	Addr    string `env:"ADDR" envDefault:":8080"`

	// Backend the console administers.
	API struct {
		URL       string        `env:"API_URL,required,notEmpty"`
		LoginPath string        `env:"API_LOGIN_PATH" envDefault:"/api/auth/login"`
		Timeout   time.Duration `env:"API_TIMEOUT" envDefault:"15s"`
	}

	Session struct {
		Store         string        `env:"SESSION_STORE" envDefault:"sqlite"`
		TTL           time.Duration `env:"SESSION_TTL" envDefault:"12h"`
		PurgeSchedule string        `env:"SESSION_PURGE_SCHEDULE" envDefault:"@every 15m"`
		CookieSecure  bool          `env:"COOKIE_SECURE" envDefault:"false"`
	}

	DBPath string `env:"DB_PATH" envDefault:"skrbnik.sqlite3"`

	Redis struct {
		Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}
}

const usage = `Usage: skrbnik [flags]

Flags:
  -a, -addr <host:port>   listen address (env ADDR, default: :8080)
  -d, -db <path>          SQLite session database (env DB_PATH, default: skrbnik.sqlite3)
  -l, -log <path>         log file path (env LOG_FILE, default: no file)
  -h, -help               show this help and exit

The backend base URL is required and read from API_URL.
`

// Load reads .env (if present), the environment and then args. It returns
// flag.ErrHelp after printing usage for -h.
func Load(args []string, out io.Writer) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	fs := flag.NewFlagSet("skrbnik", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "")
	fs.Usage = func() { fmt.Fprint(out, usage) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Session.Store {
	case StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("invalid SESSION_STORE %q: want %s or %s", c.Session.Store, StoreSQLite, StoreRedis)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("invalid SESSION_TTL %s: must be positive", c.Session.TTL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("invalid API_TIMEOUT %s: must be positive", c.API.Timeout)
	}
	return nil
}
