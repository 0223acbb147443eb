// Package config handles loading and parsing application configuration.
// It supports two sources for the file path (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Two documents are understood: Config for the students API server and
// ConsoleConfig for the students console. Both are returned as pointers
// so the struct is shared by reference rather than copied everywhere.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Storage drivers understood by the API server.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the root configuration of the API server.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"...").
//
// env-required:"true" means the app refuses to start if that value is
// missing — better to crash at boot than to silently use a wrong default.
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-required:"true"`

	// StoragePath is the filesystem path to the SQLite .db file.
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH"`

	Storage `yaml:"storage"`

	// HTTPServer is embedded (not a pointer) so its fields are accessible
	// directly on Config:  cfg.HTTPServer.Addr  or after promotion cfg.Addr
	HTTPServer `yaml:"http_server"`
}

// Storage selects the database backend.
type Storage struct {
	Driver      string `yaml:"driver"       env:"STORAGE_DRIVER" env-default:"sqlite"`
	PostgresDSN string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
}

// HTTPServer holds settings specific to the HTTP server.
// Nested under http_server: in the YAML file.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:8082".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-required:"true"`
}

// ConsoleConfig is the root configuration of the students console.
type ConsoleConfig struct {
	Env     string  `yaml:"env" env:"ENV" env-required:"true"`
	Console Console `yaml:"console"`
}

// Console holds the settings of the console UI and of its API client.
type Console struct {
	// Addr is where the console page is served.
	Addr string `yaml:"address" env:"CONSOLE_ADDR" env-default:"localhost:8090"`

	// APIURL is the base URL of the students API (without /api/students).
	APIURL string `yaml:"api_url" env:"CONSOLE_API_URL" env-required:"true"`

	// RequestTimeout bounds every call to the API.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"CONSOLE_REQUEST_TIMEOUT" env-default:"10s"`

	// Locale selects the message catalog ("tr" or "en").
	Locale string `yaml:"locale" env:"CONSOLE_LOCALE" env-default:"tr"`

	// Timezone is the IANA zone used to display timestamps.
	Timezone string `yaml:"timezone" env:"CONSOLE_TIMEZONE" env-default:"Europe/Istanbul"`
}

// Validate checks the cross-field rules cleanenv cannot express.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.StoragePath == "" {
			return errors.New("storage_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// Validate checks the console settings cleanenv cannot express.
func (c *ConsoleConfig) Validate() error {
	if c.Console.RequestTimeout <= 0 {
		return errors.New("console.request_timeout must be positive")
	}
	if _, err := time.LoadLocation(c.Console.Timezone); err != nil {
		return fmt.Errorf("console.timezone: %w", err)
	}
	return nil
}

// Load reads and validates the API server config at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := read(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadConsole reads and validates the console config at path.
func LoadConsole(path string) (*ConsoleConfig, error) {
	var cfg ConsoleConfig
	if err := read(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// MustLoad reads, validates, and returns the API server config.
//
// The name "MustLoad" follows a Go convention: functions prefixed with
// "Must" are allowed to panic/fatal on failure. Callers do not need to
// check a returned error — if this function returns, the config is valid.
func MustLoad() *Config {
	cfg, err := Load(resolvePath())
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// MustLoadConsole is MustLoad for the console.
func MustLoadConsole() *ConsoleConfig {
	cfg, err := LoadConsole(resolvePath())
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// resolvePath finds the config file from CONFIG_PATH or --config.
func resolvePath() string {
	// ── Source 1: environment variable ───────────────────────────────
	// Useful in Docker / Kubernetes where env vars are the standard way
	// to pass config to a container.
	configPath := os.Getenv("CONFIG_PATH")

	// ── Source 2: command-line flag ───────────────────────────────────
	// Useful when running locally:
	//   go run ./cmd/students-api --config=config/local.yaml
	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	// Neither source provided a path — we cannot continue.
	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	return configPath
}

func read(path string, cfg any) error {
	// Verify the file exists before trying to read it, so the message
	// is clearer than a cryptic "open: no such file" later.
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", path)
	}

	// cleanenv.ReadConfig reads the YAML file and populates the struct.
	// It also reads any env:"..." tagged fields from the environment,
	// applies env-default values and checks env-required constraints.
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
