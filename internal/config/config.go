package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = "teller.yaml"

// Config represents the top-level teller.yaml configuration.
type Config struct {
	Store StoreConfig `yaml:"store"`
	Auth  AuthConfig  `yaml:"auth"`
	Cash  CashConfig  `yaml:"cash"`
	Log   LogConfig   `yaml:"log"`
}

// StoreConfig locates the ledger database.
type StoreConfig struct {
	Path        string        `yaml:"path" env:"TELLER_DB_PATH"`
	BusyTimeout time.Duration `yaml:"busy_timeout" env:"TELLER_BUSY_TIMEOUT"`
}

// AuthConfig controls login and PIN storage.
type AuthConfig struct {
	MaxAttempts int    `yaml:"max_attempts" env:"TELLER_MAX_ATTEMPTS"`
	PinScheme   string `yaml:"pin_scheme" env:"TELLER_PIN_SCHEME"` // "bcrypt" or "plain"
	BcryptCost  int    `yaml:"bcrypt_cost,omitempty" env:"TELLER_BCRYPT_COST"`
}

// CashConfig describes accepted amounts.
type CashConfig struct {
	Denomination int64  `yaml:"denomination" env:"TELLER_DENOMINATION"`
	Currency     string `yaml:"currency" env:"TELLER_CURRENCY"` // display only
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"TELLER_LOG_LEVEL"`
	Format string `yaml:"format" env:"TELLER_LOG_FORMAT"` // "text" or "json"
}

// Load reads a teller.yaml file from disk and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, falling back to Default plus environment when path
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	cfg = Default()
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from TELLER_* environment variables.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Path:        "teller.db",
			BusyTimeout: 5 * time.Second,
		},
		Auth: AuthConfig{
			MaxAttempts: 3,
			PinScheme:   "bcrypt",
		},
		Cash: CashConfig{
			Denomination: 10,
			Currency:     "INR",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate rejects configurations the ledger cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	if c.Store.BusyTimeout < 0 {
		errs = append(errs, errors.New("store.busy_timeout must not be negative"))
	}
	if c.Auth.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("auth.max_attempts must be >= 1, got %d", c.Auth.MaxAttempts))
	}
	switch c.Auth.PinScheme {
	case "bcrypt", "plain":
	default:
		errs = append(errs, fmt.Errorf("auth.pin_scheme %q must be bcrypt or plain", c.Auth.PinScheme))
	}
	if c.Cash.Denomination < 1 {
		errs = append(errs, fmt.Errorf("cash.denomination must be >= 1, got %d", c.Cash.Denomination))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}
