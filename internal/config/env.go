package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultEnvFiles are loaded by Load in order; earlier files win because
// godotenv never overrides a variable that is already set.
var DefaultEnvFiles = []string{".env.local", ".env"}

// Config is the runtime configuration shared by every livecup command.
type Config struct {
	Instance       string   `env:"LIVECUP_INSTANCE" envDefault:"default"`
	ListenAddr     string   `env:"LIVECUP_LISTEN_ADDR" envDefault:"127.0.0.1:7880"`
	HubURL         string   `env:"LIVECUP_HUB_URL" envDefault:"ws://127.0.0.1:7880/rtc"`
	Room           string   `env:"LIVECUP_ROOM" envDefault:"cafe"`
	Identity       string   `env:"LIVECUP_IDENTITY"`
	DataTopic      string   `env:"LIVECUP_DATA_TOPIC"`
	AllowedOrigins []string `env:"LIVECUP_ALLOWED_ORIGINS" envSeparator:","`
	MetricsEnabled bool     `env:"LIVECUP_METRICS" envDefault:"true"`
	LedgerDB       string   `env:"LIVECUP_LEDGER_DB"`
	LogDir         string   `env:"LIVECUP_LOG_DIR"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads DefaultEnvFiles when present, then parses LIVECUP_* variables.
// Paths left empty fall back to the instance layout under ~/.livecup.
func Load() (Config, error) {
	return LoadFiles(DefaultEnvFiles...)
}

// LoadFiles is Load with an explicit list of dotenv files.
func LoadFiles(files ...string) (Config, error) {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	paths := ForInstance(cfg.Instance)
	if cfg.LedgerDB == "" {
		cfg.LedgerDB = paths.LedgerDB
	}
	if cfg.LogDir == "" {
		cfg.LogDir = paths.Logs
	}
	cfg.LedgerDB = ExpandHome(cfg.LedgerDB)
	cfg.LogDir = ExpandHome(cfg.LogDir)
	return cfg, nil
}

// EnsureDirs creates the directories the configured paths live in.
func (c Config) EnsureDirs() error {
	if err := ForInstance(c.Instance).Ensure(); err != nil {
		return fmt.Errorf("ensure instance directories: %w", err)
	}
	if err := os.MkdirAll(c.LogDir, 0o755); err != nil {
		return fmt.Errorf("ensure log directory: %w", err)
	}
	return nil
}
