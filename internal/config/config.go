// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"sburbterm/internal/observability"
)

// Config is the full set of knobs for the game binary.
type Config struct {
	Debug   bool   `env:"DEBUG"`
	DataDir string `env:"SBURB_DATA_DIR" envDefault:"."`

	// SaveBackend selects the persistence medium: "sqlite" or "file".
	SaveBackend    string `env:"SBURB_SAVE_BACKEND" envDefault:"sqlite"`
	SavePath       string `env:"SBURB_SAVE_PATH" envDefault:"sburb.db"`
	SaveSlot       string `env:"SBURB_SAVE_SLOT" envDefault:"default"`
	CommandLogPath string `env:"SBURB_COMMAND_LOG" envDefault:"commands.db"`
	ContentPath    string `env:"SBURB_CONTENT"`

	Seed             int64         `env:"SBURB_SEED"`
	AutoSave         bool          `env:"SBURB_AUTOSAVE" envDefault:"true"`
	AutoSaveInterval time.Duration `env:"SBURB_AUTOSAVE_INTERVAL" envDefault:"30s"`
	NarrativeLength  string        `env:"SBURB_NARRATIVE_LENGTH" envDefault:"medium"`
	EchoLimit        int           `env:"SBURB_ECHO_LIMIT" envDefault:"10"`

	Addr string `env:"SBURB_ADDR" envDefault:"127.0.0.1:9779"`

	OpenAIKey   string `env:"OPENAI_API_KEY"`
	OpenAIModel string `env:"SBURB_LORE_MODEL" envDefault:"gpt-5-2025-08-07"`

	Tracing observability.Config
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	return LoadFrom(".env")
}

func LoadFrom(dotenv string) (Config, error) {
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", dotenv, err)
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	switch c.SaveBackend {
	case "sqlite", "file":
	default:
		return fmt.Errorf("SBURB_SAVE_BACKEND must be sqlite or file, got %q", c.SaveBackend)
	}
	switch c.NarrativeLength {
	case "short", "medium", "long":
	default:
		return fmt.Errorf("SBURB_NARRATIVE_LENGTH must be short, medium or long, got %q", c.NarrativeLength)
	}
	if c.EchoLimit < 1 {
		return fmt.Errorf("SBURB_ECHO_LIMIT must be positive, got %d", c.EchoLimit)
	}
	if c.AutoSave && c.AutoSaveInterval <= 0 {
		return fmt.Errorf("SBURB_AUTOSAVE_INTERVAL must be positive when autosave is on")
	}
	return nil
}

// Path resolves name inside the data directory unless it is absolute.
func (c Config) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// Exitf prints a formatted error and exits with status 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
