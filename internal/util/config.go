package util

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Backend names accepted by Config.Backend.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config holds runtime settings. Environment variables seed it; command-line flags override.
type Config struct {
	Addr      string `env:"GM_ADDR" envDefault:":3001"`
	DataDir   string `env:"GM_DATA_DIR" envDefault:"../data"`
	NotesDir  string `env:"GM_NOTES_DIR"`
	PublicDir string `env:"GM_PUBLIC_DIR" envDefault:"./public"`
	Backend   string `env:"GM_BACKEND" envDefault:"file"`
	DSN       string `env:"DATABASE_URL"`
	RulesPath string `env:"GM_RULES"`
	Debug     bool   `env:"GM_DEBUG"`
}

// FromEnv parses the environment into a Config.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendFile:
	case BackendPostgres:
		if c.DSN == "" {
			return fmt.Errorf("backend %q requires a DSN", c.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q (want file|postgres)", c.Backend)
	}
	return nil
}

// NoteCandidates lists where mission notes are looked for when no directory is configured,
// in order of preference.
func NoteCandidates(exeDir, cwd string) []string {
	return []string{
		filepath.Join(exeDir, "..", "missionNotes"),
		filepath.Join(cwd, "missionNotes"),
		filepath.Join(cwd, "..", "missionNotes"),
	}
}

// ExeDir is the directory of the running binary, falling back to the working directory.
func ExeDir() string {
	exe, err := os.Executable()
	if err != nil {
		wd, _ := os.Getwd()
		return wd
	}
	return filepath.Dir(exe)
}
