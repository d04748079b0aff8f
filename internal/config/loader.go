package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file.
const (
	EnvServer   = "HOOKSCOPE_SERVER"
	EnvAccount  = "HOOKSCOPE_ACCOUNT"
	EnvPageSize = "HOOKSCOPE_PAGE_SIZE"
	EnvLogLevel = "HOOKSCOPE_LOG_LEVEL"
)

// Dir returns ~/.config/hookscope.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "hookscope")
	}
	return filepath.Join(home, ".config", "hookscope")
}

// Path returns the location of the config file.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DataDir returns ~/.local/share/hookscope, where history and logs live.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".local", "share", "hookscope")
	}
	return filepath.Join(home, ".local", "share", "hookscope")
}

// Load loads ~/.config/hookscope/config.yaml over the defaults, then
// applies a .env file from the working directory and HOOKSCOPE_*
// environment variables. A missing or malformed file leaves the defaults
// in place.
func Load() Config {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(Path()); err == nil {
		fromFile := cfg
		if yaml.Unmarshal(data, &fromFile) == nil {
			cfg = fromFile
		}
	}

	// godotenv never overrides variables already set; a missing .env is fine.
	_ = godotenv.Load()
	applyEnv(&cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvServer)); v != "" {
		cfg.Server = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAccount)); v != "" {
		cfg.Account = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPageSize)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PageSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
}

// HistoryFile returns the sqlite path for the local capture history.
func (c Config) HistoryFile() string {
	if c.HistoryPath != "" {
		return expandHome(c.HistoryPath)
	}
	return filepath.Join(DataDir(), "history.db")
}

// LogPath returns the file the TUI logs to.
func (c Config) LogPath() string {
	if c.LogFile != "" {
		return expandHome(c.LogFile)
	}
	return filepath.Join(DataDir(), "hookscope.log")
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
