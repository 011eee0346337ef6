// Package config loads client settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName        = "bookpilot"
	configFileName = "config.yaml"

	// DefaultAPIURL is used when neither the file nor the environment set one.
	DefaultAPIURL = "http://localhost:8000/api/v1"

	EnvAPIURL  = "BOOKPILOT_API_URL"
	EnvTimeout = "BOOKPILOT_TIMEOUT"
)

// Config holds client settings.
type Config struct {
	APIURL string `yaml:"api_url"`
	// Timeout bounds each API request. Zero means requests never time out.
	Timeout  time.Duration `yaml:"timeout"`
	StateDir string        `yaml:"state_dir"`
	LogFile  string        `yaml:"log_file"`
	Verbose  bool          `yaml:"verbose"`
}

// Default returns the built-in settings.
func Default() Config {
	state := StateDir()
	return Config{
		APIURL:   DefaultAPIURL,
		StateDir: state,
		LogFile:  logFileIn(state),
	}
}

func logFileIn(stateDir string) string {
	return filepath.Join(stateDir, appName+".log")
}

// Load reads path (or the default config file when path is empty) and applies
// environment overrides. A missing default file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	// Unset until the file is read so the log follows a configured state_dir
	cfg.LogFile = ""

	explicit := path != ""
	if !explicit {
		path = filepath.Join(ConfigDir(), configFileName)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if cfg.LogFile == "" {
		cfg.LogFile = logFileIn(cfg.StateDir)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks the settings are usable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return errors.New("api_url is required")
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("api_url %q must be an http(s) URL", c.APIURL)
	}
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	return nil
}

// StateDir returns XDG_STATE_HOME/bookpilot or ~/.local/state/bookpilot
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", appName)
}

// ConfigDir returns XDG_CONFIG_HOME/bookpilot or ~/.config/bookpilot
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}
