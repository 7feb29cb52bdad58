// Package config holds the zysolver configuration loaded from
// .zysolver/config.yaml, with environment overrides for the settings
// that change per machine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all zysolver configuration.
type Config struct {
	// Browser connection and launch settings
	Browser BrowserConfig `yaml:"browser"`

	// Selector probe file location
	Probes ProbesConfig `yaml:"probes"`

	// Solver pacing and verification windows
	Timing TimingConfig `yaml:"timing"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ProbesConfig locates the selector probe file. The path is relative to
// the workspace root unless absolute.
type ProbesConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			DebuggerURL:       "",
			Bin:               "",
			Headless:          false,
			UserDataDir:       filepath.Join(".zysolver", "chrome"),
			ViewportWidth:     1920,
			ViewportHeight:    1080,
			NavigationTimeout: "45s",
		},

		Probes: ProbesConfig{
			Path: filepath.Join(".zysolver", "probes.yaml"),
		},

		Timing: TimingConfig{
			PaceMin:           "500ms",
			PaceMax:           "1500ms",
			PollInterval:      "250ms",
			ConfirmDelay:      "250ms",
			VerifyTimeout:     "6s",
			RevealSettle:      "400ms",
			MatchSettle:       "600ms",
			AnimationPoll:     "500ms",
			AnimationMaxSteps: 60,
			AnimationCeiling:  "3m",
		},

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file is not an
// error; defaults plus environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("ZYSOLVER_DEBUGGER_URL"); url != "" {
		c.Browser.DebuggerURL = url
	}
	if bin := os.Getenv("ZYSOLVER_BROWSER_BIN"); bin != "" {
		c.Browser.Bin = bin
	}
	if v := os.Getenv("ZYSOLVER_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = b
		}
	}
	if dir := os.Getenv("ZYSOLVER_USER_DATA_DIR"); dir != "" {
		c.Browser.UserDataDir = dir
	}
	if path := os.Getenv("ZYSOLVER_PROBES"); path != "" {
		c.Probes.Path = path
	}
	if v := os.Getenv("ZYSOLVER_VERIFY_TIMEOUT"); v != "" {
		c.Timing.VerifyTimeout = v
	}
	if v := os.Getenv("ZYSOLVER_POLL_INTERVAL"); v != "" {
		c.Timing.PollInterval = v
	}
	if v := os.Getenv("ZYSOLVER_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
	if level := os.Getenv("ZYSOLVER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "warning", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Browser.ViewportWidth < 0 || c.Browser.ViewportHeight < 0 {
		return fmt.Errorf("browser viewport dimensions cannot be negative")
	}
	if _, err := time.ParseDuration(c.Browser.navTimeoutOrDefault()); err != nil {
		return fmt.Errorf("invalid browser.navigation_timeout: %w", err)
	}

	if err := c.Timing.validate(); err != nil {
		return err
	}

	if c.Logging.Level != "" {
		valid := false
		for _, l := range ValidLogLevels {
			if c.Logging.Level == l {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid logging.level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
		}
	}

	return nil
}

// ProbesPath resolves the probe file path against the workspace root.
func (c *Config) ProbesPath(workspace string) string {
	if filepath.IsAbs(c.Probes.Path) {
		return c.Probes.Path
	}
	return filepath.Join(workspace, c.Probes.Path)
}

// DefaultConfigPath returns the default path to .zysolver/config.yaml.
func DefaultConfigPath() string {
	root, err := FindWorkspaceRoot()
	if err != nil {
		return filepath.Join(".zysolver", "config.yaml")
	}
	return filepath.Join(root, ".zysolver", "config.yaml")
}

// FindWorkspaceRoot attempts to find the workspace root by looking for a
// .zysolver directory, walking up from the current directory. If none
// exists, returns the current working directory.
func FindWorkspaceRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	originalDir := dir
	for {
		if _, err := os.Stat(filepath.Join(dir, ".zysolver")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return originalDir, nil
}
