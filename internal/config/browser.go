package config

import (
	"time"

	"github.com/DevGuyRash/zybooks-problem-solver/internal/surface"
)

// BrowserConfig configures the Chrome connection.
type BrowserConfig struct {
	// DebuggerURL attaches to an already-running Chrome with remote
	// debugging enabled, so the existing zyBooks login is reused. Empty
	// launches a fresh browser.
	DebuggerURL string `yaml:"debugger_url"`

	// Bin is the Chrome binary for fresh launches. Empty lets the
	// launcher find one.
	Bin string `yaml:"bin"`

	// ExtraFlags are raw Chrome flags, "name" or "name=value".
	ExtraFlags []string `yaml:"extra_flags"`

	Headless bool `yaml:"headless"`

	// UserDataDir keeps the login cookie across fresh launches.
	UserDataDir string `yaml:"user_data_dir"`

	ViewportWidth  int `yaml:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height"`

	// NavigationTimeout bounds page loads, e.g. "45s".
	NavigationTimeout string `yaml:"navigation_timeout"`
}

func (b *BrowserConfig) navTimeoutOrDefault() string {
	if b.NavigationTimeout == "" {
		return "45s"
	}
	return b.NavigationTimeout
}

// NavTimeout returns the navigation timeout as a duration.
func (b *BrowserConfig) NavTimeout() time.Duration {
	d, err := time.ParseDuration(b.navTimeoutOrDefault())
	if err != nil {
		return 45 * time.Second
	}
	return d
}

// LiveOptions maps the browser section onto live surface options.
func (c *Config) LiveOptions() surface.LiveOptions {
	return surface.LiveOptions{
		DebuggerURL:       c.Browser.DebuggerURL,
		Bin:               c.Browser.Bin,
		ExtraFlags:        c.Browser.ExtraFlags,
		Headless:          c.Browser.Headless,
		UserDataDir:       c.Browser.UserDataDir,
		ViewportWidth:     c.Browser.ViewportWidth,
		ViewportHeight:    c.Browser.ViewportHeight,
		NavigationTimeout: c.Browser.NavTimeout(),
	}
}
