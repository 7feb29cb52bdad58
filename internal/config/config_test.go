package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Browser.ViewportWidth != 1920 {
		t.Errorf("expected ViewportWidth=1920, got %d", cfg.Browser.ViewportWidth)
	}
	if cfg.Probes.Path != filepath.Join(".zysolver", "probes.yaml") {
		t.Errorf("unexpected probes path: %s", cfg.Probes.Path)
	}
	if cfg.Timing.VerifyTimeout != "6s" {
		t.Errorf("expected VerifyTimeout=6s, got %s", cfg.Timing.VerifyTimeout)
	}
	if cfg.Logging.DebugMode {
		t.Error("debug mode should default to off")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	// Ensure no env vars interfere
	t.Setenv("ZYSOLVER_DEBUGGER_URL", "")
	t.Setenv("ZYSOLVER_HEADLESS", "")
	t.Setenv("ZYSOLVER_PROBES", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Browser.DebuggerURL = "http://127.0.0.1:9222"
	cfg.Browser.Headless = true
	cfg.Timing.PaceMin = "10ms"
	cfg.Timing.PaceMax = "20ms"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Browser.DebuggerURL != "http://127.0.0.1:9222" {
		t.Errorf("expected DebuggerURL round-trip, got %s", loaded.Browser.DebuggerURL)
	}
	if !loaded.Browser.Headless {
		t.Error("expected Headless=true")
	}
	if loaded.Timing.PaceMin != "10ms" {
		t.Errorf("expected PaceMin=10ms, got %s", loaded.Timing.PaceMin)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("ZYSOLVER_DEBUGGER_URL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load of missing file should not fail: %v", err)
	}
	if cfg.Browser.ViewportWidth != 1920 {
		t.Errorf("expected defaults, got ViewportWidth=%d", cfg.Browser.ViewportWidth)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("browser: [not a mapping"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error for malformed yaml")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got: %v", err)
	}

	cfg.Timing.VerifyTimeout = "not-a-duration"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for bad duration")
	}

	cfg = DefaultConfig()
	cfg.Timing.PaceMin = "2s"
	cfg.Timing.PaceMax = "1s"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for pace_min > pace_max")
	}

	cfg = DefaultConfig()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown log level")
	}

	cfg = DefaultConfig()
	cfg.Browser.ViewportWidth = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for negative viewport")
	}
}

func TestSolveTiming_FallbacksAndOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timing.PollInterval = "25ms"
	cfg.Timing.PaceMin = "0s"
	cfg.Timing.PaceMax = "0s"
	cfg.Timing.VerifyTimeout = "garbage"
	cfg.Timing.AnimationMaxSteps = 0

	timing := cfg.SolveTiming()

	if timing.PollInterval != 25*time.Millisecond {
		t.Errorf("expected PollInterval=25ms, got %v", timing.PollInterval)
	}
	// Explicit zero pacing is honored, not treated as unset.
	if timing.PaceMin != 0 || timing.PaceMax != 0 {
		t.Errorf("expected zero pacing, got %v/%v", timing.PaceMin, timing.PaceMax)
	}
	// Unparsable values keep the default.
	if timing.VerifyTimeout != 6*time.Second {
		t.Errorf("expected default VerifyTimeout, got %v", timing.VerifyTimeout)
	}
	if timing.AnimationMaxSteps != 60 {
		t.Errorf("expected default AnimationMaxSteps, got %d", timing.AnimationMaxSteps)
	}
}

func TestLiveOptions_Mapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Browser.DebuggerURL = "ws://127.0.0.1:9222/devtools"
	cfg.Browser.ExtraFlags = []string{"disable-gpu"}
	cfg.Browser.NavigationTimeout = "10s"

	opts := cfg.LiveOptions()

	if opts.DebuggerURL != cfg.Browser.DebuggerURL {
		t.Errorf("DebuggerURL not mapped: %s", opts.DebuggerURL)
	}
	if len(opts.ExtraFlags) != 1 || opts.ExtraFlags[0] != "disable-gpu" {
		t.Errorf("ExtraFlags not mapped: %v", opts.ExtraFlags)
	}
	if opts.NavigationTimeout != 10*time.Second {
		t.Errorf("expected NavigationTimeout=10s, got %v", opts.NavigationTimeout)
	}

	// Bad duration falls back rather than mapping zero.
	cfg.Browser.NavigationTimeout = "bad"
	if d := cfg.LiveOptions().NavigationTimeout; d != 45*time.Second {
		t.Errorf("expected fallback NavigationTimeout, got %v", d)
	}
}

func TestProbesPath(t *testing.T) {
	cfg := DefaultConfig()

	got := cfg.ProbesPath("/home/user/project")
	want := filepath.Join("/home/user/project", ".zysolver", "probes.yaml")
	if got != want {
		t.Errorf("ProbesPath=%q, want %q", got, want)
	}

	cfg.Probes.Path = "/etc/zysolver/probes.yaml"
	if got := cfg.ProbesPath("/ignored"); got != "/etc/zysolver/probes.yaml" {
		t.Errorf("absolute path should pass through, got %q", got)
	}
}

func TestFindWorkspaceRoot_PrefersDotDir(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".zysolver"), 0o755); err != nil {
		t.Fatalf("mkdir .zysolver: %v", err)
	}
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir nested: %v", err)
	}

	origWD, _ := os.Getwd()
	if err := os.Chdir(nested); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWD) })

	got, err := FindWorkspaceRoot()
	if err != nil {
		t.Fatalf("FindWorkspaceRoot: %v", err)
	}
	if resolved, _ := filepath.EvalSymlinks(got); resolved != mustEval(t, root) {
		t.Fatalf("FindWorkspaceRoot=%q, want %q", got, root)
	}
}

func TestFindWorkspaceRoot_FallsBackToCwd(t *testing.T) {
	dir := t.TempDir()

	origWD, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWD) })

	got, err := FindWorkspaceRoot()
	if err != nil {
		t.Fatalf("FindWorkspaceRoot: %v", err)
	}
	if resolved, _ := filepath.EvalSymlinks(got); resolved != mustEval(t, dir) {
		t.Fatalf("FindWorkspaceRoot=%q, want cwd %q", got, dir)
	}
}

// mustEval resolves symlinks so temp dirs compare equal on platforms
// where /tmp is a link.
func mustEval(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		t.Fatalf("EvalSymlinks(%q): %v", path, err)
	}
	return resolved
}
