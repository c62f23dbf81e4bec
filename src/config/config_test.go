package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"instant-copy/src/debounce"
)

var envKeys = []string{
	"ENABLED", "AUTO_START", "MIN_LENGTH", "REQUIRED_CONFIRMATIONS", "POLL_INTERVAL_MS",
	"SOURCE", "BACKGROUND_SOURCE", "BACKGROUND_POLL_INTERVAL_MS", "WRITE_POLICY", "NOTIFY",
	"TOGGLE_HOTKEY", "ENABLE_FILE_LOGGING", "CONTROL_PORT_START", "CONTROL_PORT_END",
	EnvFileEnvVar, ConfigFileEnvVar,
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.Enabled || !cfg.AutoStart {
		t.Errorf("Expected Enabled and AutoStart by default, got %v/%v", cfg.Enabled, cfg.AutoStart)
	}
	if got := cfg.Session(); got != debounce.DefaultConfig() {
		t.Errorf("Expected default session %+v, got %+v", debounce.DefaultConfig(), got)
	}
	if cfg.Source != SourcePrimary || cfg.BackgroundSource != "" {
		t.Errorf("Unexpected sources %q/%q", cfg.Source, cfg.BackgroundSource)
	}
	if cfg.BackgroundPollInterval != DefaultBackgroundPollInterval {
		t.Errorf("Expected background interval %v, got %v", DefaultBackgroundPollInterval, cfg.BackgroundPollInterval)
	}
	if cfg.ToggleHotkey != DefaultToggleHotkey || cfg.Notify != NotifyLog || cfg.WritePolicy != "always" {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.ControlPortStart != DefaultControlPortStart || cfg.ControlPortEnd != DefaultControlPortEnd {
		t.Errorf("Unexpected control ports %d-%d", cfg.ControlPortStart, cfg.ControlPortEnd)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MIN_LENGTH", "5")
	t.Setenv("REQUIRED_CONFIRMATIONS", "3")
	t.Setenv("POLL_INTERVAL_MS", "250")
	t.Setenv("SOURCE", "Clipboard")
	t.Setenv("BACKGROUND_SOURCE", "watch")
	t.Setenv("BACKGROUND_POLL_INTERVAL_MS", "5000")
	t.Setenv("ENABLE_FILE_LOGGING", "true")
	t.Setenv("AUTO_START", "false")
	t.Setenv("TOGGLE_HOTKEY", "Ctrl+Shift+T")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	want := debounce.Config{MinLength: 5, RequiredConfirmations: 3, PollInterval: 250 * time.Millisecond}
	if got := cfg.Session(); got != want {
		t.Errorf("Session() = %+v, want %+v", got, want)
	}
	if got := cfg.BackgroundSession().PollInterval; got != 5*time.Second {
		t.Errorf("BackgroundSession().PollInterval = %v", got)
	}
	if cfg.Source != SourceClipboard || cfg.BackgroundSource != SourceWatch {
		t.Errorf("Unexpected sources %q/%q", cfg.Source, cfg.BackgroundSource)
	}
	if !cfg.EnableFileLogging || cfg.AutoStart {
		t.Errorf("Unexpected flags: logging=%v autostart=%v", cfg.EnableFileLogging, cfg.AutoStart)
	}
	if cfg.ToggleHotkey != "Ctrl+Shift+T" {
		t.Errorf("Expected ToggleHotkey 'Ctrl+Shift+T', got %q", cfg.ToggleHotkey)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
		configErr  bool
	}{
		{"MIN_LENGTH", "0", true},
		{"REQUIRED_CONFIRMATIONS", "-1", true},
		{"POLL_INTERVAL_MS", "0", true},
		{"MIN_LENGTH", "three", false},
		{"SOURCE", "x11", false},
		{"NOTIFY", "email", false},
		{"WRITE_POLICY", "sometimes", false},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
			var cfgErr *debounce.ConfigError
			if got := errors.As(err, &cfgErr); got != tt.configErr {
				t.Errorf("errors.As(ConfigError) = %v, want %v (err: %v)", got, tt.configErr, err)
			}
		})
	}
}

func TestTOMLFileOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MIN_LENGTH", "5")
	t.Setenv("NOTIFY", "none")

	path := filepath.Join(t.TempDir(), "instant-copy.toml")
	writeFile(t, path, `
min_length = 8
poll_interval_ms = 400
source = "watch"
write_policy = "skip-unchanged"
`)

	cfg, err := LoadWithOptions(LoadOptions{ConfigPathOverride: path, NoAutoStart: true})
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.MinLength != 8 || cfg.PollInterval != 400*time.Millisecond {
		t.Errorf("TOML values not applied: %+v", cfg.Session())
	}
	if cfg.Notify != NotifyNone {
		t.Errorf("env value lost for key missing from file, Notify = %q", cfg.Notify)
	}
	if cfg.Source != SourceWatch || cfg.WritePolicy != "skip-unchanged" {
		t.Errorf("Unexpected source/policy %q/%q", cfg.Source, cfg.WritePolicy)
	}
	if cfg.AutoStart {
		t.Errorf("NoAutoStart override ignored")
	}
	if cfg.ConfigPath != path {
		t.Errorf("ConfigPath = %q, want %q", cfg.ConfigPath, path)
	}
}

func TestConfigPathFromEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "c.toml")
	writeFile(t, path, "required_confirmations = 4\n")
	t.Setenv(ConfigFileEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.RequiredConfirmations != 4 {
		t.Errorf("RequiredConfirmations = %d, want 4", cfg.RequiredConfirmations)
	}
}

func TestMalformedTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	writeFile(t, path, "min_length = [\n")
	if _, err := LoadWithOptions(LoadOptions{ConfigPathOverride: path}); err == nil {
		t.Fatal("expected error for malformed TOML")
	}
}

func TestDotenvFileFromEnvVar(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "custom.env")
	writeFile(t, path, "REQUIRED_CONFIRMATIONS=6\n")
	t.Setenv(EnvFileEnvVar, path)
	// godotenv.Load sets the variable for the process; restore it afterwards.
	t.Cleanup(func() { os.Unsetenv("REQUIRED_CONFIRMATIONS") })
	os.Unsetenv("REQUIRED_CONFIRMATIONS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.RequiredConfirmations != 6 {
		t.Errorf("RequiredConfirmations = %d, want 6", cfg.RequiredConfirmations)
	}
}

func TestControlPorts(t *testing.T) {
	tests := []struct {
		start, end         string
		wantStart, wantEnd int
	}{
		{"", "", DefaultControlPortStart, DefaultControlPortEnd},
		{"50000", "50005", 50000, 50005},
		{"50010", "50000", DefaultControlPortStart, DefaultControlPortEnd},
		{"abc", "70000", DefaultControlPortStart, DefaultControlPortEnd},
	}
	for _, tt := range tests {
		t.Setenv("CONTROL_PORT_START", tt.start)
		t.Setenv("CONTROL_PORT_END", tt.end)
		start, end := ControlPorts()
		if start != tt.wantStart || end != tt.wantEnd {
			t.Errorf("ControlPorts(%q,%q) = %d-%d, want %d-%d", tt.start, tt.end, start, end, tt.wantStart, tt.wantEnd)
		}
	}
}

func TestWatchReloadsOnChange(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "watched.toml")
	writeFile(t, path, "min_length = 3\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, LoadOptions{}, path, func(c *Config) { reloaded <- c }) }()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "min_length = 0\n")
	select {
	case c := <-reloaded:
		t.Fatalf("invalid file must not be delivered, got %+v", c.Session())
	case <-time.After(400 * time.Millisecond):
	}

	writeFile(t, path, "min_length = 9\n")
	select {
	case c := <-reloaded:
		if c.MinLength != 9 {
			t.Errorf("reloaded MinLength = %d, want 9", c.MinLength)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("config change not delivered")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned %v", err)
	}
}

func TestWatchWithoutFile(t *testing.T) {
	if err := Watch(context.Background(), LoadOptions{}, "", func(*Config) {}); !errors.Is(err, ErrNoConfigFile) {
		t.Errorf("Watch(\"\") = %v, want ErrNoConfigFile", err)
	}
}
