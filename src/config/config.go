package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"instant-copy/src/debounce"
)

const (
	EnvFileEnvVar    = "INSTANT_COPY_ENV"
	ConfigFileEnvVar = "INSTANT_COPY_CONFIG"

	SourcePrimary   = "primary"
	SourceClipboard = "clipboard"
	SourceWatch     = "watch"

	NotifyLog        = "log"
	NotifyDesktop    = "desktop"
	NotifyMessageBox = "messagebox"
	NotifyNone       = "none"

	DefaultToggleHotkey           = "Ctrl+Alt+C"
	DefaultBackgroundPollInterval = 2 * time.Second
	DefaultControlPortStart       = 49600
	DefaultControlPortEnd         = 49610
)

type LoadOptions struct {
	// ConfigPathOverride names a TOML file (--config); it wins over INSTANT_COPY_CONFIG.
	ConfigPathOverride string
	// NoAutoStart keeps detection off at launch (--no-auto-start).
	NoAutoStart bool
}

type Config struct {
	// Enabled=false leaves detection off at launch and skips the toggle hotkey; the
	// control commands still work.
	Enabled                bool
	AutoStart              bool
	MinLength              int
	RequiredConfirmations  int
	PollInterval           time.Duration
	Source                 string
	BackgroundSource       string
	BackgroundPollInterval time.Duration
	WritePolicy            string
	Notify                 string
	ToggleHotkey           string
	EnableFileLogging      bool
	ControlPortStart       int
	ControlPortEnd         int
	// ConfigPath is the TOML file that was applied, empty when none.
	ConfigPath string
}

// fileConfig mirrors the optional TOML file; unset keys keep the env value.
type fileConfig struct {
	Enabled                  *bool   `toml:"enabled"`
	AutoStart                *bool   `toml:"auto_start"`
	MinLength                *int    `toml:"min_length"`
	RequiredConfirmations    *int    `toml:"required_confirmations"`
	PollIntervalMS           *int    `toml:"poll_interval_ms"`
	Source                   *string `toml:"source"`
	BackgroundSource         *string `toml:"background_source"`
	BackgroundPollIntervalMS *int    `toml:"background_poll_interval_ms"`
	WritePolicy              *string `toml:"write_policy"`
	Notify                   *string `toml:"notify"`
	ToggleHotkey             *string `toml:"toggle_hotkey"`
	EnableFileLogging        *bool   `toml:"enable_file_logging"`
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) .env in the application (executable) directory, else INSTANT_COPY_ENV
	// 2) process environment
	// 3) TOML file from --config or INSTANT_COPY_CONFIG
	// 4) command line overrides
	if envPath := resolveEnvPath(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	var err error
	cfg := &Config{
		Enabled:           envBool("ENABLED", true),
		AutoStart:         envBool("AUTO_START", true),
		Source:            strings.ToLower(getEnvWithDefault("SOURCE", SourcePrimary)),
		BackgroundSource:  strings.ToLower(strings.TrimSpace(os.Getenv("BACKGROUND_SOURCE"))),
		WritePolicy:       strings.ToLower(getEnvWithDefault("WRITE_POLICY", "always")),
		Notify:            strings.ToLower(getEnvWithDefault("NOTIFY", NotifyLog)),
		ToggleHotkey:      getEnvWithDefault("TOGGLE_HOTKEY", DefaultToggleHotkey),
		EnableFileLogging: envBool("ENABLE_FILE_LOGGING", false),
	}
	if cfg.MinLength, err = envInt("MIN_LENGTH", debounce.DefaultMinLength); err != nil {
		return nil, err
	}
	if cfg.RequiredConfirmations, err = envInt("REQUIRED_CONFIRMATIONS", debounce.DefaultRequiredConfirmations); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = envMillis("POLL_INTERVAL_MS", debounce.DefaultPollInterval); err != nil {
		return nil, err
	}
	if cfg.BackgroundPollInterval, err = envMillis("BACKGROUND_POLL_INTERVAL_MS", DefaultBackgroundPollInterval); err != nil {
		return nil, err
	}
	cfg.ControlPortStart, cfg.ControlPortEnd = ControlPorts()

	if path := resolveConfigPath(opts); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
		cfg.ConfigPath = path
	}

	if opts.NoAutoStart {
		cfg.AutoStart = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Session returns the foreground detection settings.
func (c *Config) Session() debounce.Config {
	return debounce.Config{
		MinLength:             c.MinLength,
		RequiredConfirmations: c.RequiredConfirmations,
		PollInterval:          c.PollInterval,
	}
}

// BackgroundSession returns the settings of the optional background engine. Only the
// interval differs from the foreground one.
func (c *Config) BackgroundSession() debounce.Config {
	s := c.Session()
	s.PollInterval = c.BackgroundPollInterval
	return s
}

func (c *Config) Validate() error {
	if err := c.Session().Validate(); err != nil {
		return err
	}
	if err := c.BackgroundSession().Validate(); err != nil {
		return err
	}
	if !validSource(c.Source) {
		return fmt.Errorf("config: unknown SOURCE %q (want primary, clipboard or watch)", c.Source)
	}
	if c.BackgroundSource != "" && !validSource(c.BackgroundSource) {
		return fmt.Errorf("config: unknown BACKGROUND_SOURCE %q", c.BackgroundSource)
	}
	switch c.Notify {
	case NotifyLog, NotifyDesktop, NotifyMessageBox, NotifyNone:
	default:
		return fmt.Errorf("config: unknown NOTIFY %q", c.Notify)
	}
	switch c.WritePolicy {
	case "always", "skip-unchanged":
	default:
		return fmt.Errorf("config: unknown WRITE_POLICY %q", c.WritePolicy)
	}
	return nil
}

func validSource(s string) bool {
	switch s {
	case SourcePrimary, SourceClipboard, SourceWatch:
		return true
	}
	return false
}

func applyFile(cfg *Config, path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if fc.Enabled != nil {
		cfg.Enabled = *fc.Enabled
	}
	if fc.AutoStart != nil {
		cfg.AutoStart = *fc.AutoStart
	}
	if fc.MinLength != nil {
		cfg.MinLength = *fc.MinLength
	}
	if fc.RequiredConfirmations != nil {
		cfg.RequiredConfirmations = *fc.RequiredConfirmations
	}
	if fc.PollIntervalMS != nil {
		cfg.PollInterval = time.Duration(*fc.PollIntervalMS) * time.Millisecond
	}
	if fc.Source != nil {
		cfg.Source = strings.ToLower(strings.TrimSpace(*fc.Source))
	}
	if fc.BackgroundSource != nil {
		cfg.BackgroundSource = strings.ToLower(strings.TrimSpace(*fc.BackgroundSource))
	}
	if fc.BackgroundPollIntervalMS != nil {
		cfg.BackgroundPollInterval = time.Duration(*fc.BackgroundPollIntervalMS) * time.Millisecond
	}
	if fc.WritePolicy != nil {
		cfg.WritePolicy = strings.ToLower(strings.TrimSpace(*fc.WritePolicy))
	}
	if fc.Notify != nil {
		cfg.Notify = strings.ToLower(strings.TrimSpace(*fc.Notify))
	}
	if fc.ToggleHotkey != nil {
		cfg.ToggleHotkey = *fc.ToggleHotkey
	}
	if fc.EnableFileLogging != nil {
		cfg.EnableFileLogging = *fc.EnableFileLogging
	}
	return nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func resolveConfigPath(opts LoadOptions) string {
	if p := strings.TrimSpace(opts.ConfigPathOverride); p != "" {
		return p
	}
	return strings.TrimSpace(os.Getenv(ConfigFileEnvVar))
}

// ControlPorts reads CONTROL_PORT_START/END, falling back to the defaults when unset,
// malformed or inverted.
func ControlPorts() (start, end int) {
	start, end = DefaultControlPortStart, DefaultControlPortEnd
	if v, err := strconv.Atoi(os.Getenv("CONTROL_PORT_START")); err == nil && v > 0 && v < 65536 {
		start = v
	}
	if v, err := strconv.Atoi(os.Getenv("CONTROL_PORT_END")); err == nil && v > 0 && v < 65536 {
		end = v
	}
	if end < start {
		return DefaultControlPortStart, DefaultControlPortEnd
	}
	return start, end
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func envBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func envInt(key string, defaultValue int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func envMillis(key string, defaultValue time.Duration) (time.Duration, error) {
	n, err := envInt(key, int(defaultValue/time.Millisecond))
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Millisecond, nil
}
