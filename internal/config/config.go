// Package config loads taskdeck settings from defaults, a YAML file,
// TASKDECK_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dori/taskdeck/internal/db"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. TASKDECK_API_URL
const EnvPrefix = "TASKDECK"

const (
	KeyAPIURL        = "api_url"
	KeyDataDir       = "data_dir"
	KeyTheme         = "theme"
	KeyNotifications = "notifications"
	KeyDebug         = "debug"
	KeyHTTPTimeout   = "http_timeout"
)

// ErrExists is returned by WriteDefault when the file is already there
var ErrExists = errors.New("config file already exists")

// Config is the merged taskdeck configuration
type Config struct {
	APIURL        string        `yaml:"api_url" mapstructure:"api_url"`
	DataDir       string        `yaml:"data_dir" mapstructure:"data_dir"`
	Theme         string        `yaml:"theme" mapstructure:"theme"`
	Notifications bool          `yaml:"notifications" mapstructure:"notifications"`
	Debug         bool          `yaml:"debug" mapstructure:"debug"`
	HTTPTimeout   time.Duration `yaml:"-" mapstructure:"http_timeout"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		APIURL:        "http://localhost:8000",
		DataDir:       db.DefaultDataDir(),
		Theme:         "nord",
		Notifications: true,
	}
}

// NewViper returns a viper instance carrying the defaults and env binding.
// Callers may bind flags into it before calling Load.
func NewViper() *viper.Viper {
	def := DefaultConfig()
	v := viper.New()
	v.SetDefault(KeyAPIURL, def.APIURL)
	v.SetDefault(KeyDataDir, def.DataDir)
	v.SetDefault(KeyTheme, def.Theme)
	v.SetDefault(KeyNotifications, def.Notifications)
	v.SetDefault(KeyDebug, def.Debug)
	v.SetDefault(KeyHTTPTimeout, def.HTTPTimeout)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the file at path (DefaultPath when empty) into v and returns
// the merged config. A missing file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = NewViper()
	}
	if path == "" {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.DataDir = expandHome(cfg.DataDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later and less clearly
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api_url %q: want http(s)://host[:port]", c.APIURL)
	}
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("invalid http_timeout %s: must not be negative", c.HTTPTimeout)
	}
	return nil
}

// YAML renders the config for display
func (c *Config) YAML() ([]byte, error) {
	type view struct {
		Config      `yaml:",inline"`
		HTTPTimeout string `yaml:"http_timeout"`
	}
	return yaml.Marshal(view{Config: *c, HTTPTimeout: c.HTTPTimeout.String()})
}

// DefaultPath returns ~/.config/taskdeck/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskdeck", "config.yaml")
}

// WriteDefault writes a commented default config to path. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	content := `# taskdeck configuration
# Every key can be overridden with a TASKDECK_<KEY> environment variable.

# Root of the task API
api_url: http://localhost:8000

# Where the session store, lock file and debug log live
# data_dir: ~/.local/share/taskdeck

# nord or gruvbox
theme: nord

# Desktop notification when a task is completed (uses notify-send)
notifications: true

# Write a debug log to <data_dir>/taskdeck.log
debug: false

# Per-request timeout, e.g. 10s. 0 disables the timeout.
http_timeout: 0s
`
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
		return fmt.Errorf("failed to create config: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
