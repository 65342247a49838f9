package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// AppName is used for the config directory and the environment prefix
const AppName = "hypr-socket-watch"

// EnvPrefix is prepended to upper-cased config keys for environment overrides
const EnvPrefix = "HYPR_SOCKET_WATCH"

var (
	// ErrMissingField is returned when a required key is absent or empty
	ErrMissingField = errors.New("missing required config field")
	// ErrNotFound is returned when the config file does not exist
	ErrNotFound = errors.New("config file not found")
)

// Config represents the watcher configuration. It is loaded once before the
// event loop starts and never mutated afterwards.
type Config struct {
	Monitor         string `json:"monitor" yaml:"monitor" mapstructure:"monitor"`
	Wallpapers      string `json:"wallpapers" yaml:"wallpapers" mapstructure:"wallpapers"`
	Debug           bool   `json:"debug" yaml:"debug" mapstructure:"debug"`
	PrettyLogs      bool   `json:"pretty_logs" yaml:"pretty_logs" mapstructure:"pretty_logs"`
	ApplyCommand    string `json:"apply_command" yaml:"apply_command" mapstructure:"apply_command"`
	Preload         bool   `json:"preload" yaml:"preload" mapstructure:"preload"`
	NotifyOnFailure bool   `json:"notify_on_failure" yaml:"notify_on_failure" mapstructure:"notify_on_failure"`
	StatusAddr      string `json:"status_addr" yaml:"status_addr,omitempty" mapstructure:"status_addr"`
	SocketPath      string `json:"socket_path" yaml:"socket_path,omitempty" mapstructure:"socket_path"`
}

// Validate checks required fields
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Monitor) == "" {
		return fmt.Errorf("%w: monitor", ErrMissingField)
	}
	if strings.TrimSpace(c.Wallpapers) == "" {
		return fmt.Errorf("%w: wallpapers", ErrMissingField)
	}
	if strings.TrimSpace(c.ApplyCommand) == "" {
		return fmt.Errorf("%w: apply_command", ErrMissingField)
	}
	return nil
}

// Manager locates and loads the configuration file
type Manager struct {
	configPath string
	v          *viper.Viper
}

// NewManager creates a configuration manager. An empty configFile selects
// the default location under the user's config directory.
func NewManager(configFile string) (*Manager, error) {
	path := configFile
	if path == "" {
		def, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = def
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return &Manager{configPath: path, v: v}, nil
}

// DefaultPath returns $XDG_CONFIG_HOME/hypr-socket-watch/config.yaml
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, AppName, "config.yaml"), nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("monitor", d.Monitor)
	v.SetDefault("wallpapers", d.Wallpapers)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("pretty_logs", d.PrettyLogs)
	v.SetDefault("apply_command", d.ApplyCommand)
	v.SetDefault("preload", d.Preload)
	v.SetDefault("notify_on_failure", d.NotifyOnFailure)
	v.SetDefault("status_addr", d.StatusAddr)
	v.SetDefault("socket_path", d.SocketPath)
}

// Defaults returns the configuration used for keys the file leaves out
func Defaults() Config {
	return Config{
		PrettyLogs:   true,
		ApplyCommand: "hyprctl",
	}
}

// BindFlag lets a command-line flag override the key when it is set
func (m *Manager) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return nil
	}
	return m.v.BindPFlag(key, flag)
}

// Load reads, decodes and validates the configuration
func (m *Manager) Load() (*Config, error) {
	if _, err := os.Stat(m.configPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, m.configPath)
		}
		return nil, fmt.Errorf("failed to stat config: %w", err)
	}

	if err := m.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	wallpapers, err := ExpandHome(cfg.Wallpapers)
	if err != nil {
		return nil, err
	}
	cfg.Wallpapers = wallpapers

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteDefault creates a starter config file. It refuses to overwrite an
// existing file.
func (m *Manager) WriteDefault(monitor, wallpapers string) error {
	if _, err := os.Stat(m.configPath); err == nil {
		return fmt.Errorf("config already exists: %s", m.configPath)
	}

	cfg := Defaults()
	cfg.Monitor = monitor
	cfg.Wallpapers = wallpapers

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// GetConfigPath returns the config file path
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// GetViper returns the underlying viper instance
func (m *Manager) GetViper() *viper.Viper {
	return m.v
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
