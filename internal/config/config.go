package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	appName   = "llm-playground"
	envPrefix = "LLM_PLAYGROUND"
)

// Variables the web frontend used for the backend address. They are read
// when nothing more specific is configured.
var legacyEndpointVars = []string{"REACT_APP_BACKEND_ENDPOINT", "BACKEND_ENDPOINT"}

type Config struct {
	Backend BackendConfig `mapstructure:"backend"`
	Stream  bool          `mapstructure:"stream"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Params  ParamsConfig  `mapstructure:"params"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type BackendConfig struct {
	Endpoint string `mapstructure:"endpoint"` // host:port
	Secure   bool   `mapstructure:"secure"`   // wss and https
	Path     string `mapstructure:"path"`     // socket path
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay"`
}

type ParamsConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	File        string `mapstructure:"file"`
	Development bool   `mapstructure:"development"`
}

type MetricsConfig struct {
	Addr  string `mapstructure:"addr"`
	Pprof bool   `mapstructure:"pprof"`
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	File   string // explicit config file; empty searches the default locations
	EnvDir string // directory holding an optional .env file; empty is the working directory
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.endpoint", "localhost:8000")
	v.SetDefault("backend.secure", false)
	v.SetDefault("backend.path", "/completions")
	v.SetDefault("stream", true)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.delay", time.Second)
	v.SetDefault("params.debounce", 5*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.development", false)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.pprof", false)
}

// Load reads defaults, the config file, a .env file and the environment,
// in increasing order of precedence.
func Load(opts LoadOptions) (*Config, error) {
	if err := loadDotEnv(opts.EnvDir); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := configDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if !v.InConfig("backend.endpoint") && os.Getenv(envPrefix+"_BACKEND_ENDPOINT") == "" {
		for _, name := range legacyEndpointVars {
			if val := os.Getenv(name); val != "" {
				cfg.Backend.Endpoint = val
				break
			}
		}
	}

	endpoint, err := ResolveValue(cfg.Backend.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("resolve backend endpoint: %w", err)
	}
	cfg.Backend.Endpoint = endpoint
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// normalize accepts endpoints written as URLs and moves the scheme into
// Secure.
func (c *Config) normalize() {
	ep := strings.TrimSpace(c.Backend.Endpoint)
	if i := strings.Index(ep, "://"); i >= 0 {
		switch strings.ToLower(ep[:i]) {
		case "https", "wss":
			c.Backend.Secure = true
		}
		ep = ep[i+3:]
	}
	c.Backend.Endpoint = strings.TrimRight(ep, "/")
	if c.Backend.Path != "" && !strings.HasPrefix(c.Backend.Path, "/") {
		c.Backend.Path = "/" + c.Backend.Path
	}
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	if c.Backend.Endpoint == "" {
		return errors.New("backend.endpoint must not be empty")
	}
	if _, err := url.Parse("http://" + c.Backend.Endpoint); err != nil {
		return fmt.Errorf("backend.endpoint %q: %w", c.Backend.Endpoint, err)
	}
	if c.Backend.Path == "" {
		return errors.New("backend.path must not be empty")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("retry.delay must not be negative, got %s", c.Retry.Delay)
	}
	if c.Params.Debounce < 0 {
		return fmt.Errorf("params.debounce must not be negative, got %s", c.Params.Debounce)
	}
	return nil
}

// Overrides are command-line values that win over every other source.
type Overrides struct {
	Endpoint string
	Path     string
	Secure   *bool
	LogLevel string
}

// ApplyOverrides applies non-empty overrides.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Endpoint != "" {
		c.Backend.Endpoint = o.Endpoint
	}
	if o.Path != "" {
		c.Backend.Path = o.Path
	}
	if o.Secure != nil {
		c.Backend.Secure = *o.Secure
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	c.normalize()
}

// WebsocketURL is the streaming endpoint, e.g. ws://localhost:8000/completions.
func (c *Config) WebsocketURL() string {
	scheme := "ws"
	if c.Backend.Secure {
		scheme = "wss"
	}
	return scheme + "://" + c.Backend.Endpoint + c.Backend.Path
}

// HTTPBaseURL is the base of the settings endpoints.
func (c *Config) HTTPBaseURL() string {
	scheme := "http"
	if c.Backend.Secure {
		scheme = "https"
	}
	return scheme + "://" + c.Backend.Endpoint
}

// YAML renders the config in the file format Load reads.
func (c *Config) YAML() ([]byte, error) {
	doc := map[string]any{
		"backend": map[string]any{
			"endpoint": c.Backend.Endpoint,
			"secure":   c.Backend.Secure,
			"path":     c.Backend.Path,
		},
		"stream": c.Stream,
		"retry": map[string]any{
			"max_attempts": c.Retry.MaxAttempts,
			"delay":        c.Retry.Delay.String(),
		},
		"params": map[string]any{
			"debounce": c.Params.Debounce.String(),
		},
		"log": map[string]any{
			"level":       c.Log.Level,
			"file":        c.Log.File,
			"development": c.Log.Development,
		},
		"metrics": map[string]any{
			"addr":  c.Metrics.Addr,
			"pprof": c.Metrics.Pprof,
		},
	}
	return yaml.Marshal(doc)
}

func configDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config dir: %w", err)
	}
	return filepath.Join(dir, appName), nil
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Exists returns true if a config file exists
func Exists() bool {
	path, err := GetConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Save writes the config to path, or to the default location when path is empty.
func Save(cfg *Config, path string) (string, error) {
	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := cfg.YAML()
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}
