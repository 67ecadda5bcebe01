package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tnunamak/claudebar/internal/api"
	"github.com/tnunamak/claudebar/internal/display"
)

const minPollInterval = 10 * time.Second

type APIConfig struct {
	URL  string `yaml:"url"`
	Beta string `yaml:"beta"`
}

type CredentialsConfig struct {
	Source  string `yaml:"source"` // auto, keychain, file, env
	Service string `yaml:"service"`
	File    string `yaml:"file"`
	Watch   *bool  `yaml:"watch"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
	File   string `yaml:"file"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the local HTTP surface
}

type Config struct {
	PollInterval   time.Duration     `yaml:"poll_interval"`
	RequestTimeout time.Duration     `yaml:"request_timeout"`
	ErrorWidth     int               `yaml:"error_width"`
	API            APIConfig         `yaml:"api"`
	Credentials    CredentialsConfig `yaml:"credentials"`
	Log            LogConfig         `yaml:"log"`
	HTTP           HTTPConfig        `yaml:"http"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// DefaultPath is $XDG_CONFIG_HOME/claudebar/config.yaml or its platform
// equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "claudebar", "config.yaml")
}

// Load reads path, falling back to defaults when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err == nil {
		data = expandEnvVars(data)
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.PollInterval == 0 {
		c.PollInterval = 120 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = api.DefaultTimeout
	}
	if c.ErrorWidth == 0 {
		c.ErrorWidth = display.DefaultErrorWidth
	}
	if c.API.URL == "" {
		c.API.URL = api.DefaultUsageURL
	}
	if c.API.Beta == "" {
		c.API.Beta = api.DefaultBetaHeader
	}
	if c.Credentials.Source == "" {
		c.Credentials.Source = "auto"
	}
	if c.Credentials.Service == "" {
		c.Credentials.Service = api.DefaultKeychainService
	}
	if c.Credentials.File == "" {
		if p, err := api.DefaultCredentialsPath(); err == nil {
			c.Credentials.File = p
		}
	}
	c.Credentials.File = expandHome(c.Credentials.File)
	if c.Credentials.Watch == nil {
		watch := true
		c.Credentials.Watch = &watch
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	c.Log.File = expandHome(c.Log.File)
}

func (c *Config) Validate() error {
	if c.PollInterval < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be > 0, got %s", c.RequestTimeout)
	}
	if c.ErrorWidth < 0 {
		return fmt.Errorf("error_width must be >= 0, got %d", c.ErrorWidth)
	}
	switch c.Credentials.Source {
	case "auto", "keychain", "file", "env":
	default:
		return fmt.Errorf("credentials.source must be auto, keychain, file or env, got %q", c.Credentials.Source)
	}
	if (c.Credentials.Source == "file" || c.Credentials.Source == "auto") && c.Credentials.File == "" {
		return fmt.Errorf("credentials.file is required for source %q", c.Credentials.Source)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// WatchCredentials reports whether the credentials file should be watched.
func (c *Config) WatchCredentials() bool {
	return c.Credentials.Watch == nil || *c.Credentials.Watch
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		name, def, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(name)
		if val == "" && hasDefault {
			val = def
		}
		return []byte(val)
	})
}
