// Package config provides configuration management for the afp command line tool.
// It loads YAML configuration files from the global and per-user locations, merges
// them key by key and applies environment overrides on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultGlobalConfigDir holds system-wide configuration files (*.yaml).
	DefaultGlobalConfigDir = "/etc/afp-cli"
	// DefaultPasswordProvider is used when no provider is configured.
	DefaultPasswordProvider = "prompt"
	// DefaultTimeoutSeconds bounds every request to the AFP API.
	DefaultTimeoutSeconds = 30
)

// Config represents the merged afp configuration.
type Config struct {
	// APIURL is the base URL of the AFP API, e.g. http://afp.example.com/afp-api/latest.
	APIURL string `yaml:"api_url"`

	// User is the name used for basic authentication against the AFP API.
	User string `yaml:"user"`

	// PasswordProvider selects how the password is obtained ("prompt", "keyring" or "env").
	PasswordProvider string `yaml:"password_provider"`

	// ProxyURL routes API requests through an http(s) or socks5 proxy.
	ProxyURL string `yaml:"proxy-url"`

	// LogFile enables rotating file logging when set.
	LogFile string `yaml:"log-file"`

	// Debug enables debug level logging.
	Debug bool `yaml:"debug"`

	// Timeout is the request timeout in seconds.
	Timeout int `yaml:"timeout"`
}

// Sources lists the configuration files that are read, in merge order.
type Sources struct {
	GlobalDir string
	UserFile  string
}

// DefaultSources returns the global directory and the per-user file in the home directory.
func DefaultSources() Sources {
	sources := Sources{GlobalDir: DefaultGlobalConfigDir}
	if home, err := os.UserHomeDir(); err == nil {
		sources.UserFile = filepath.Join(home, ".afp-cli", "config.yaml")
	}
	return sources
}

// LoadConfig reads and merges every configuration file named by sources and
// applies environment overrides. Missing files are skipped.
func LoadConfig(sources Sources) (*Config, error) {
	files, err := sources.files()
	if err != nil {
		return nil, err
	}

	merged := map[string]any{}
	for _, path := range files {
		values, errRead := readYAMLFile(path)
		if errRead != nil {
			return nil, errRead
		}
		for k, v := range values {
			merged[k] = v
		}
		log.Debugf("loaded configuration from %s", path)
	}

	// Round-trip through YAML so merged keys decode with the struct tags.
	raw, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to encode merged config: %w", err)
	}
	var cfg Config
	if err = yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse merged config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (s Sources) files() ([]string, error) {
	var files []string
	if s.GlobalDir != "" {
		matches, err := filepath.Glob(filepath.Join(s.GlobalDir, "*.yaml"))
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", s.GlobalDir, err)
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}
	if s.UserFile != "" {
		if st, err := os.Stat(s.UserFile); err == nil && !st.IsDir() {
			files = append(files, s.UserFile)
		}
	}
	return files, nil
}

func readYAMLFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	values := map[string]any{}
	if err = yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return values, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("AFP_API_URL")); v != "" {
		c.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv("AFP_USER")); v != "" {
		c.User = v
	}
	if v := strings.TrimSpace(os.Getenv("AFP_PASSWORD_PROVIDER")); v != "" {
		c.PasswordProvider = v
	}
}

func (c *Config) applyDefaults() {
	if c.User == "" {
		c.User = os.Getenv("USER")
	}
	if c.PasswordProvider == "" {
		c.PasswordProvider = DefaultPasswordProvider
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeoutSeconds
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
}
