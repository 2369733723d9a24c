// Package config loads process-wide testcontrol defaults from
// testcontrol.yaml, backed by viper. These defaults fill the root of the
// control-inheritance chain: a Control field left unset at the root takes the
// value configured here, and the compiled defaults below apply when no file
// exists at all.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// ConfigFileName is the per-project defaults file looked up from the working
// directory upward.
const ConfigFileName = "testcontrol.yaml"

// Config is the public configuration contract.
type Config interface {
	ProjectStage() string
	DefaultScopes() []string
	StartExternalComponents() bool
	LogHandler() string
	LogsDir() string
	LoggingConfig() LoggingConfig
	Get(key string) any
}

// LoggingConfig mirrors logger.LoggingConfig; duplicated to keep the config
// package free of a logger dependency.
type LoggingConfig struct {
	FileEnabled *bool `mapstructure:"file_enabled"`
	MaxSizeMB   int   `mapstructure:"max_size_mb"`
	MaxAgeDays  int   `mapstructure:"max_age_days"`
	MaxBackups  int   `mapstructure:"max_backups"`
}

type configImpl struct {
	v  *viper.Viper
	mu sync.RWMutex
}

// Load looks for testcontrol.yaml starting at dir and walking toward the
// filesystem root. A missing file is not an error: the compiled defaults
// apply. An unreadable or malformed file is.
func Load(dir string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	path, err := findConfigFile(dir)
	if err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	return &configImpl{v: v}, nil
}

// Defaults returns a Config carrying only the compiled defaults.
func Defaults() Config {
	v := viper.New()
	setDefaults(v)
	return &configImpl{v: v}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("project_stage", "unit-test")
	v.SetDefault("default_scopes", []string{})
	v.SetDefault("start_external_components", true)
	v.SetDefault("log_handler", "")
	v.SetDefault("logs_dir", "")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_age_days", 7)
	v.SetDefault("logging.max_backups", 3)
}

func findConfigFile(dir string) (string, error) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}

	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (c *configImpl) ProjectStage() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetString("project_stage")
}

func (c *configImpl) DefaultScopes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetStringSlice("default_scopes")
}

func (c *configImpl) StartExternalComponents() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetBool("start_external_components")
}

func (c *configImpl) LogHandler() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetString("log_handler")
}

func (c *configImpl) LogsDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetString("logs_dir")
}

func (c *configImpl) LoggingConfig() LoggingConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var lc LoggingConfig
	if c.v.IsSet("logging.file_enabled") {
		enabled := c.v.GetBool("logging.file_enabled")
		lc.FileEnabled = &enabled
	}
	lc.MaxSizeMB = c.v.GetInt("logging.max_size_mb")
	lc.MaxAgeDays = c.v.GetInt("logging.max_age_days")
	lc.MaxBackups = c.v.GetInt("logging.max_backups")
	return lc
}

func (c *configImpl) Get(key string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.Get(key)
}
