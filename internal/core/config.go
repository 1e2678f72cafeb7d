package core

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config carries everything one deploy needs. Flags override these values;
// AWS_REGION and AWS_ACCOUNT_ID override the file.
type Config struct {
	AWS struct {
		Region    string `yaml:"region"`
		AccountID string `yaml:"account_id"`
	} `yaml:"aws"`
	Deploy struct {
		Cluster            string `yaml:"cluster"`
		Service            string `yaml:"service"`
		DesiredCount       int32  `yaml:"desired_count"`
		EnvFile            string `yaml:"env_file"`
		ForceNewDeployment bool   `yaml:"force_new_deployment"`
	} `yaml:"deploy"`
	History struct {
		Path string `yaml:"path"`
	} `yaml:"history"`
}

// LoadConfig reads YAML configuration from a path. If path is empty, it resolves
// $XDG_CONFIG_HOME/ecsup/config.yaml or ~/.config/ecsup/config.yaml; a missing
// file at the default location is fine, an explicitly named one is not.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	defaulted := path == ""
	if defaulted {
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".config")
		}
		path = filepath.Join(base, "ecsup", "config.yaml")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if defaulted && os.IsNotExist(err) {
			cfg.applyEnv()
			cfg.applyDefaults()
			return cfg, nil
		}
		return cfg, fmt.Errorf("open config: %w", err)
	}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.AWS.Region = v
	}
	if v := os.Getenv("AWS_ACCOUNT_ID"); v != "" {
		c.AWS.AccountID = v
	}
}

func (c *Config) applyDefaults() {
	if c.Deploy.DesiredCount == 0 {
		c.Deploy.DesiredCount = 1
	}
}

// Validate checks the inputs a deploy cannot start without.
func (c Config) Validate() error {
	for _, f := range []struct{ name, val string }{
		{"region", c.AWS.Region},
		{"account id", c.AWS.AccountID},
		{"cluster", c.Deploy.Cluster},
		{"service", c.Deploy.Service},
	} {
		if f.val == "" {
			return fmt.Errorf("%w: %s", ErrMissingInput, f.name)
		}
	}
	return nil
}

// HistoryPath resolves the deploy history database location, defaulting to
// $XDG_STATE_HOME/ecsup/history.db or ~/.local/state/ecsup/history.db.
func (c Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "ecsup", "history.db")
}
