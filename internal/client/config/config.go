// Package config holds the agent's persisted state: where the server is,
// the folder credential, the local tree, and this device's identity.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/foldsync/foldsync/internal/utils"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, ".foldsync", "config.json")
)

type Config struct {
	APIURL     string `json:"api_url"`
	APIKey     string `json:"api_key"`
	LocalPath  string `json:"local_path"`
	ClientID   string `json:"client_id"`
	DeviceName string `json:"device_name"`

	// Path the config was loaded from; not persisted.
	Path string `json:"-"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.Path = path
	return &cfg, nil
}

func (c *Config) Save() error {
	if c.Path == "" {
		return errors.New("config has no path")
	}
	if err := utils.EnsureParent(c.Path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.Path, data, 0o600)
}

func (c *Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("api_url is required")
	}
	if c.APIKey == "" {
		return errors.New("api_key is required")
	}
	if c.LocalPath == "" {
		return errors.New("local_path is required")
	}
	if c.DeviceName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return errors.New("device_name is required")
		}
		c.DeviceName = hostname
	}

	resolved, err := utils.ResolvePath(c.LocalPath)
	if err != nil {
		return fmt.Errorf("local_path: %w", err)
	}
	c.LocalPath = resolved

	if !utils.DirExists(c.LocalPath) {
		return fmt.Errorf("local_path %q is not a directory", c.LocalPath)
	}
	return nil
}
