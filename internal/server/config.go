package server

import (
	"errors"
	"path/filepath"
	"time"
)

const (
	DefaultAddr = "0.0.0.0:8080"

	// DefaultRecentDeleteWindow is how long delete tombstones are retained
	// for diff computation. <= 0 keeps them forever.
	DefaultRecentDeleteWindow = 24 * time.Hour
)

type HTTPConfig struct {
	Addr     string
	CertFile string
	KeyFile  string
}

type Config struct {
	HTTP               HTTPConfig
	DataDir            string
	RecentDeleteWindow time.Duration
}

func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultAddr
	}
	if c.DataDir == "" {
		return errors.New("data dir is required")
	}
	return nil
}

func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "foldsync.db")
}

func (c *Config) BlobDir() string {
	return filepath.Join(c.DataDir, "blobs")
}
