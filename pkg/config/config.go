package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full description of one benchmark invocation. It is
// built once, before any worker starts, and read-only afterwards.
type Config struct {
	Target     string `yaml:"target"`
	BlockSize  int    `yaml:"block_size"`
	BlockCount int64  `yaml:"block_count"` // 0 = derive from target size

	LinearRead  int `yaml:"linear_read"`
	RandomRead  int `yaml:"random_read"`
	LinearWrite int `yaml:"linear_write"`
	RandomWrite int `yaml:"random_write"`

	OpLimit uint64 `yaml:"op_limit"` // per-thread, 0 = unlimited
	Seconds int    `yaml:"seconds"`  // wall-clock limit, 0 = unlimited

	Direct     bool    `yaml:"direct"`
	Sync       bool    `yaml:"sync"`
	EngineType string  `yaml:"engine_type"` // "sync" or "uring"
	Rate       float64 `yaml:"rate"`        // per-thread ops/sec, 0 = unpaced
}

const DefaultBlockSize = 8192

// ApplyDefaults fills in the documented defaults: 8192-byte blocks,
// the sync engine, and a single linear reader when no class was
// requested.
func (c *Config) ApplyDefaults() {
	if c.BlockSize == 0 {
		c.BlockSize = DefaultBlockSize
	}
	if c.EngineType == "" {
		c.EngineType = "sync"
	}
	if c.Workers() == 0 {
		c.LinearRead = 1
	}
}

// Workers returns the total thread count across all four classes.
func (c *Config) Workers() int {
	return c.LinearRead + c.RandomRead + c.LinearWrite + c.RandomWrite
}

func (c *Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("exactly one device/file argument expected")
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("invalid block size: %d", c.BlockSize)
	}
	if c.LinearRead < 0 || c.RandomRead < 0 || c.LinearWrite < 0 || c.RandomWrite < 0 {
		return fmt.Errorf("thread counts must not be negative")
	}
	if c.Seconds < 0 {
		return fmt.Errorf("invalid time limit: %d", c.Seconds)
	}
	if c.Rate < 0 {
		return fmt.Errorf("invalid rate limit: %g", c.Rate)
	}
	switch c.EngineType {
	case "sync", "uring":
	default:
		return fmt.Errorf("unknown engine type %q", c.EngineType)
	}
	return nil
}

// Load reads a configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Save writes the configuration as YAML, so a flag-assembled run can
// be replayed later with -config.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
