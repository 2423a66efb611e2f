package bufferpool

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the tunables for a buffer pool, loaded the same way the rest
// of the module loads its YAML configuration (internal/config.go).
type Config struct {
	Buffer struct {
		PoolSize int `mapstructure:"pool_size"`
	} `mapstructure:"buffer"`
}

// DefaultPoolSize is used when a loaded config omits buffer.pool_size.
const DefaultPoolSize = 64

// LoadConfig reads pool configuration from a YAML file at path.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("buffer.pool_size", DefaultPoolSize)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("bufferpool: read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("bufferpool: unmarshal config: %w", err)
	}
	if cfg.Buffer.PoolSize <= 0 {
		cfg.Buffer.PoolSize = DefaultPoolSize
	}
	return &cfg, nil
}

// NewFromConfig builds a BufferManager sized per cfg.
func NewFromConfig(cfg *Config) *BufferManager {
	return NewBufferManager(cfg.Buffer.PoolSize)
}
