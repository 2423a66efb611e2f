// Package internal wires the storage-engine packages (bufferpool, btree)
// together into a runnable Engine, and loads the one piece of runtime
// configuration the engine needs: buffer pool size and which indexes to
// open at startup.
package internal

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/tuannm99/minidb/internal/bufferpool"
	"github.com/tuannm99/minidb/internal/btree"
)

// IndexConfig names one index to open when the engine starts: the relation
// it indexes, the byte offset of the key column within each record, and
// the key's type.
type IndexConfig struct {
	Relation       string `mapstructure:"relation"`
	AttrByteOffset int32  `mapstructure:"attr_byte_offset"`
	AttrType       string `mapstructure:"attr_type"` // INTEGER, DOUBLE, or STRING
}

func (c IndexConfig) decodeAttrType() (btree.AttrType, error) {
	switch strings.ToUpper(c.AttrType) {
	case "INTEGER":
		return btree.AttrInt, nil
	case "DOUBLE":
		return btree.AttrDouble, nil
	case "STRING":
		return btree.AttrString, nil
	default:
		return 0, fmt.Errorf("internal: unrecognized attr_type %q for relation %q", c.AttrType, c.Relation)
	}
}

// EngineConfig is the top-level YAML configuration for a running engine.
type EngineConfig struct {
	Buffer struct {
		PoolSize int `mapstructure:"pool_size"`
	} `mapstructure:"buffer"`
	Indexes []IndexConfig `mapstructure:"indexes"`
}

// LoadEngineConfig reads engine configuration from a YAML file at path.
func LoadEngineConfig(path string) (*EngineConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("buffer.pool_size", bufferpool.DefaultPoolSize)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("internal: read config: %w", err)
	}

	var cfg EngineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("internal: unmarshal config: %w", err)
	}
	if cfg.Buffer.PoolSize <= 0 {
		cfg.Buffer.PoolSize = bufferpool.DefaultPoolSize
	}
	return &cfg, nil
}
