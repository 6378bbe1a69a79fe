// Package config loads the CLI demo's store configuration (spec.md §6
// "Configuration recognized"). Grounded on tuannm99-novasql's
// internal/config.go: a viper-backed YAML loader into a mapstructure-tagged
// struct.
package config

import (
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"btreestore/bufferpool"
	"btreestore/errs"
)

// WriteMode mirrors spec.md §6's two recognized values.
type WriteMode string

const (
	WriteThrough WriteMode = "write-through"
	WriteBack    WriteMode = "write-back"
)

// Config is the recognized configuration surface for a store (spec.md §6).
// EnableTransactionLog is reserved: no transaction log or recovery protocol
// is implemented.
type Config struct {
	StoreName            string    `mapstructure:"store_name"`
	Order                uint32    `mapstructure:"order"`
	CacheCapacity        int       `mapstructure:"cache_capacity"`
	WriteMode            WriteMode `mapstructure:"write_mode"`
	PageSize             int       `mapstructure:"page_size"`
	EnableTransactionLog bool      `mapstructure:"enable_transaction_log"`
	KeyCodec             string    `mapstructure:"key_codec"`
	ValueCodec           string    `mapstructure:"value_codec"`

	// Logger is not a file-loadable key (no viper tag); callers that want
	// structured gateway/buffer-pool logging other than slog.Default() set
	// it directly after Load/Default returns.
	Logger *slog.Logger `mapstructure:"-"`
}

// LoggerOrDefault returns Logger if set, else slog.Default().
func (c Config) LoggerOrDefault() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Default returns the documented defaults (spec.md §6: "order:
// branching factor (default 128, demo uses 32); cache_capacity: entries
// (default 1000, demo uses 100); write_mode ... (default write-through);
// page_size: bytes (default 4096)").
func Default() Config {
	return Config{
		StoreName:     "store.db",
		Order:         128,
		CacheCapacity: 1000,
		WriteMode:     WriteThrough,
		PageSize:      4096,
		KeyCodec:      "int64",
		ValueCodec:    "string",
	}
}

// DemoDefault returns the smaller values spec.md §6 calls out for
// demonstration purposes ("demo uses 32" / "demo uses 100").
func DemoDefault() Config {
	cfg := Default()
	cfg.Order = 32
	cfg.CacheCapacity = 100
	return cfg
}

// Load reads a YAML file at path into Config, starting from Default() so
// any key the file omits keeps its documented default.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, errs.Wrap(errs.IO, "config.Load", "reading config file", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(errs.InvalidArgument, "config.Load", "unmarshaling config", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("store_name", cfg.StoreName)
	v.SetDefault("order", cfg.Order)
	v.SetDefault("cache_capacity", cfg.CacheCapacity)
	v.SetDefault("write_mode", string(cfg.WriteMode))
	v.SetDefault("page_size", cfg.PageSize)
	v.SetDefault("enable_transaction_log", cfg.EnableTransactionLog)
	v.SetDefault("key_codec", cfg.KeyCodec)
	v.SetDefault("value_codec", cfg.ValueCodec)
}

// Validate checks the "invalid_argument" conditions spec.md §7 calls out:
// "malformed config ... inconsistent order".
func (c Config) Validate() error {
	if c.Order < 4 {
		return errs.New(errs.InvalidArgument, "config.Validate", "order must be >= 4")
	}
	if c.CacheCapacity <= 0 {
		return errs.New(errs.InvalidArgument, "config.Validate", "cache_capacity must be > 0")
	}
	if c.WriteMode != WriteThrough && c.WriteMode != WriteBack {
		return errs.New(errs.InvalidArgument, "config.Validate", fmt.Sprintf("unrecognized write_mode %q", c.WriteMode))
	}
	if c.PageSize <= 0 {
		return errs.New(errs.InvalidArgument, "config.Validate", "page_size must be > 0")
	}
	return nil
}

// BufferPoolMode translates the config's write_mode into the bufferpool
// package's Mode enum.
func (c Config) BufferPoolMode() bufferpool.Mode {
	if c.WriteMode == WriteBack {
		return bufferpool.WriteBack
	}
	return bufferpool.WriteThrough
}
