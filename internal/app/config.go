package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the configuration reads.
const EnvPrefix = "ADSBFRAME"

// Default configuration constants
const (
	DefaultInputPath     = "-"
	DefaultBatchSize     = 100
	DefaultFlushInterval = time.Second
	DefaultMaxAgeDays    = 7
)

// Input formats
const (
	InputHex   = "hex"
	InputBeast = "beast"
)

// Output formats
const (
	OutputJSON = "json"
	OutputText = "text"
	OutputSBS  = "sbs"
)

// Config holds application configuration
type Config struct {
	Input  InputConfig
	Output OutputConfig
	Store  StoreConfig
	Decode DecodeConfig
	Log    LogConfig
}

// InputConfig selects where frames come from.
type InputConfig struct {
	// Path is "-" for stdin, a file path, or tcp://host:port.
	Path   string
	Format string
}

// OutputConfig selects how decoded frames are written.
type OutputConfig struct {
	Format string
	// Dir enables daily rotated output files; empty writes to stdout.
	Dir        string
	UTC        bool
	MaxAgeDays int
}

// StoreConfig enables the SQLite frame store when Path is set.
type StoreConfig struct {
	Path      string
	BatchSize int
	// FlushInterval stores a partial batch after this long; 0 waits for a
	// full batch.
	FlushInterval time.Duration
}

// DecodeConfig tunes the decode stage.
type DecodeConfig struct {
	// DropBadCRC discards extended squitters whose parity does not check.
	DropBadCRC bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input.path", DefaultInputPath)
	v.SetDefault("input.format", InputHex)
	v.SetDefault("output.format", OutputJSON)
	v.SetDefault("output.dir", "")
	v.SetDefault("output.utc", true)
	v.SetDefault("output.max_age_days", DefaultMaxAgeDays)
	v.SetDefault("store.path", "")
	v.SetDefault("store.batch_size", DefaultBatchSize)
	v.SetDefault("store.flush_interval", DefaultFlushInterval)
	v.SetDefault("decode.drop_bad_crc", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration from v, layering an optional YAML file and
// ADSBFRAME_* environment variables over the defaults. Flags bound to v
// take precedence over both.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	configPath := v.GetString("config")
	if configPath == "" {
		configPath = os.Getenv(EnvPrefix + "_CONFIG_PATH")
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("adsbframe")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/adsbframe")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Input: InputConfig{
			Path:   v.GetString("input.path"),
			Format: strings.ToLower(v.GetString("input.format")),
		},
		Output: OutputConfig{
			Format:     strings.ToLower(v.GetString("output.format")),
			Dir:        v.GetString("output.dir"),
			UTC:        v.GetBool("output.utc"),
			MaxAgeDays: v.GetInt("output.max_age_days"),
		},
		Store: StoreConfig{
			Path:          v.GetString("store.path"),
			BatchSize:     v.GetInt("store.batch_size"),
			FlushInterval: v.GetDuration("store.flush_interval"),
		},
		Decode: DecodeConfig{
			DropBadCRC: v.GetBool("decode.drop_bad_crc"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration values.
func (cfg *Config) Validate() error {
	if cfg.Input.Path == "" {
		return fmt.Errorf("input.path is required")
	}

	switch cfg.Input.Format {
	case InputHex, InputBeast:
	default:
		return fmt.Errorf("invalid input format: %s (must be hex or beast)", cfg.Input.Format)
	}

	switch cfg.Output.Format {
	case OutputJSON, OutputText, OutputSBS:
	default:
		return fmt.Errorf("invalid output format: %s (must be json, text, or sbs)", cfg.Output.Format)
	}

	if cfg.Output.MaxAgeDays < 0 {
		return fmt.Errorf("output.max_age_days must not be negative")
	}

	if cfg.Store.Path != "" && cfg.Store.BatchSize <= 0 {
		return fmt.Errorf("store.batch_size must be greater than 0")
	}

	if cfg.Store.FlushInterval < 0 {
		return fmt.Errorf("store.flush_interval must not be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Log.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[cfg.Log.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", cfg.Log.Format)
	}

	return nil
}
