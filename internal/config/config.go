// Package config loads linebroad settings from defaults, an optional TOML
// file, LINEBROAD_* environment variables and command-line flags, in
// increasing precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. LINEBROAD_WORKERS.
const EnvPrefix = "LINEBROAD"

// Keys.
const (
	KeyDB              = "db"
	KeyModels          = "models"
	KeyWorkers         = "workers"
	KeyOnUnknownBranch = "on_unknown_branch"
	KeyRecord          = "record"
	KeyLogLevel        = "log.level"
	KeyLogJSON         = "log.json"
)

// Config is the resolved configuration.
type Config struct {
	DB              string    `mapstructure:"db"`
	Models          string    `mapstructure:"models"`
	Workers         int       `mapstructure:"workers"`
	OnUnknownBranch string    `mapstructure:"on_unknown_branch"`
	Record          bool      `mapstructure:"record"`
	Log             LogConfig `mapstructure:"log"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Dir returns ~/.linebroad.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".linebroad"
	}
	return filepath.Join(home, ".linebroad")
}

// DefaultDB returns ~/.linebroad/runs.db.
func DefaultDB() string {
	return filepath.Join(Dir(), "runs.db")
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDB, DefaultDB())
	v.SetDefault(KeyModels, "")
	v.SetDefault(KeyWorkers, 1)
	v.SetDefault(KeyOnUnknownBranch, "fail")
	v.SetDefault(KeyRecord, true)
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogJSON, false)
}

// New builds a viper instance with defaults, environment binding and the
// config file merged in. An explicit path must exist; otherwise
// $LINEBROAD_CONFIG and then ~/.linebroad/config.toml are tried.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvPrefix + "_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = filepath.Join(Dir(), "config.toml")
		if _, err := os.Stat(path); err != nil {
			return v, nil
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	return v, nil
}

// Load resolves the configuration without flag overrides.
func Load(path string) (*Config, error) {
	v, err := New(path)
	if err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}

// LoadWithViper unmarshals and validates a prepared viper instance.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return errors.Newf("workers must be >= 1, got %d", c.Workers)
	}
	switch strings.ToLower(c.OnUnknownBranch) {
	case "fail", "skip":
	default:
		return errors.WithHint(
			errors.Newf("on_unknown_branch must be fail or skip, got %q", c.OnUnknownBranch),
			"fail aborts on the first unrecognized branch, skip drops the record with a warning")
	}
	if c.Record && c.DB == "" {
		return errors.New("db cannot be empty while recording runs")
	}
	return nil
}
