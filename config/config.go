// Package config loads the engine assembly configuration: operators to
// disable and extra precedence edges, plus the log level. Configuration is
// optional; a zero Config changes nothing.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// OperatorsConfig adjusts the operator registry at engine assembly time.
type OperatorsConfig struct {
	// Disabled lists operator definition IDs to skip at assembly.
	Disabled []string `mapstructure:"disabled" yaml:"disabled" toml:"disabled"`

	// DependsOn adds precedence edges: each key runs after every operator
	// it lists. Edges merge with those declared at registration; a cycle
	// introduced here still fails assembly.
	DependsOn map[string][]string `mapstructure:"depends_on" yaml:"depends_on" toml:"depends_on"`
}

// Config wraps the engine configuration.
type Config struct {
	LogLevel  string          `mapstructure:"log_level" yaml:"log_level" toml:"log_level"`
	Operators OperatorsConfig `mapstructure:"operators" yaml:"operators" toml:"operators"`
}

// Default returns the configuration used when no file or env is supplied.
func Default() Config {
	return Config{LogLevel: zapcore.InfoLevel.String()}
}

// ZapLevel parses the configured log level.
func (c Config) ZapLevel() (zapcore.Level, error) {
	if c.LogLevel == "" {
		return zapcore.InfoLevel, nil
	}

	return zapcore.ParseLevel(c.LogLevel)
}

// Parse parses a YAML document.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse yaml config: %w", err)
	}

	return cfg, nil
}

// ParseTOML parses a TOML document.
func ParseTOML(b []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse toml config: %w", err)
	}

	return cfg, nil
}

// envBindings maps config keys to the environment variables that can provide
// their values.
var envBindings = map[string][]string{
	"log_level":          {"THERIAN_LOG_LEVEL"},
	"operators.disabled": {"THERIAN_OPERATORS_DISABLED"},
}

// Load loads the config from the file path, falling back to env vars if the
// file does not exist. If the file exists, any env vars that are set
// override the values loaded from the file.
func Load(filePath string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(filePath)

	if err := bindEnvs(v); err != nil {
		return Config{}, err
	}

	if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadEnv loads the config from environment variables only.
func LoadEnv() (Config, error) {
	v := viper.New()

	if err := bindEnvs(v); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// bindEnvs binds the environment variable mappings to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := append([]string{key}, envs...)
		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}
