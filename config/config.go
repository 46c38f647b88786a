// Package config is the engine's viper-backed configuration: defaults,
// FLIPSIDE_* environment variables, then command-line flags, in
// increasing precedence.
package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	v *viper.Viper
}

func defaults(v *viper.Viper) {
	v.SetDefault("board-size", 8)
	v.SetDefault("ai-level", 4)
	v.SetDefault("threads", 1)
	v.SetDefault("ttable-mem-fraction", 0.10)
	v.SetDefault("debug", false)
}

func DefaultConfig() Config {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix("flipside")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return Config{v: v}
}

// Load parses command-line flags on top of the defaults and environment.
func (c *Config) Load(args []string) error {
	if c.v == nil {
		*c = DefaultConfig()
	}
	fs := pflag.NewFlagSet("flipside", pflag.ContinueOnError)
	fs.Int("board-size", 8, "board dimension; even, between 4 and 16")
	fs.Int("ai-level", 4, "AI difficulty level, 1 to 6")
	fs.Int("threads", 1, "number of threads for the root search")
	fs.Float64("ttable-mem-fraction", 0.10, "fraction of system memory for the transposition table")
	fs.Bool("debug", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return c.v.BindPFlags(fs)
}

func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// SanitizedSettings returns the settings for logging.
func (c *Config) SanitizedSettings() map[string]any {
	return c.v.AllSettings()
}
