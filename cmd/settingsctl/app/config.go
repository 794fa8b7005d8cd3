package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/goliatone/go-settings/persist"
	"github.com/goliatone/go-settings/rules"
)

// EnvPrefix prefixes every environment variable settingsctl reads, so
// "redis.addr" becomes SETTINGS_REDIS_ADDR.
const EnvPrefix = "SETTINGS"

// Config aggregates the command line configuration.
type Config struct {
	Dir      string        `mapstructure:"dir"`
	Tenant   string        `mapstructure:"tenant"`
	FileName string        `mapstructure:"file_name"`
	Engine   string        `mapstructure:"engine"`
	LogLevel string        `mapstructure:"log_level"`
	LogFile  string        `mapstructure:"log_file"`
	LabelTTL time.Duration `mapstructure:"label_ttl"`
	Redis    RedisConfig   `mapstructure:"redis"`
}

// RedisConfig selects the Redis gateway when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("dir", ".")
	v.SetDefault("file_name", persist.DefaultFileName)
	v.SetDefault("engine", rules.EngineExpr)
	v.SetDefault("log_level", "warn")
	v.SetDefault("label_ttl", "5m")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"redis.addr", "redis.password", "redis.db", "redis.prefix"} {
		_ = v.BindEnv(key)
	}
	return v
}

// loadConfig reads the optional config file and unmarshals v.
func loadConfig(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("settingsctl: read config %s: %w", file, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("settingsctl: decode config: %w", err)
	}
	return cfg, nil
}
