package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the relay and client configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
	Feed    FeedConfig    `mapstructure:"feed"`
	CORS    CORSConfig    `mapstructure:"cors"`
	Limiter LimiterConfig `mapstructure:"limiter"`
	Client  ClientConfig  `mapstructure:"client"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Name string `mapstructure:"name"`
}

// RedisConfig enables cross-instance fan-out and the search cache.
// An empty URL runs the relay standalone.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// FeedConfig bounds the relay's in-memory feed.
type FeedConfig struct {
	Limit int `mapstructure:"limit"`
}

type CORSConfig struct {
	Origins string `mapstructure:"origins"`
}

type LimiterConfig struct {
	Max        int           `mapstructure:"max"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type ClientConfig struct {
	URL string `mapstructure:"url"`
}

// Load reads configuration from defaults, the optional YAML file at path
// and CHATBOARD_* environment variables, in increasing precedence.
//
//	CHATBOARD_SERVER_ADDR        listen address (default "0.0.0.0:8082")
//	CHATBOARD_REDIS_URL          redis URL; empty disables broker and cache
//	CHATBOARD_LOG_LEVEL          zap level (default "info")
//	CHATBOARD_FEED_LIMIT         posts kept by the relay (default 500)
//	CHATBOARD_CLIENT_URL         relay websocket URL for the terminal client
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CHATBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Feed.Limit < 0 {
		return Config{}, fmt.Errorf("invalid feed.limit %d: must not be negative", cfg.Feed.Limit)
	}
	if cfg.Limiter.Max <= 0 {
		return Config{}, fmt.Errorf("invalid limiter.max %d: must be positive", cfg.Limiter.Max)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:8082")
	v.SetDefault("server.name", "chatboard")
	v.SetDefault("redis.url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("feed.limit", 500)
	v.SetDefault("cors.origins", "http://localhost:3000")
	v.SetDefault("limiter.max", 20)
	v.SetDefault("limiter.expiration", "1m")
	v.SetDefault("client.url", "ws://localhost:8082/ws")
}
