// Package config loads the feed service settings from settings.toml, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting of the feed service.
type Config struct {
	HTTP      HTTP      `mapstructure:"http"`
	Gateway   Gateway   `mapstructure:"gateway"`
	Share     Share     `mapstructure:"share"`
	Shortener Shortener `mapstructure:"shortener"`
	Upload    Upload    `mapstructure:"upload"`
	Cache     Cache     `mapstructure:"cache"`
	Redis     Redis     `mapstructure:"redis"`
	Cards     Cards     `mapstructure:"cards"`
	Log       Log       `mapstructure:"log"`
}

type HTTP struct {
	Addr string `mapstructure:"addr"`
}

type Gateway struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Share struct {
	Origin    string        `mapstructure:"origin"`
	Path      string        `mapstructure:"path"`
	NoticeTTL time.Duration `mapstructure:"notice_ttl"`
}

// Shortener is disabled when URL is empty.
type Shortener struct {
	URL string  `mapstructure:"url"`
	RPS float64 `mapstructure:"rps"`
}

// Upload is disabled when URL is empty.
type Upload struct {
	URL string `mapstructure:"url"`
}

// Cache selects the page cache: "memory", "redis" or "none".
type Cache struct {
	Driver   string        `mapstructure:"driver"`
	TTL      time.Duration `mapstructure:"ttl"`
	MaxItems int64         `mapstructure:"max_items"`
}

type Redis struct {
	Addr string `mapstructure:"addr"`
}

type Cards struct {
	MaxIdle       time.Duration `mapstructure:"max_idle"`
	PruneSchedule string        `mapstructure:"prune_schedule"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EnvPrefix prefixes environment overrides, e.g. FEED_GATEWAY_URL.
const EnvPrefix = "FEED"

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("gateway.url", "http://localhost:3005/graphql")
	v.SetDefault("gateway.timeout", 10*time.Second)
	v.SetDefault("share.origin", "http://localhost:3000")
	v.SetDefault("share.path", "/activities")
	v.SetDefault("share.notice_ttl", 5*time.Second)
	v.SetDefault("shortener.url", "")
	v.SetDefault("shortener.rps", 1.0)
	v.SetDefault("upload.url", "")
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.max_items", 1000)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("cards.max_idle", 30*time.Minute)
	v.SetDefault("cards.prune_schedule", "@every 5m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads settings.toml from the given directories (default "." and
// ".."), then applies FEED_* environment variables, including those set
// in a .env file in the working directory. A missing settings file is not
// an error.
func Load(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	if len(paths) == 0 {
		paths = []string{".", ".."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("settings")
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Cache.Driver {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("cache.driver: unknown driver %q", c.Cache.Driver)
	}
	if c.Gateway.URL == "" {
		return errors.New("gateway.url: required")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// Logger returns a logger writing to w in the configured format and level.
func (l Log) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
