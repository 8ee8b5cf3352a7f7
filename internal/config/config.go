package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Cookie struct {
	Name   string `mapstructure:"name"`
	MaxAge int    `mapstructure:"max_age"`
	Secure bool   `mapstructure:"secure"`
}

// WS tunes the event channel. Backpressure is "kick" or "drop".
type WS struct {
	ReadLimit    int64         `mapstructure:"read_limit"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
	PongWait     time.Duration `mapstructure:"pong_wait"`
	WriteWait    time.Duration `mapstructure:"write_wait"`
	SendBuffer   int           `mapstructure:"send_buffer"`
	Backpressure string        `mapstructure:"backpressure"`
}

type Rate struct {
	EventsPerSecond float64 `mapstructure:"events_per_second"`
	Burst           int     `mapstructure:"burst"`
}

type Storage struct {
	Driver   string `mapstructure:"driver"`
	RedisURL string `mapstructure:"redis_url"`
}

type Fanout struct {
	Enabled bool `mapstructure:"enabled"`
}

type Lock struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type Config struct {
	Mode           string   `mapstructure:"mode"`
	Port           int      `mapstructure:"port"`
	LogLevel       string   `mapstructure:"log_level"`
	Secret         string   `mapstructure:"secret"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	Cookie  Cookie  `mapstructure:"cookie"`
	WS      WS      `mapstructure:"ws"`
	Rate    Rate    `mapstructure:"rate"`
	Storage Storage `mapstructure:"storage"`
	Fanout  Fanout  `mapstructure:"fanout"`
	Lock    Lock    `mapstructure:"lock"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("secret", "change-me")
	v.SetDefault("allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("cookie.name", "_bsid")
	v.SetDefault("cookie.max_age", 3600*24*30)
	v.SetDefault("cookie.secure", false)

	v.SetDefault("ws.read_limit", 32768)
	v.SetDefault("ws.ping_period", "54s")
	v.SetDefault("ws.pong_wait", "60s")
	v.SetDefault("ws.write_wait", "5s")
	v.SetDefault("ws.send_buffer", 32)
	v.SetDefault("ws.backpressure", "kick")

	v.SetDefault("rate.events_per_second", 10)
	v.SetDefault("rate.burst", 20)

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.redis_url", "redis://localhost:6379/0")
	v.SetDefault("fanout.enabled", false)
	v.SetDefault("lock.ttl", "5s")
}

// Load reads config/config.{CONFIG_ENV}.yaml on top of the defaults.
// BREAKOUT_* environment variables override both (BREAKOUT_WS_PONG_WAIT for ws.pong_wait).
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("BREAKOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Str("storage", cfg.Storage.Driver).Bool("fanout", cfg.Fanout.Enabled).Msg("config")
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Fanout.Enabled && c.Storage.Driver != "redis" {
		return fmt.Errorf("fanout requires the redis storage driver")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.WS.SendBuffer <= 0 {
		return fmt.Errorf("ws.send_buffer must be positive")
	}
	switch c.WS.Backpressure {
	case "", "kick", "drop":
	default:
		return fmt.Errorf("unknown ws.backpressure %q", c.WS.Backpressure)
	}
	if c.WS.PingPeriod >= c.WS.PongWait {
		return fmt.Errorf("ws.ping_period must be shorter than ws.pong_wait")
	}
	return nil
}
