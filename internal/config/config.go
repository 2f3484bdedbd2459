package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aouyang1/go-liftchart/lift"
)

// Config holds the full application configuration.
type Config struct {
	DataRobot DataRobotConfig `yaml:"datarobot" mapstructure:"datarobot"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Lift      LiftConfig      `yaml:"lift" mapstructure:"lift"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DataRobotConfig holds DataRobot API credentials and client limits.
type DataRobotConfig struct {
	Token            string  `yaml:"token" mapstructure:"token"`
	Endpoint         string  `yaml:"endpoint" mapstructure:"endpoint"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PollIntervalSecs int     `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	MaxWaitSecs      int     `yaml:"max_wait_secs" mapstructure:"max_wait_secs"`
	RateLimit        float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// Timeout is the HTTP client timeout.
func (c DataRobotConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// PollInterval is how often a training prediction job is polled.
func (c DataRobotConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

// MaxWait bounds how long a training prediction job is waited on.
func (c DataRobotConfig) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitSecs) * time.Second
}

// CacheConfig configures the merge cache backend.
type CacheConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	TTLMinutes    int    `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
}

// TTL is the lifetime of a cached merge. Zero keeps entries forever.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// LiftConfig configures the lift chart defaults.
type LiftConfig struct {
	DefaultBins int `yaml:"default_bins" mapstructure:"default_bins"`
}

// ServerConfig configures the dashboard server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LIFTCHART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("datarobot.token", "")
	v.SetDefault("datarobot.endpoint", "https://app.datarobot.com/api/v2")
	v.SetDefault("datarobot.timeout_secs", 60)
	v.SetDefault("datarobot.poll_interval_secs", 2)
	v.SetDefault("datarobot.max_wait_secs", 600)
	v.SetDefault("datarobot.rate_limit", 5.0)
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl_minutes", 60)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("lift.default_bins", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields a command needs. mode is one of "serve", "render" or "simulate".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "serve", "render":
		if c.DataRobot.Token == "" {
			problems = append(problems, "datarobot.token is required")
		}
		if c.DataRobot.Endpoint == "" {
			problems = append(problems, "datarobot.endpoint is required")
		}
	}
	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}

	switch c.Cache.Driver {
	case "memory", "none":
	case "redis":
		if c.Cache.RedisAddr == "" {
			problems = append(problems, "cache.redis_addr is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("cache.driver %q is not one of memory, redis, none", c.Cache.Driver))
	}
	if c.Cache.TTLMinutes < 0 {
		problems = append(problems, "cache.ttl_minutes must not be negative")
	}
	if err := lift.ValidateBins(c.Lift.DefaultBins); err != nil {
		problems = append(problems, fmt.Sprintf("lift.default_bins %d is not in [%d, %d]", c.Lift.DefaultBins, lift.MinBins, lift.MaxBins))
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
