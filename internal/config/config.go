// Package config loads settings from .env, an optional YAML file and FLAVORBOT_* variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	pkgcrypto "github.com/sahilkamalny/flavorbot/internal/crypto"
)

// EnvPrefix is prepended to every environment override, e.g. FLAVORBOT_DB_DSN.
const EnvPrefix = "FLAVORBOT"

type Config struct {
	App struct {
		Env string `mapstructure:"env"`
	} `mapstructure:"app"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	DB struct {
		DSN     string `mapstructure:"dsn"`
		Migrate bool   `mapstructure:"migrate"`
	} `mapstructure:"db"`
	Auth struct {
		Scheme string `mapstructure:"scheme"`
	} `mapstructure:"auth"`
	Limiter struct {
		Enabled  bool          `mapstructure:"enabled"`
		Window   time.Duration `mapstructure:"window"`
		MaxFails int           `mapstructure:"max_fails"`
		BlockFor time.Duration `mapstructure:"block_for"`
	} `mapstructure:"limiter"`
	OpenAI struct {
		APIKey    string        `mapstructure:"api_key"`
		BaseURL   string        `mapstructure:"base_url"`
		Model     string        `mapstructure:"model"`
		MaxTokens int           `mapstructure:"max_tokens"`
		Timeout   time.Duration `mapstructure:"timeout"`
	} `mapstructure:"openai"`
	Recipes struct {
		CacheSize int           `mapstructure:"cache_size"`
		CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	} `mapstructure:"recipes"`
	Metrics struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.migrate", true)
	v.SetDefault("auth.scheme", pkgcrypto.SchemeArgon2)
	v.SetDefault("limiter.enabled", true)
	v.SetDefault("limiter.window", 15*time.Minute)
	v.SetDefault("limiter.max_fails", 5)
	v.SetDefault("limiter.block_for", 15*time.Minute)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.max_tokens", 2000)
	v.SetDefault("openai.timeout", 60*time.Second)
	v.SetDefault("recipes.cache_size", 64)
	v.SetDefault("recipes.cache_ttl", 30*time.Minute)
	v.SetDefault("metrics.addr", "")
}

// Load reads configuration. An empty file means ./config.yaml when present;
// a named file must exist. Environment variables win over the file.
func Load(file string) (Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks required keys and value ranges.
func (c Config) Validate() error {
	var problems []error
	if c.DB.DSN == "" {
		problems = append(problems, errors.New("db.dsn is required"))
	}
	if _, err := pkgcrypto.NewScheme(c.Auth.Scheme); err != nil {
		problems = append(problems, fmt.Errorf("auth.scheme: %w", err))
	}
	if c.Limiter.Enabled {
		if c.Limiter.MaxFails <= 0 {
			problems = append(problems, errors.New("limiter.max_fails must be positive"))
		}
		if c.Limiter.Window <= 0 || c.Limiter.BlockFor <= 0 {
			problems = append(problems, errors.New("limiter.window and limiter.block_for must be positive"))
		}
	}
	if c.Recipes.CacheSize < 0 {
		problems = append(problems, errors.New("recipes.cache_size must not be negative"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(problems...))
	}
	return nil
}

// IsProduction reports whether app.env selects production behaviour.
func (c Config) IsProduction() bool { return strings.EqualFold(c.App.Env, "production") }
