package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode           string        `mapstructure:"mode"`
	Port           int           `mapstructure:"port"`
	LogLevel       string        `mapstructure:"log_level"`
	StaticPath     string        `mapstructure:"static_path"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	Secret         string        `mapstructure:"secret"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`

	Floor      FloorConfig      `mapstructure:"floor"`
	Token      TokenConfig      `mapstructure:"token"`
	Commentary CommentaryConfig `mapstructure:"commentary"`
	ICE        ICEConfig        `mapstructure:"ice"`
	Rate       RateConfig       `mapstructure:"rate"`
}

type FloorConfig struct {
	ScoringWindow time.Duration `mapstructure:"scoring_window"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	MinScore      float64       `mapstructure:"min_score"`
	MaxScore      float64       `mapstructure:"max_score"`
}

type TokenConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

type CommentaryConfig struct {
	URL     string        `mapstructure:"url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ICEConfig struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type RateConfig struct {
	PerSecond float64 `mapstructure:"per_second"`
	Burst     int     `mapstructure:"burst"`
}

func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile reads the yaml file if it exists, then applies environment
// overrides. A missing file is not an error.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "")
	v.SetDefault("allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("floor.scoring_window", "10s")
	v.SetDefault("floor.token_ttl", "10m")
	v.SetDefault("floor.min_score", 1)
	v.SetDefault("floor.max_score", 5)

	v.SetDefault("commentary.url", "")
	v.SetDefault("commentary.model", "llama3")
	v.SetDefault("commentary.timeout", "20s")

	v.SetDefault("ice.urls", []string{})
	v.SetDefault("ice.username", "")
	v.SetDefault("ice.credential", "")

	v.SetDefault("rate.per_second", 10)
	v.SetDefault("rate.burst", 20)

	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("token.api_key", "LIVEKIT_API_KEY", "TOKEN_API_KEY")
	_ = v.BindEnv("token.api_secret", "LIVEKIT_API_SECRET", "TOKEN_API_SECRET")
	_ = v.BindEnv("commentary.url", "COMMENTARY_URL")

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
		Dur("scoring_window", cfg.Floor.ScoringWindow).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Floor.ScoringWindow < 0 {
		errs = append(errs, errors.New("floor.scoring_window must not be negative"))
	}
	if c.Floor.MinScore > c.Floor.MaxScore {
		errs = append(errs, errors.New("floor.min_score exceeds floor.max_score"))
	}
	if c.Rate.PerSecond <= 0 || c.Rate.Burst <= 0 {
		errs = append(errs, errors.New("rate.per_second and rate.burst must be positive"))
	}
	return errors.Join(errs...)
}
