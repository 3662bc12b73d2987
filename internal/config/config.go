package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Quiz      QuizConfig      `mapstructure:"quiz"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
	Ops       OpsConfig       `mapstructure:"ops"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type BotConfig struct {
	Token string `mapstructure:"token"`
	Mode  string `mapstructure:"mode"` // debug or release
	// Long-poll timeout in seconds.
	PollTimeout int `mapstructure:"poll_timeout"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // sqlite or mysql
	Path     string `mapstructure:"path"`   // sqlite file
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type AdminConfig struct {
	// Telegram ids allowed to open the admin gate.
	IDs []int64 `mapstructure:"ids"`
	// bcrypt hash of the shared admin password.
	PasswordHash string `mapstructure:"password_hash"`
	JWTSecret    string `mapstructure:"jwt_secret"`
	// Whole minutes; viper's duration hook must not touch this, so the
	// field is a plain int and LoadConfig derives LoginExpiry.
	LoginExpiryMinutes int           `mapstructure:"login_expiry_minutes"`
	LoginExpiry        time.Duration `mapstructure:"-"`
}

type QuizConfig struct {
	// Target question count per level; levels missing here fall back
	// to DefaultTarget.
	Targets            map[string]int `mapstructure:"targets"`
	DefaultTarget      int            `mapstructure:"default_target"`
	MinQuestions       int            `mapstructure:"min_questions"`
	IdleTimeoutMinutes int            `mapstructure:"idle_timeout_minutes"`
	IdleTimeout        time.Duration  `mapstructure:"-"`
}

type BroadcastConfig struct {
	// Messages per second towards the Telegram API.
	RatePerSecond int `mapstructure:"rate_per_second"`
}

type OpsConfig struct {
	// Port for /health and /metrics. Empty disables the ops server.
	Port string `mapstructure:"port"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("ENGLISH_TEST")
	viper.AutomaticEnv()

	viper.BindEnv("bot.token", "TELEGRAM_BOT_TOKEN")
	viper.BindEnv("bot.mode", "BOT_MODE")

	viper.BindEnv("database.driver", "DATABASE_DRIVER")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	viper.BindEnv("admin.password_hash", "ADMIN_PASSWORD_HASH")
	viper.BindEnv("admin.jwt_secret", "ADMIN_JWT_SECRET")

	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	viper.SetDefault("bot.mode", "debug")
	viper.SetDefault("bot.poll_timeout", 60)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.path", "english_test.db")
	viper.SetDefault("admin.login_expiry_minutes", 10)
	viper.SetDefault("quiz.default_target", 10)
	viper.SetDefault("quiz.min_questions", 3)
	viper.SetDefault("quiz.idle_timeout_minutes", 30)
	viper.SetDefault("broadcast.rate_per_second", 20)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Admin.LoginExpiry = time.Duration(cfg.Admin.LoginExpiryMinutes) * time.Minute
	cfg.Quiz.IdleTimeout = time.Duration(cfg.Quiz.IdleTimeoutMinutes) * time.Minute

	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required (bot.token or TELEGRAM_BOT_TOKEN)")
	}

	if cfg.Bot.Mode == "release" && len(cfg.Admin.JWTSecret) < 32 {
		return nil, fmt.Errorf("admin JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.Admin.JWTSecret))
	}

	return &cfg, nil
}
