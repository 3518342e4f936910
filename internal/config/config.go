package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	SchedulerTemporal = "temporal"
	SchedulerTicker   = "ticker"
)

type AlertsConfig struct {
	ScanInterval      time.Duration `mapstructure:"scan_interval"`
	Cooldown          time.Duration `mapstructure:"cooldown"`
	Inactivity        time.Duration `mapstructure:"inactivity"`
	FallbackUsuarioID string        `mapstructure:"fallback_usuario_id"`
	Scheduler         string        `mapstructure:"scheduler"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type RedisConfig struct {
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type RabbitConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	From     string `mapstructure:"from"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type Config struct {
	DatabaseURL string         `mapstructure:"database_url"`
	ServerPort  string         `mapstructure:"server_port"`
	JWTSecret   string         `mapstructure:"jwt_secret"`
	LogLevel    string         `mapstructure:"log_level"`
	CORSOrigins []string       `mapstructure:"cors_origins"`
	Alerts      AlertsConfig   `mapstructure:"alerts"`
	Temporal    TemporalConfig `mapstructure:"temporal"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Rabbit      RabbitConfig   `mapstructure:"rabbit"`
	Email       EmailConfig    `mapstructure:"email"`
}

// Load reads config.yaml from the working directory or ./config. Values can
// be overridden with TALLER_ prefixed variables, e.g. TALLER_ALERTS_COOLDOWN.
// A .env file, when present, is loaded into the environment first.
func Load(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("TALLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "")
	v.SetDefault("server_port", "8080")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("alerts.scan_interval", 15*time.Minute)
	v.SetDefault("alerts.cooldown", 24*time.Hour)
	v.SetDefault("alerts.inactivity", 7*24*time.Hour)
	v.SetDefault("alerts.fallback_usuario_id", "")
	v.SetDefault("alerts.scheduler", SchedulerTicker)

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "taller-alertas")

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", 5*time.Minute)

	v.SetDefault("rabbit.url", "")
	v.SetDefault("rabbit.exchange", "taller.eventos")

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.from", "")
	v.SetDefault("email.smtp_host", "")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("jwt_secret must be set")
	}
	switch c.Alerts.Scheduler {
	case SchedulerTemporal, SchedulerTicker:
	default:
		return errors.Errorf("alerts.scheduler must be %q or %q, got %q", SchedulerTemporal, SchedulerTicker, c.Alerts.Scheduler)
	}
	if c.Alerts.ScanInterval <= 0 {
		return errors.New("alerts.scan_interval must be positive")
	}
	if c.Alerts.Cooldown < 0 {
		return errors.New("alerts.cooldown must not be negative")
	}
	return nil
}
