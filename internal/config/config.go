package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	TrustedProxies []string
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AuthConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ThrottleConfig struct {
	LoginLimit  int
	LoginWindow time.Duration
}

type MediaConfig struct {
	Root        string
	URL         string
	MaxUploadMB int64
}

type PDFConfig struct {
	FontPath string
}

type EventsConfig struct {
	RabbitURL string
	Exchange  string
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Redis       RedisConfig
	Throttle    ThrottleConfig
	Media       MediaConfig
	PDF         PDFConfig
	Events      EventsConfig
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	// A zero or negative limit turns login throttling off.
	v.SetDefault("LOGIN_RATE_LIMIT", 5)

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:           v.GetString("HTTP_HOST"),
			Port:           v.GetInt("HTTP_PORT"),
			AllowedOrigins: parseList(v.GetString("CORS_ALLOWED_ORIGINS")),
			TrustedProxies: parseList(v.GetString("HTTP_TRUSTED_PROXIES")),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret:  v.GetString("JWT_ACCESS_SECRET"),
			RefreshSecret: v.GetString("JWT_REFRESH_SECRET"),
			Issuer:        v.GetString("JWT_ISSUER"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Throttle: ThrottleConfig{
			LoginLimit: v.GetInt("LOGIN_RATE_LIMIT"),
		},
		Media: MediaConfig{
			Root:        v.GetString("MEDIA_ROOT"),
			URL:         v.GetString("MEDIA_URL"),
			MaxUploadMB: v.GetInt64("MEDIA_MAX_UPLOAD_MB"),
		},
		PDF: PDFConfig{
			FontPath: v.GetString("PDF_FONT_PATH"),
		},
		Events: EventsConfig{
			RabbitURL: v.GetString("RABBITMQ_URL"),
			Exchange:  v.GetString("RABBITMQ_EXCHANGE"),
		},
	}

	var err error
	if cfg.Auth.AccessTTL, err = parseDuration(v, "JWT_ACCESS_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Auth.RefreshTTL, err = parseDuration(v, "JWT_REFRESH_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Throttle.LoginWindow, err = parseDuration(v, "LOGIN_RATE_WINDOW", time.Minute); err != nil {
		return nil, err
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8000
	}
	if len(cfg.HTTP.AllowedOrigins) == 0 {
		cfg.HTTP.AllowedOrigins = []string{"*"}
	}
	if cfg.Auth.RefreshSecret == "" {
		cfg.Auth.RefreshSecret = cfg.Auth.AccessSecret
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "freelancehub"
	}
	if cfg.Media.Root == "" {
		cfg.Media.Root = "./media"
	}
	if cfg.Media.URL == "" {
		cfg.Media.URL = "/media/"
	}
	if !strings.HasSuffix(cfg.Media.URL, "/") {
		cfg.Media.URL += "/"
	}
	if cfg.Media.MaxUploadMB == 0 {
		cfg.Media.MaxUploadMB = 20
	}
	if cfg.Events.Exchange == "" {
		cfg.Events.Exchange = "freelancehub.events"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	return nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
