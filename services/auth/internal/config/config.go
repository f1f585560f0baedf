package config

import (
	"context"
	"time"

	pkgconfig "github.com/Skotchmaster/registry_portal/pkg/config"
	"github.com/Skotchmaster/registry_portal/pkg/db"
	"gorm.io/gorm"
)

type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"auth"`
	AuthURL     string `envconfig:"AUTH_ADDR" default:":8081"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	JWTSecret  string        `envconfig:"JWT_SECRET"`
	AccessTTL  time.Duration `envconfig:"ACCESS_TTL" default:"15m"`
	RefreshTTL time.Duration `envconfig:"REFRESH_TTL" default:"168h"`

	KafkaBrokers    []string `envconfig:"KAFKA_BROKERS"`
	KafkaAuditTopic string   `envconfig:"KAFKA_AUDIT_TOPIC" default:"auth_audit"`

	ESURL        string `envconfig:"ES_URL"`
	ESUser       string `envconfig:"ES_USER"`
	ESPassword   string `envconfig:"ES_PASSWORD"`
	ESAuditIndex string `envconfig:"ES_AUDIT_INDEX" default:"auth-audit"`

	RedisAddr         string        `envconfig:"REDIS_ADDR"`
	LoginRateLimit    int           `envconfig:"LOGIN_RATE_LIMIT" default:"10"`
	LoginRateWindow   time.Duration `envconfig:"LOGIN_RATE_WINDOW" default:"1m"`
	PurgeSchedule     string        `envconfig:"PURGE_SCHEDULE" default:"@hourly"`
	PurgeRetention    time.Duration `envconfig:"PURGE_RETENTION" default:"24h"`
	AuditBuffer       int           `envconfig:"AUDIT_BUFFER" default:"256"`
	BootstrapEmail    string        `envconfig:"BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapPassword string        `envconfig:"BOOTSTRAP_ADMIN_PASSWORD"`
}

const minSecretLen = 32

// Load reads .env and the environment. Missing secrets end the process.
func Load() (Config, error) {
	var cfg Config
	if err := pkgconfig.Load("", &cfg); err != nil {
		return Config{}, err
	}
	pkgconfig.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	pkgconfig.MustNonEmpty(cfg.JWTSecret, "JWT_SECRET")
	pkgconfig.MustMinLen([]byte(cfg.JWTSecret), minSecretLen, "JWT_SECRET")
	return cfg, nil
}

func InitDB(ctx context.Context, cfg Config) (*gorm.DB, error) {
	return db.Open(ctx, cfg.DatabaseURL)
}
