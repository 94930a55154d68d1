package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	LogLevel                  string
	AppURL                    string
	JWTSecret                 string
	JWTRefreshSecret          string
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	Database                  DatabaseConfig
	Mailer                    MailerConfig
	Redis                     RedisConfig
	Kafka                     KafkaConfig
	Notify                    NotifyConfig
	ReminderCron              string
	MaxUploadBytes            int64
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// MailerConfig holds the SMTP settings. An empty Host selects the logging sender.
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// RedisConfig enables cross-instance real-time fan-out when URL is set.
type RedisConfig struct {
	URL     string
	Channel string
}

// KafkaConfig enables the appointment event stream when Brokers is not empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// NotifyConfig sizes the side-effect dispatch queue.
type NotifyConfig struct {
	QueueSize int
	Workers   int
}

// LoadConfig loads configuration from environment variables. Variables
// from a .env file must already be in the environment (see godotenv in main).
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	dbConfig := DatabaseConfig{
		Host:     v.GetString("DB_HOST"),
		Port:     v.GetString("DB_PORT"),
		Username: v.GetString("DB_USERNAME"),
		Password: v.GetString("DB_PASSWORD"),
		Name:     v.GetString("DB_NAME"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	cfg := &Config{
		Port:                      v.GetString("PORT"),
		Origin:                    v.GetString("ORIGIN"),
		Environment:               v.GetString("APP_ENV"),
		LogLevel:                  v.GetString("LOG_LEVEL"),
		AppURL:                    strings.TrimRight(v.GetString("APP_URL"), "/"),
		JWTSecret:                 v.GetString("JWT_SECRET"),
		JWTRefreshSecret:          v.GetString("JWT_REFRESH_SECRET"),
		JWTExpirationMinutes:      v.GetInt("JWT_EXPIRATION_MINUTES"),
		JWTRefreshExpirationHours: v.GetInt("JWT_REFRESH_EXPIRATION_HOURS"),
		Database:                  dbConfig,
		Mailer: MailerConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		Redis: RedisConfig{
			URL:     v.GetString("REDIS_URL"),
			Channel: v.GetString("REDIS_CHANNEL"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		Notify: NotifyConfig{
			QueueSize: v.GetInt("NOTIFY_QUEUE_SIZE"),
			Workers:   v.GetInt("NOTIFY_WORKERS"),
		},
		ReminderCron:   v.GetString("REMINDER_CRON"),
		MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "5000")
	v.SetDefault("ORIGIN", "http://localhost:3000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_URL", "http://localhost:3000")
	v.SetDefault("JWT_SECRET", "default_jwt_secret")
	v.SetDefault("JWT_REFRESH_SECRET", "default_refresh_secret")
	v.SetDefault("JWT_EXPIRATION_MINUTES", 15)
	v.SetDefault("JWT_REFRESH_EXPIRATION_HOURS", 168) // 7 days
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USERNAME", "root")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "medibook")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM", "no-reply@medibook.local")
	v.SetDefault("REDIS_CHANNEL", "medibook:realtime")
	v.SetDefault("KAFKA_TOPIC", "appointment_events")
	v.SetDefault("NOTIFY_QUEUE_SIZE", 256)
	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("REMINDER_CRON", "0 8 * * *")
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTExpirationMinutes <= 0 {
		return fmt.Errorf("invalid JWT_EXPIRATION_MINUTES: %d", c.JWTExpirationMinutes)
	}
	if c.JWTRefreshExpirationHours <= 0 {
		return fmt.Errorf("invalid JWT_REFRESH_EXPIRATION_HOURS: %d", c.JWTRefreshExpirationHours)
	}
	if c.Notify.Workers <= 0 || c.Notify.QueueSize <= 0 {
		return fmt.Errorf("NOTIFY_WORKERS and NOTIFY_QUEUE_SIZE must be positive")
	}
	if c.IsProduction() && (c.JWTSecret == "default_jwt_secret" || c.JWTRefreshSecret == "default_refresh_secret") {
		return fmt.Errorf("JWT_SECRET and JWT_REFRESH_SECRET must be set in production")
	}
	return nil
}

// IsDevelopment reports whether the server runs with APP_ENV=development.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// RefreshTTL is the lifetime of refresh tokens and of the refresh cookie.
func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWTRefreshExpirationHours) * time.Hour
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
