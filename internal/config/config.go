package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	S3        S3Config
	Auth      AuthConfig
	Log       LogConfig
	Extractor ExtractorConfig
	Converter ConverterConfig
	Mail      MailConfig
	Reply     ReplyConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds blob storage settings for the data lake.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWKSURL      string        `mapstructure:"jwks_url"`
	Issuer       string        `mapstructure:"issuer"`
	Audience     string        `mapstructure:"audience"`
	JWKSCacheTTL time.Duration `mapstructure:"jwks_cache_ttl"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ExtractorConfig holds LLM field extraction settings.
type ExtractorConfig struct {
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// ConverterConfig holds markdown conversion service settings.
type ConverterConfig struct {
	AccountID   string `mapstructure:"account_id"`
	APIToken    string `mapstructure:"api_token"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// MailConfig holds inbound mail validation settings.
type MailConfig struct {
	AllowedSenders []string `mapstructure:"allowed_senders"`
	Recipients     []string `mapstructure:"recipients"`
	IngestToken    string   `mapstructure:"ingest_token"`
}

// ReplyConfig holds outbound reply settings.
type ReplyConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

// Load reads configuration from environment variables with the SUMMERHOUSE_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SUMMERHOUSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "summerhouse")
	v.SetDefault("db.password", "summerhouse_secret")
	v.SetDefault("db.name", "summerhouse_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "eu-central-1")
	v.SetDefault("s3.bucket", "summerhouse-lake")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.presign_expiry", 3600)

	// Auth defaults
	v.SetDefault("auth.jwks_url", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.jwks_cache_ttl", "1h")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Extractor defaults
	v.SetDefault("extractor.api_key", "")
	v.SetDefault("extractor.default_model", "claude-sonnet-4-20250514")
	v.SetDefault("extractor.timeout_secs", 120)

	// Converter defaults
	v.SetDefault("converter.account_id", "")
	v.SetDefault("converter.api_token", "")
	v.SetDefault("converter.timeout_secs", 60)

	// Mail defaults
	v.SetDefault("mail.allowed_senders", "")
	v.SetDefault("mail.recipients", "")
	v.SetDefault("mail.ingest_token", "")

	// Reply defaults
	v.SetDefault("reply.provider", "noop")
	v.SetDefault("reply.region", "eu-central-1")
	v.SetDefault("reply.from_address", "invoices@summerhouse.example")
	v.SetDefault("reply.from_name", "Summerhouse Invoices")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":             "SUMMERHOUSE_SERVER_PORT",
		"server.read_timeout":     "SUMMERHOUSE_SERVER_READ_TIMEOUT",
		"server.write_timeout":    "SUMMERHOUSE_SERVER_WRITE_TIMEOUT",
		"server.environment":      "SUMMERHOUSE_SERVER_ENVIRONMENT",
		"db.host":                 "SUMMERHOUSE_DB_HOST",
		"db.port":                 "SUMMERHOUSE_DB_PORT",
		"db.user":                 "SUMMERHOUSE_DB_USER",
		"db.password":             "SUMMERHOUSE_DB_PASSWORD",
		"db.name":                 "SUMMERHOUSE_DB_NAME",
		"db.sslmode":              "SUMMERHOUSE_DB_SSLMODE",
		"db.max_open":             "SUMMERHOUSE_DB_MAX_OPEN",
		"db.max_idle":             "SUMMERHOUSE_DB_MAX_IDLE",
		"s3.region":               "SUMMERHOUSE_S3_REGION",
		"s3.bucket":               "SUMMERHOUSE_S3_BUCKET",
		"s3.endpoint":             "SUMMERHOUSE_S3_ENDPOINT",
		"s3.access_key":           "SUMMERHOUSE_S3_ACCESS_KEY",
		"s3.secret_key":           "SUMMERHOUSE_S3_SECRET_KEY",
		"s3.presign_expiry":       "SUMMERHOUSE_S3_PRESIGN_EXPIRY",
		"auth.jwks_url":           "SUMMERHOUSE_AUTH_JWKS_URL",
		"auth.issuer":             "SUMMERHOUSE_AUTH_ISSUER",
		"auth.audience":           "SUMMERHOUSE_AUTH_AUDIENCE",
		"auth.jwks_cache_ttl":     "SUMMERHOUSE_AUTH_JWKS_CACHE_TTL",
		"log.level":               "SUMMERHOUSE_LOG_LEVEL",
		"log.format":              "SUMMERHOUSE_LOG_FORMAT",
		"extractor.api_key":       "SUMMERHOUSE_EXTRACTOR_API_KEY",
		"extractor.default_model": "SUMMERHOUSE_EXTRACTOR_DEFAULT_MODEL",
		"extractor.timeout_secs":  "SUMMERHOUSE_EXTRACTOR_TIMEOUT_SECS",
		"converter.account_id":    "SUMMERHOUSE_CONVERTER_ACCOUNT_ID",
		"converter.api_token":     "SUMMERHOUSE_CONVERTER_API_TOKEN",
		"converter.timeout_secs":  "SUMMERHOUSE_CONVERTER_TIMEOUT_SECS",
		"mail.allowed_senders":    "SUMMERHOUSE_MAIL_ALLOWED_SENDERS",
		"mail.recipients":         "SUMMERHOUSE_MAIL_RECIPIENTS",
		"mail.ingest_token":       "SUMMERHOUSE_MAIL_INGEST_TOKEN",
		"reply.provider":          "SUMMERHOUSE_REPLY_PROVIDER",
		"reply.region":            "SUMMERHOUSE_REPLY_REGION",
		"reply.from_address":      "SUMMERHOUSE_REPLY_FROM_ADDRESS",
		"reply.from_name":         "SUMMERHOUSE_REPLY_FROM_NAME",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if SUMMERHOUSE_SERVER_PORT
	// is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("SUMMERHOUSE_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Auth = AuthConfig{
		JWKSURL:      v.GetString("auth.jwks_url"),
		Issuer:       v.GetString("auth.issuer"),
		Audience:     v.GetString("auth.audience"),
		JWKSCacheTTL: v.GetDuration("auth.jwks_cache_ttl"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Extractor = ExtractorConfig{
		APIKey:       v.GetString("extractor.api_key"),
		DefaultModel: v.GetString("extractor.default_model"),
		TimeoutSecs:  v.GetInt("extractor.timeout_secs"),
	}
	cfg.Converter = ConverterConfig{
		AccountID:   v.GetString("converter.account_id"),
		APIToken:    v.GetString("converter.api_token"),
		TimeoutSecs: v.GetInt("converter.timeout_secs"),
	}
	cfg.Mail = MailConfig{
		AllowedSenders: splitList(v.GetString("mail.allowed_senders")),
		Recipients:     splitList(v.GetString("mail.recipients")),
		IngestToken:    v.GetString("mail.ingest_token"),
	}
	cfg.Reply = ReplyConfig{
		Provider:    v.GetString("reply.provider"),
		Region:      v.GetString("reply.region"),
		FromAddress: v.GetString("reply.from_address"),
		FromName:    v.GetString("reply.from_name"),
	}

	return cfg, nil
}

// splitList parses a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
