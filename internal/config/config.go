package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Backend    BackendConfig
	Database   DatabaseConfig
	Session    SessionConfig
	Activation ActivationConfig
	Upload     UploadConfig
	Tracking   TrackingConfig
	MQTT       MQTTConfig
	RateLimit  RateLimitConfig
	CORS       CORSConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Environment string
}

// BackendConfig points at the upstream VLTD REST API.
type BackendConfig struct {
	BaseURL  string
	Timeout  time.Duration
	PageSize int
	MaxPages int
}

type DatabaseConfig struct {
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
}

type SessionConfig struct {
	Secret      string
	ExpiryHours int
	CookieName  string
}

type ActivationConfig struct {
	ResetDelay      time.Duration
	DefaultPassword string
}

type UploadConfig struct {
	MaxBytes int64
}

type TrackingConfig struct {
	PollInterval time.Duration
}

type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

type RateLimitConfig struct {
	GeneralRPS   float64 // Requests per second for general endpoints
	GeneralBurst int     // Burst size for general endpoints
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("BACKEND_TIMEOUT_SECONDS", 30)
	v.SetDefault("BACKEND_PAGE_SIZE", 100)
	v.SetDefault("BACKEND_MAX_PAGES", 200)
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_SQLITE_PATH", "vltd-dashboard.db")
	v.SetDefault("SESSION_EXPIRY_HOURS", 12)
	v.SetDefault("SESSION_COOKIE_NAME", "vltd_session")
	v.SetDefault("ACTIVATION_RESET_DELAY_MS", 2000)
	v.SetDefault("ACTIVATION_DEFAULT_PASSWORD", "Vltd@1234")
	v.SetDefault("UPLOAD_MAX_BYTES", 5<<20)
	v.SetDefault("TRACKING_POLL_INTERVAL_SECONDS", 10)
	v.SetDefault("MQTT_CLIENT_ID", "vltd-dashboard")
	v.SetDefault("MQTT_QOS", 1)
	v.SetDefault("RATE_LIMIT_GENERAL_RPS", 20)
	v.SetDefault("RATE_LIMIT_GENERAL_BURST", 40)
	v.SetDefault("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS")
	v.SetDefault("CORS_ALLOWED_HEADERS", "Origin,Content-Type,Authorization,X-Request-ID")
	v.SetDefault("CORS_EXPOSED_HEADERS", "X-Request-ID,Content-Disposition")
	v.SetDefault("CORS_MAX_AGE", 43200)
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(homeDir)
	}
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		log.Printf("Warning: config file not found: %v. Falling back to environment variables only.", err)
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:        v.GetString("SERVER_PORT"),
			Host:        v.GetString("SERVER_HOST"),
			Environment: v.GetString("ENVIRONMENT"),
		},
		Backend: BackendConfig{
			BaseURL:  strings.TrimRight(v.GetString("BACKEND_BASE_URL"), "/"),
			Timeout:  time.Duration(v.GetInt("BACKEND_TIMEOUT_SECONDS")) * time.Second,
			PageSize: v.GetInt("BACKEND_PAGE_SIZE"),
			MaxPages: v.GetInt("BACKEND_MAX_PAGES"),
		},
		Database: DatabaseConfig{
			Host:       v.GetString("DB_HOST"),
			Port:       v.GetString("DB_PORT"),
			User:       v.GetString("DB_USER"),
			Password:   v.GetString("DB_PASSWORD"),
			DBName:     v.GetString("DB_NAME"),
			SSLMode:    v.GetString("DB_SSLMODE"),
			SQLitePath: v.GetString("DB_SQLITE_PATH"),
		},
		Session: SessionConfig{
			Secret:      v.GetString("SESSION_SECRET"),
			ExpiryHours: v.GetInt("SESSION_EXPIRY_HOURS"),
			CookieName:  v.GetString("SESSION_COOKIE_NAME"),
		},
		Activation: ActivationConfig{
			ResetDelay:      time.Duration(v.GetInt("ACTIVATION_RESET_DELAY_MS")) * time.Millisecond,
			DefaultPassword: v.GetString("ACTIVATION_DEFAULT_PASSWORD"),
		},
		Upload: UploadConfig{
			MaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
		},
		Tracking: TrackingConfig{
			PollInterval: time.Duration(v.GetInt("TRACKING_POLL_INTERVAL_SECONDS")) * time.Second,
		},
		MQTT: MQTTConfig{
			Broker:   v.GetString("MQTT_BROKER"),
			ClientID: v.GetString("MQTT_CLIENT_ID"),
			Username: v.GetString("MQTT_USERNAME"),
			Password: v.GetString("MQTT_PASSWORD"),
			QoS:      byte(v.GetInt("MQTT_QOS")),
		},
		RateLimit: RateLimitConfig{
			GeneralRPS:   v.GetFloat64("RATE_LIMIT_GENERAL_RPS"),
			GeneralBurst: v.GetInt("RATE_LIMIT_GENERAL_BURST"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			AllowedMethods:   splitList(v.GetString("CORS_ALLOWED_METHODS")),
			AllowedHeaders:   splitList(v.GetString("CORS_ALLOWED_HEADERS")),
			ExposedHeaders:   splitList(v.GetString("CORS_EXPOSED_HEADERS")),
			AllowCredentials: v.GetBool("CORS_ALLOW_CREDENTIALS"),
			MaxAge:           v.GetInt("CORS_MAX_AGE"),
		},
	}
}

// Validate reports settings the dashboard cannot start without.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("BACKEND_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("BACKEND_BASE_URL must be an http(s) URL, got %q", c.Backend.BaseURL)
	}
	if len(c.Session.Secret) < 32 {
		return errors.New("SESSION_SECRET must be at least 32 characters")
	}
	if c.Backend.PageSize <= 0 {
		return errors.New("BACKEND_PAGE_SIZE must be positive")
	}
	return nil
}

// UsePostgres reports whether the document cache should live in Postgres
// rather than the local SQLite file.
func (c *DatabaseConfig) UsePostgres() bool {
	return c.Host != "" && c.DBName != ""
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
