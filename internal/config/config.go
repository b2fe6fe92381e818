package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything both binaries read from the environment.
type Config struct {
	Env string

	APIAddr   string
	RelayAddr string

	DatabaseDSN       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBAutoMigrate     bool

	JWTSecret      string
	AllowedOrigins []string
	TrustedProxies []string

	RelayURL           string
	RelayAPIKeys       []string
	BroadcastTimeout   time.Duration
	BroadcastQueueSize int

	PublicMediaURL   string
	MediaRoot        string
	PlaceholderImage string

	RelayRatePerMinute int
	RelayRateBurst     int
}

// Load reads .env (when present), an optional config/config.yaml and the
// process environment, in increasing order of precedence.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Env:                v.GetString("APP_ENV"),
		APIAddr:            v.GetString("API_ADDR"),
		RelayAddr:          v.GetString("RELAY_ADDR"),
		DatabaseDSN:        v.GetString("DB_DSN"),
		DBMaxOpenConns:     v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:     v.GetInt("DB_MAX_IDLE_CONNS"),
		DBConnMaxLifetime:  v.GetDuration("DB_CONN_MAX_LIFETIME"),
		DBAutoMigrate:      v.GetBool("DB_AUTO_MIGRATE"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		AllowedOrigins:     splitList(v.GetString("ALLOWED_ORIGINS")),
		TrustedProxies:     splitList(v.GetString("TRUSTED_PROXIES")),
		RelayURL:           v.GetString("RELAY_URL"),
		RelayAPIKeys:       splitList(v.GetString("RELAY_API_KEYS")),
		BroadcastTimeout:   v.GetDuration("BROADCAST_TIMEOUT"),
		BroadcastQueueSize: v.GetInt("BROADCAST_QUEUE_SIZE"),
		PublicMediaURL:     strings.TrimRight(v.GetString("PUBLIC_MEDIA_URL"), "/"),
		MediaRoot:          v.GetString("MEDIA_ROOT"),
		PlaceholderImage:   v.GetString("PLACEHOLDER_IMAGE"),
		RelayRatePerMinute: v.GetInt("RELAY_RATE_PER_MINUTE"),
		RelayRateBurst:     v.GetInt("RELAY_RATE_BURST"),
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("API_ADDR", ":8080")
	v.SetDefault("RELAY_ADDR", ":3001")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 25)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("DB_AUTO_MIGRATE", false)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("RELAY_URL", "http://localhost:3001/broadcastOrder")
	v.SetDefault("BROADCAST_TIMEOUT", "3s")
	v.SetDefault("BROADCAST_QUEUE_SIZE", 256)
	v.SetDefault("PUBLIC_MEDIA_URL", "http://localhost:8080/media")
	v.SetDefault("MEDIA_ROOT", "./public")
	v.SetDefault("PLACEHOLDER_IMAGE", "uploads/default.png")
	v.SetDefault("RELAY_RATE_PER_MINUTE", 600)
	v.SetDefault("RELAY_RATE_BURST", 100)
}

// ValidateAPI reports the settings the order service cannot start without.
func (c *Config) ValidateAPI() error {
	var missing []string
	if c.DatabaseDSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(c.RelayAPIKeys) == 0 {
		missing = append(missing, "RELAY_API_KEYS")
	}
	return missingErr(missing)
}

// ValidateRelay reports the settings the relay cannot start without.
func (c *Config) ValidateRelay() error {
	var missing []string
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(c.RelayAPIKeys) == 0 {
		missing = append(missing, "RELAY_API_KEYS")
	}
	return missingErr(missing)
}

// SigningKey is the key the order service presents to the relay. The first
// entry of RELAY_API_KEYS is current; later entries are still accepted by the
// relay while a rotation is rolled out.
func (c *Config) SigningKey() string {
	if len(c.RelayAPIKeys) == 0 {
		return ""
	}
	return c.RelayAPIKeys[0]
}

func missingErr(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
