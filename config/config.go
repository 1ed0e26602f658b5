package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all of the server configuration
type Config struct {
	Port             string
	DatabaseURL      string
	StoreDriver      string
	MongoURI         string
	MongoDatabase    string
	RedisURL         string
	AllowedOrigins   []string
	TrustedPlatform  string
	TrustedProxies   []string
	TokenSecret      string
	TokenTTL         time.Duration
	JoinRateLimit    float64
	JoinRateBurst    int
	ReplayBufferSize int
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration
}

// Store drivers
const (
	StoreDriverSQL   = "sql"
	StoreDriverMongo = "mongo"
)

// Load reads the configuration from the environment. A .env file in the working
// directory is loaded first if one exists, and never overrides variables that are
// already set.
func Load() (*Config, error) {

	// Load the .env file, it's fine if there isn't one
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:             v.GetString("PORT"),
		DatabaseURL:      v.GetString("DB_URL"),
		StoreDriver:      strings.ToLower(v.GetString("STORE_DRIVER")),
		MongoURI:         v.GetString("MONGO_URI"),
		MongoDatabase:    v.GetString("MONGO_DB"),
		RedisURL:         v.GetString("REDIS_URL"),
		AllowedOrigins:   SplitList(v.GetString("CORS_ALLOW_ORIGINS")),
		TrustedPlatform:  strings.ToLower(v.GetString("TRUSTED_PLATFORM")),
		TrustedProxies:   SplitList(v.GetString("TRUSTED_PROXIES")),
		TokenSecret:      v.GetString("ROOM_TOKEN_SECRET"),
		TokenTTL:         v.GetDuration("ROOM_TOKEN_TTL"),
		JoinRateLimit:    v.GetFloat64("JOIN_RATE_LIMIT"),
		JoinRateBurst:    v.GetInt("JOIN_RATE_BURST"),
		ReplayBufferSize: v.GetInt("REPLAY_BUFFER_SIZE"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogFormat:        v.GetString("LOG_FORMAT"),
		ShutdownTimeout:  v.GetDuration("SHUTDOWN_TIMEOUT"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil

}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_URL", "sqlite://tempchat.db")
	v.SetDefault("STORE_DRIVER", StoreDriverSQL)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "tempchat")
	v.SetDefault("ROOM_TOKEN_TTL", "24h")
	v.SetDefault("JOIN_RATE_LIMIT", 1.0)
	v.SetDefault("JOIN_RATE_BURST", 5)
	v.SetDefault("REPLAY_BUFFER_SIZE", 25)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("SHUTDOWN_TIMEOUT", "30s")
}

func (c *Config) validate() error {
	if len(c.TokenSecret) == 0 {
		return fmt.Errorf("ROOM_TOKEN_SECRET must be set")
	}
	switch c.StoreDriver {
	case StoreDriverSQL, StoreDriverMongo:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("ROOM_TOKEN_TTL must be positive")
	}
	switch c.TrustedPlatform {
	case "", "cloudflare", "google-app-engine":
	default:
		return fmt.Errorf("unknown TRUSTED_PLATFORM %q", c.TrustedPlatform)
	}
	if c.JoinRateLimit <= 0 || c.JoinRateBurst <= 0 {
		return fmt.Errorf("JOIN_RATE_LIMIT and JOIN_RATE_BURST must be positive")
	}
	return nil
}

// SplitList splits a comma separated environment value, dropping empty entries
func SplitList(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if len(item) > 0 {
			items = append(items, item)
		}
	}
	return items
}
