/* config.go
 * Contains the configuration for the ladder bot. Values are read from the environment, after loading a `.env` file
 * from the working directory if one exists
 * Authors: Zachary Bower
 */

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported persistence backends
const (
	BackendFile  = "file"
	BackendMongo = "mongo"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	DiscordToken string

	// Persistence
	StoreBackend string
	DataDir      string
	MongoURI     string
	MongoDB      string

	// Background work
	RefreshInterval     time.Duration
	NotifyRatePerSecond float64

	// Logging
	LogLevel string
	LogFile  string

	// Web, disabled when empty
	WebAddr string
}

// Load reads configuration from environment variables
// Preconditions: Receives whether the beta bot token should be used instead of the production one
// Postconditions: Returns the populated config, or an error naming the first missing or malformed value
func Load(useBetaToken bool) (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		StoreBackend: strings.ToLower(getEnvOrDefault("STORE_BACKEND", BackendFile)),
		DataDir:      getEnvOrDefault("DATA_DIR", "./data"),
		MongoURI:     os.Getenv("MONGO_URI"),
		MongoDB:      getEnvOrDefault("MONGO_DB", "ladder"),
		LogLevel:     strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		LogFile:      os.Getenv("LOG_FILE"),
		WebAddr:      os.Getenv("WEB_ADDR"),
	}

	tokenKey := "DISCORD_PROD_TOKEN"
	if useBetaToken {
		tokenKey = "DISCORD_BETA_TOKEN"
	}
	cfg.DiscordToken = os.Getenv(tokenKey)
	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("%s is required", tokenKey)
	}

	minutes, err := strconv.Atoi(getEnvOrDefault("REFRESH_INTERVAL_MINUTES", "10"))
	if err != nil || minutes <= 0 {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL_MINUTES: must be a positive whole number")
	}
	cfg.RefreshInterval = time.Duration(minutes) * time.Minute

	rate, err := strconv.ParseFloat(getEnvOrDefault("NOTIFY_RATE_PER_SECOND", "5"), 64)
	if err != nil || rate <= 0 {
		return nil, fmt.Errorf("invalid NOTIFY_RATE_PER_SECOND: must be a positive number")
	}
	cfg.NotifyRatePerSecond = rate

	switch cfg.StoreBackend {
	case BackendFile:
	case BackendMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGO_URI is required when STORE_BACKEND is %s", BackendMongo)
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q, expected %s or %s", cfg.StoreBackend, BackendFile, BackendMongo)
	}

	return cfg, nil
}

// SlogLevel converts LogLevel into a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
