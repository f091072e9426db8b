package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the process configuration, read from the environment and an optional .env file.
type Config struct {
	Host           string
	Port           string
	AllowedOrigins []string
	APIRateLimit   float64

	StoreDriver   string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	BrowserEnabled bool
	BrowserBin     string
	DirectTimeout  time.Duration
	RenderWait     time.Duration
	SourcePause    time.Duration
	SourceRate     float64

	DiscordToken     string
	DiscordChannelID string

	SchedulerEnabled bool
	TaskWorkers      int
	LogLevel         string

	// EnvFileLoaded is false when no .env file was found.
	EnvFileLoaded bool
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("API_RATE_LIMIT", 10.0)

	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "pricehound")

	v.SetDefault("BROWSER_ENABLED", true)
	v.SetDefault("BROWSER_BIN", "")
	v.SetDefault("DIRECT_TIMEOUT", 15*time.Second)
	v.SetDefault("RENDER_WAIT", 12*time.Second)
	v.SetDefault("SOURCE_PAUSE", time.Second)
	v.SetDefault("SOURCE_RATE", 1.0)

	v.SetDefault("DISCORD_TOKEN", "")
	v.SetDefault("DISCORD_CHANNEL_ID", "")

	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("TASK_WORKERS", 2)
	v.SetDefault("LOG_LEVEL", "info")
}

// Load reads .env (when present) and the environment into a Config.
func Load() (*Config, error) {
	loaded := godotenv.Load() == nil

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Host:             v.GetString("HOST"),
		Port:             v.GetString("PORT"),
		AllowedOrigins:   splitList(v.GetString("ALLOWED_ORIGINS")),
		APIRateLimit:     v.GetFloat64("API_RATE_LIMIT"),
		StoreDriver:      strings.ToLower(v.GetString("STORE_DRIVER")),
		DatabaseURL:      v.GetString("DATABASE_URL"),
		MongoURI:         v.GetString("MONGO_URI"),
		MongoDatabase:    v.GetString("MONGO_DATABASE"),
		BrowserEnabled:   v.GetBool("BROWSER_ENABLED"),
		BrowserBin:       v.GetString("BROWSER_BIN"),
		DirectTimeout:    v.GetDuration("DIRECT_TIMEOUT"),
		RenderWait:       v.GetDuration("RENDER_WAIT"),
		SourcePause:      v.GetDuration("SOURCE_PAUSE"),
		SourceRate:       v.GetFloat64("SOURCE_RATE"),
		DiscordToken:     v.GetString("DISCORD_TOKEN"),
		DiscordChannelID: v.GetString("DISCORD_CHANNEL_ID"),
		SchedulerEnabled: v.GetBool("SCHEDULER_ENABLED"),
		TaskWorkers:      v.GetInt("TASK_WORKERS"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		EnvFileLoaded:    loaded,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the scraping settings.
func (c *Config) Validate() error {
	if c.DirectTimeout <= 0 {
		return fmt.Errorf("DIRECT_TIMEOUT must be positive")
	}
	if c.SourceRate <= 0 {
		return fmt.Errorf("SOURCE_RATE must be positive")
	}
	if c.TaskWorkers < 1 {
		c.TaskWorkers = 1
	}
	return nil
}

// ValidateStore checks the settings of the selected product store.
func (c *Config) ValidateStore() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required for the postgres store")
		}
	case StoreDriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI environment variable is required for the mongo store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
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
