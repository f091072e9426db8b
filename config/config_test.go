package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, 15*time.Second, cfg.DirectTimeout)
	assert.Equal(t, time.Second, cfg.SourcePause)
	assert.Equal(t, 2, cfg.TaskWorkers)
	assert.True(t, cfg.BrowserEnabled)
	assert.False(t, cfg.EnvFileLoaded)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "Mongo")
	t.Setenv("ALLOWED_ORIGINS", "https://a.test, ,https://b.test")
	t.Setenv("DIRECT_TIMEOUT", "5s")
	t.Setenv("BROWSER_ENABLED", "false")
	t.Setenv("TASK_WORKERS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StoreDriverMongo, cfg.StoreDriver)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.DirectTimeout)
	assert.False(t, cfg.BrowserEnabled)
	assert.Equal(t, 1, cfg.TaskWorkers)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("SOURCE_RATE", "0")
	_, err := Load()
	assert.ErrorContains(t, err, "SOURCE_RATE")
}

func TestValidateStore(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"postgres", Config{StoreDriver: StoreDriverPostgres, DatabaseURL: "postgres://localhost/db"}, ""},
		{"postgres without url", Config{StoreDriver: StoreDriverPostgres}, "DATABASE_URL"},
		{"mongo", Config{StoreDriver: StoreDriverMongo, MongoURI: "mongodb://localhost"}, ""},
		{"mongo without uri", Config{StoreDriver: StoreDriverMongo}, "MONGO_URI"},
		{"memory", Config{StoreDriver: StoreDriverMemory}, ""},
		{"unknown", Config{StoreDriver: "sqlite"}, "unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateStore()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
