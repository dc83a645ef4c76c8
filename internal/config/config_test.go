package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "STORE_DRIVER", "DB_URL", "MONGO_URI", "MONGO_DATABASE",
	"JWT_SECRET", "JWT_ISS", "RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW",
	"MESSAGE_MAX_LENGTH",
}

// setEnv blanks every config key, then applies env.
func setEnv(t *testing.T, env map[string]string) {
	t.Helper()

	for _, k := range keys {
		t.Setenv(k, env[k])
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, map[string]string{
		"DB_URL":     "postgres://localhost/anonbox",
		"JWT_SECRET": "secret",
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "anonbox", cfg.MongoDatabase)
	assert.Equal(t, 10, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 300, cfg.MessageMaxLength)
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, map[string]string{
		"PORT":                "9000",
		"STORE_DRIVER":        "memory",
		"JWT_SECRET":          "secret",
		"JWT_ISS":             "anonbox",
		"RATE_LIMIT_REQUESTS": "5",
		"RATE_LIMIT_WINDOW":   "30s",
		"MESSAGE_MAX_LENGTH":  "120",
	})

	cfg, err := Load()
	require.NoError(t, err)

	want := &Config{
		Port:              "9000",
		StoreDriver:       DriverMemory,
		MongoURI:          "mongodb://localhost:27017",
		MongoDatabase:     "anonbox",
		JWTSecret:         "secret",
		JWTIssuer:         "anonbox",
		RateLimitRequests: 5,
		RateLimitWindow:   30 * time.Second,
		MessageMaxLength:  120,
	}
	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing_db_url", map[string]string{"JWT_SECRET": "s"}},
		{"missing_secret", map[string]string{"STORE_DRIVER": "memory"}},
		{"unknown_driver", map[string]string{"STORE_DRIVER": "redis", "JWT_SECRET": "s"}},
		{"bad_int", map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": "s", "RATE_LIMIT_REQUESTS": "ten"}},
		{"bad_duration", map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": "s", "RATE_LIMIT_WINDOW": "soon"}},
		{"zero_requests", map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": "s", "RATE_LIMIT_REQUESTS": "0"}},
		{"negative_window", map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": "s", "RATE_LIMIT_WINDOW": "-1s"}},
		{"zero_max_length", map[string]string{"STORE_DRIVER": "memory", "JWT_SECRET": "s", "MESSAGE_MAX_LENGTH": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.env)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	setEnv(t, map[string]string{"STORE_DRIVER": "memory"})
	// godotenv never overrides variables that are already present.
	require.NoError(t, os.Unsetenv("JWT_SECRET"))
	require.NoError(t, os.Unsetenv("PORT"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-file\nPORT=7000\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "7000", cfg.Port)
}
