package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	c := New()
	c.MongoURI = "mongodb://localhost:27017"
	c.AccessTokenSecret = "access"
	c.RefreshTokenSecret = "refresh"
	c.Media.R2 = R2{Bucket: "b", AccessKeyID: "k", SecretAccessKey: "s", Endpoint: "https://r2.example.com"}
	return c
}

func TestConfig_Defaults(t *testing.T) {
	c := New()

	require.Equal(t, ":8000", c.ListenAddr)
	require.Equal(t, StoreMongo, c.StoreDriver)
	require.Equal(t, 15*time.Minute, c.AccessTokenTTL)
	require.Equal(t, 240*time.Hour, c.RefreshTokenTTL)
	require.Equal(t, MediaR2, c.Media.Provider)
}

func TestConfig_LoadEnv(t *testing.T) {
	env := map[string]string{
		"RUN_ADDRESS":          "127.0.0.1:9000",
		"MONGODB_URI":          "mongodb://db:27017",
		"ACCESS_TOKEN_SECRET":  "a-secret",
		"REFRESH_TOKEN_SECRET": "r-secret",
		"ACCESS_TOKEN_EXPIRY":  "5m",
		"REFRESH_TOKEN_EXPIRY": "not-a-duration",
		"ALLOWED_ORIGINS":      " https://a.example , ,https://b.example",
		"MAX_UPLOAD_SIZE_MB":   "-1",
		"MEDIA_PROVIDER":       "gcs",
		"GCS_BUCKET":           "media",
		"TRUSTED_PROXIES":      "10.0.0.1, 10.0.0.2",
	}

	c := New()
	c.LoadEnv(func(key string) string { return env[key] })

	require.Equal(t, "127.0.0.1:9000", c.ListenAddr)
	require.Equal(t, "mongodb://db:27017", c.MongoURI)
	require.Equal(t, 5*time.Minute, c.AccessTokenTTL)
	require.Equal(t, defaultRefreshTokenTTL, c.RefreshTokenTTL, "invalid duration keeps default")
	require.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
	require.Equal(t, defaultMaxUploadMB, c.MaxUploadMB, "non positive size keeps default")
	require.Equal(t, MediaGCS, c.Media.Provider)
	require.Equal(t, "media", c.Media.GCS.Bucket)
	require.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, c.TrustedProxies)
	require.NoError(t, c.Validate())
}

func TestConfig_LoadDotEnv(t *testing.T) {
	t.Run("reads file from working dir", func(t *testing.T) {
		dir := t.TempDir()
		err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DATABASE_NAME=fromfile\nLOG_LEVEL=debug\n"), 0o600)
		require.NoError(t, err)

		c := New()
		err = c.LoadDotEnv(func() (string, error) { return dir, nil })

		require.NoError(t, err)
		require.Equal(t, "fromfile", c.DatabaseName)
		require.Equal(t, "debug", c.LogLevel)
	})

	t.Run("missing file is fine", func(t *testing.T) {
		c := New()
		err := c.LoadDotEnv(func() (string, error) { return t.TempDir(), nil })

		require.NoError(t, err)
		require.Equal(t, defaultDatabaseName, c.DatabaseName)
	})

	t.Run("getwd error", func(t *testing.T) {
		c := New()
		err := c.LoadDotEnv(func() (string, error) { return "", errors.New("boom") })

		require.Error(t, err)
	})
}

func TestConfig_ParseFlags(t *testing.T) {
	c := New()
	err := c.ParseFlags([]string{"-a", ":7000", "--store", "memory", "--media-provider", "gcs"})

	require.NoError(t, err)
	require.Equal(t, ":7000", c.ListenAddr)
	require.Equal(t, StoreMemory, c.StoreDriver)
	require.Equal(t, MediaGCS, c.Media.Provider)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"memory store needs no uri", func(c *Config) { c.StoreDriver = StoreMemory; c.MongoURI = "" }, true},
		{"missing access secret", func(c *Config) { c.AccessTokenSecret = "" }, false},
		{"missing refresh secret", func(c *Config) { c.RefreshTokenSecret = "" }, false},
		{"same secrets", func(c *Config) { c.RefreshTokenSecret = c.AccessTokenSecret }, false},
		{"mongo without uri", func(c *Config) { c.MongoURI = "" }, false},
		{"unknown store", func(c *Config) { c.StoreDriver = "sqlite" }, false},
		{"r2 incomplete", func(c *Config) { c.Media.R2.Endpoint = "" }, false},
		{"gcs without bucket", func(c *Config) { c.Media.Provider = MediaGCS }, false},
		{"unknown provider", func(c *Config) { c.Media.Provider = "cloudinary" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()

			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}
