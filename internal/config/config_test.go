package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte(content), 0o600))
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddress)
	assert.Equal(t, StorageRedis, cfg.StorageBackend)
	assert.Equal(t, 10*time.Second, cfg.GeolocationTimeout)
	assert.Equal(t, 8*time.Second, cfg.MapsLoadTimeout)
	assert.True(t, cfg.IsDev())
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := writeEnvFile(t, "STORAGE_BACKEND=postgres\nDB_SOURCE=postgres://u:p@db:5432/loc\nMAPS_LOAD_TIMEOUT=5s\n")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.StorageBackend)
	assert.Equal(t, "postgres://u:p@db:5432/loc", cfg.DBSource)
	assert.Equal(t, 5*time.Second, cfg.MapsLoadTimeout)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := writeEnvFile(t, "SERVER_ADDRESS=127.0.0.1:9000\n")
	t.Setenv("SERVER_ADDRESS", "127.0.0.1:9100")
	t.Setenv("STORAGE_BACKEND", "NONE")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9100", cfg.ServerAddress)
	assert.Equal(t, StorageNone, cfg.StorageBackend)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "redis with address",
			cfg:  Config{StorageBackend: StorageRedis, RedisAddr: "localhost:6379", GeolocationTimeout: time.Second, MapsLoadTimeout: time.Second},
		},
		{
			name:    "redis without address",
			cfg:     Config{StorageBackend: StorageRedis, GeolocationTimeout: time.Second, MapsLoadTimeout: time.Second},
			wantErr: true,
		},
		{
			name:    "postgres without source",
			cfg:     Config{StorageBackend: StoragePostgres, GeolocationTimeout: time.Second, MapsLoadTimeout: time.Second},
			wantErr: true,
		},
		{
			name:    "unknown backend",
			cfg:     Config{StorageBackend: "localstorage", GeolocationTimeout: time.Second, MapsLoadTimeout: time.Second},
			wantErr: true,
		},
		{
			name:    "zero geolocation timeout",
			cfg:     Config{StorageBackend: StorageNone, MapsLoadTimeout: time.Second},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
