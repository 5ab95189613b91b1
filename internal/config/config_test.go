package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("TOKEN_ROTATION", "")
	t.Setenv("CONFIG_PATH", "")

	cfg := Load()
	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.TokenRotation)
	assert.Equal(t, "attendance-portal", cfg.JWTIssuer)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("TOKEN_ROTATION", "45s")
	t.Setenv("FACE_SKIP", "false")
	t.Setenv("RATE_LIMIT_PER_MIN", "10")
	t.Setenv("APP_ENV", "production")
	t.Setenv("REQUIRE_QR_TOKEN", "true")

	cfg := Load()
	assert.True(t, cfg.RequireQRToken)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 45*time.Second, cfg.TokenRotation)
	assert.False(t, cfg.FaceSkip)
	assert.Equal(t, 10, cfg.RateLimitPerMin)
	assert.True(t, cfg.Production())
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("TOKEN_ROTATION", "soon")
	t.Setenv("RATE_LIMIT_PER_MIN", "lots")
	t.Setenv("FACE_SKIP", "maybe")

	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.TokenRotation)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.True(t, cfg.FaceSkip)
}

func TestConfigFileDoesNotOverrideEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("TIMEZONE: UTC\nSTORAGE_BACKEND: s3\nS3_BUCKET: from-file\n"), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("S3_BUCKET", "from-env")
	// registered so the file's values are removed again after the test
	t.Setenv("TIMEZONE", "")
	t.Setenv("STORAGE_BACKEND", "")
	os.Unsetenv("TIMEZONE")
	os.Unsetenv("STORAGE_BACKEND")

	cfg := Load()
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "s3", cfg.StorageBackend)
	assert.Equal(t, "from-env", cfg.S3Bucket)
	assert.Equal(t, "UTC", cfg.Location().String())
}

func TestLocationFallsBackToLocal(t *testing.T) {
	assert.Equal(t, time.Local, App{Timezone: "Mars/Olympus"}.Location())
}
