package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points config discovery at an empty directory and clears env overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(configDirEnvKey, dir)
	for _, key := range []string{
		"PROTOSPACE_LISTEN_URL", "PROTOSPACE_DB", "PROTOSPACE_LOG_LEVEL",
		"PROTOSPACE_SESSION_TTL", "PROTOSPACE_TOKEN_SECRET", "PROTOSPACE_TOKEN_TTL",
		"PROTOSPACE_UPLOAD_MAX_BYTES", "PROTOSPACE_BLOB_BACKEND", "PROTOSPACE_BLOB_ROOT",
		"PROTOSPACE_S3_BUCKET", "PROTOSPACE_S3_REGION", "PROTOSPACE_S3_ENDPOINT",
		"PROTOSPACE_S3_ACCESS_KEY", "PROTOSPACE_S3_SECRET_KEY",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultListenURL, cfg.ListenURL)
	assert.Empty(t, cfg.DBPath)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultSessionTTL, cfg.SessionTTL.Duration)
	assert.Equal(t, DefaultTokenTTL, cfg.TokenTTL.Duration)
	assert.Equal(t, DefaultUploadMaxBytes, cfg.Uploads.MaxBytes)
	assert.Equal(t, DefaultUploadMultipartMemory, cfg.Uploads.MultipartMemory)
	assert.Equal(t, BlobBackendLocal, cfg.Blobs.Backend)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	require.NoError(t, os.WriteFile(path, []byte(`listen_url = "http://localhost:9999"
log_level = "warn"
session_ttl = "2h"

[uploads]
max_bytes = 2048

[blobs]
backend = "s3"
s3_bucket = "protos"
`), 0o644))

	cfg := Default()
	require.NoError(t, loadFile(path, &cfg))
	assert.Equal(t, "http://localhost:9999", cfg.ListenURL)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL.Duration)
	assert.Equal(t, int64(2048), cfg.Uploads.MaxBytes)
	assert.Equal(t, DefaultUploadMultipartMemory, cfg.Uploads.MultipartMemory)
	assert.Equal(t, "s3", cfg.Blobs.Backend)
	assert.Equal(t, "protos", cfg.Blobs.S3Bucket)
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	require.NoError(t, loadFile("/nonexistent/path/.protospace.toml", &cfg))
	assert.Equal(t, DefaultListenURL, cfg.ListenURL)
}

func TestLoadFileInvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	require.NoError(t, os.WriteFile(path, []byte("session_ttl = \"soon\"\n"), 0o644))

	cfg := Default()
	assert.Error(t, loadFile(path, &cfg))
}

func TestIsAllowedKey(t *testing.T) {
	for _, key := range AllowedKeys() {
		assert.True(t, IsAllowedKey(key), key)
	}
	assert.False(t, IsAllowedKey("invalid"))
	assert.True(t, IsSecretKey("token_secret"))
	assert.False(t, IsSecretKey("listen_url"))
}

func TestGetKey(t *testing.T) {
	cfg := Default()
	cfg.DBPath = "/tmp/test.db"
	cfg.Uploads.MaxBytes = 123
	cfg.Blobs.S3Region = "ap-northeast-1"

	for key, want := range map[string]string{
		"listen_url":        DefaultListenURL,
		"db_path":           "/tmp/test.db",
		"log_level":         DefaultLogLevel,
		"session_ttl":       "24h0m0s",
		"token_ttl":         "12h0m0s",
		"uploads.max_bytes": "123",
		"blobs.backend":     BlobBackendLocal,
		"blobs.s3_region":   "ap-northeast-1",
	} {
		got, err := cfg.Get(key)
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}
	for _, key := range AllowedKeys() {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
	_, err := cfg.Get("invalid")
	assert.Error(t, err)
}

func TestSetKeyCreatesAndUpdatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", configFileName)
	require.NoError(t, SetKey(path, "listen_url", "http://keep"))
	require.NoError(t, SetKey(path, "log_level", "error"))
	require.NoError(t, SetKey(path, "uploads.max_bytes", "4096"))
	require.NoError(t, SetKey(path, "session_ttl", "90m"))

	cfg := Default()
	require.NoError(t, loadFile(path, &cfg))
	assert.Equal(t, "http://keep", cfg.ListenURL)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, int64(4096), cfg.Uploads.MaxBytes)
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL.Duration)
}

func TestSetKeyRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	assert.Error(t, SetKey(path, "invalid_key", "value"))
	assert.Error(t, SetKey(path, "uploads.max_bytes", "-1"))
	assert.Error(t, SetKey(path, "token_ttl", "forever"))
	assert.Error(t, SetKey(path, "blobs.backend", "ftp"))
}

func TestLoadConfigDirOverride(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(`listen_url = "http://127.0.0.1:9001"
db_path = "/data/protospace.db"
`), 0o644))

	globalPath, err := GlobalPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, configFileName), globalPath)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9001", cfg.ListenURL)
	assert.Equal(t, "/data/protospace.db", cfg.DBPath)
	assert.Equal(t, "/data/blobs", cfg.BlobRoot())
}

func TestLoadDefaultsDBPathToWorkingDirectory(t *testing.T) {
	isolate(t)
	cwd, err := os.Getwd()
	require.NoError(t, err)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, DefaultDBFileName), cfg.DBPath)
}

func TestEnvOverrides(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte("listen_url = \"http://from-file\"\nlog_level = \"info\"\n"), 0o644))

	t.Setenv("PROTOSPACE_LISTEN_URL", "http://example.com:8080")
	t.Setenv("PROTOSPACE_DB", "/tmp/override.db")
	t.Setenv("PROTOSPACE_SESSION_TTL", "45m")
	t.Setenv("PROTOSPACE_UPLOAD_MAX_BYTES", "1024")
	t.Setenv("PROTOSPACE_BLOB_BACKEND", "S3")
	t.Setenv("PROTOSPACE_S3_BUCKET", "bucket")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://example.com:8080", cfg.ListenURL)
	assert.Equal(t, "/tmp/override.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 45*time.Minute, cfg.SessionTTL.Duration)
	assert.Equal(t, int64(1024), cfg.Uploads.MaxBytes)
	assert.Equal(t, BlobBackendS3, cfg.Blobs.Backend)
	assert.Equal(t, "bucket", cfg.Blobs.S3Bucket)
}

func TestLoadRejectsMalformedEnv(t *testing.T) {
	isolate(t)
	t.Setenv("PROTOSPACE_UPLOAD_MAX_BYTES", "lots")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFallsBackToDefaultLogLevelWhenConfiguredEmpty(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte("log_level = \"\"\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
}
