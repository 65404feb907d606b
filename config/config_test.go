package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-gusto/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	c, err := FromEnv(lookupFrom(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.Equal(t, "https://itunes.apple.com", c.CatalogURL)
	assert.Equal(t, time.Second, c.IngestDelay)
	assert.Empty(t, c.DBPath)
}

func TestFromEnvOverrides(t *testing.T) {
	c, err := FromEnv(lookupFrom(map[string]string{
		"GUSTO_TEMP_DIR":         "/tmp/g",
		"GUSTO_DB_PATH":          "/tmp/g.sqlite",
		"GUSTO_LOG_LEVEL":        "debug",
		"GUSTO_HTTP_RETRIES":     "7",
		"GUSTO_RETRY_BACKOFF_MS": "250",
		"GUSTO_INGEST_DELAY_MS":  "0",
		"GUSTO_FFMPEG_PATH":      "/opt/ffmpeg",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/g", c.TempDir)
	assert.Equal(t, "/tmp/g.sqlite", c.DBPath)
	assert.Equal(t, logging.DebugLevel, c.LogLevel)
	assert.Equal(t, 7, c.HTTPRetries)
	assert.Equal(t, 250*time.Millisecond, c.RetryBackoff)
	assert.Equal(t, time.Duration(0), c.IngestDelay)

	assert.Equal(t, 7, c.Catalog().MaxRetries)
	assert.Equal(t, "/tmp/g", c.Fetch().TempDir)
	assert.Equal(t, "/opt/ffmpeg", c.Decoder().FFmpegPath)
	assert.Equal(t, time.Duration(0), c.Ingest().Delay)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	for key, value := range map[string]string{
		"GUSTO_LOG_LEVEL":        "chatty",
		"GUSTO_HTTP_RETRIES":     "-1",
		"GUSTO_RETRY_BACKOFF_MS": "soon",
	} {
		_, err := FromEnv(lookupFrom(map[string]string{key: value}))
		assert.Error(t, err, key)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("GUSTO_MODELS_DIR=/srv/models\n"), 0o644))
	t.Setenv("GUSTO_MODELS_DIR", "")
	os.Unsetenv("GUSTO_MODELS_DIR")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/models", c.ModelsDir)
}

func TestLoadWithoutEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}
