package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/RyanBlaney/sonido-gusto/catalog"
	"github.com/RyanBlaney/sonido-gusto/fetch"
	"github.com/RyanBlaney/sonido-gusto/ingest"
	"github.com/RyanBlaney/sonido-gusto/logging"
	"github.com/RyanBlaney/sonido-gusto/transcode"
	"github.com/joho/godotenv"
)

// Config is the application configuration shared by the CLI commands
type Config struct {
	TempDir      string        `json:"temp_dir"`
	ModelsDir    string        `json:"models_dir"`
	DBPath       string        `json:"db_path"` // empty disables the sqlite store
	DataPath     string        `json:"data_path"`
	FFmpegPath   string        `json:"ffmpeg_path"`
	FFprobePath  string        `json:"ffprobe_path"`
	CatalogURL   string        `json:"catalog_url"`
	LogLevel     logging.Level `json:"log_level"`
	HTTPRetries  int           `json:"http_retries"`
	RetryBackoff time.Duration `json:"retry_backoff"`
	IngestDelay  time.Duration `json:"ingest_delay"`
}

// Default keeps datasets under ./data and model pairs under ./models
func Default() *Config {
	return &Config{
		TempDir:      filepath.Join("data", "temp"),
		ModelsDir:    "models",
		DataPath:     filepath.Join("data", "raw", "training_data.csv"),
		FFmpegPath:   "ffmpeg",
		FFprobePath:  "ffprobe",
		CatalogURL:   catalog.DefaultConfig().BaseURL,
		LogLevel:     logging.InfoLevel,
		HTTPRetries:  catalog.DefaultConfig().MaxRetries,
		RetryBackoff: catalog.DefaultConfig().RetryBackoff,
		IngestDelay:  ingest.DefaultConfig().Delay,
	}
}

// Load reads an optional .env file (envFile, or ./.env when empty) and
// then applies GUSTO_* environment variables over the defaults. Variables
// already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
	}

	return FromEnv(os.LookupEnv)
}

// FromEnv applies variables from lookup over the defaults
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	c := Default()

	paths := map[string]*string{
		"GUSTO_TEMP_DIR":     &c.TempDir,
		"GUSTO_MODELS_DIR":   &c.ModelsDir,
		"GUSTO_DB_PATH":      &c.DBPath,
		"GUSTO_DATA_PATH":    &c.DataPath,
		"GUSTO_FFMPEG_PATH":  &c.FFmpegPath,
		"GUSTO_FFPROBE_PATH": &c.FFprobePath,
		"GUSTO_CATALOG_URL":  &c.CatalogURL,
	}
	for key, target := range paths {
		if v, ok := lookup(key); ok && v != "" {
			*target = v
		}
	}

	if v, ok := lookup("GUSTO_LOG_LEVEL"); ok {
		level, err := logging.ParseLevel(v)
		if err != nil {
			return nil, fmt.Errorf("GUSTO_LOG_LEVEL: %w", err)
		}
		c.LogLevel = level
	}

	if v, ok := lookup("GUSTO_HTTP_RETRIES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("GUSTO_HTTP_RETRIES: invalid value %q", v)
		}
		c.HTTPRetries = n
	}

	durations := map[string]*time.Duration{
		"GUSTO_RETRY_BACKOFF_MS": &c.RetryBackoff,
		"GUSTO_INGEST_DELAY_MS":  &c.IngestDelay,
	}
	for key, target := range durations {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			return nil, fmt.Errorf("%s: invalid value %q", key, v)
		}
		*target = time.Duration(ms) * time.Millisecond
	}

	return c, nil
}

// Catalog builds the iTunes client config
func (c *Config) Catalog() *catalog.Config {
	cc := catalog.DefaultConfig()
	cc.BaseURL = c.CatalogURL
	cc.MaxRetries = c.HTTPRetries
	cc.RetryBackoff = c.RetryBackoff
	return cc
}

// Fetch builds the download config
func (c *Config) Fetch() *fetch.Config {
	fc := fetch.DefaultConfig()
	fc.TempDir = c.TempDir
	return fc
}

// Decoder builds the ffmpeg decoder config
func (c *Config) Decoder() *transcode.DecoderConfig {
	dc := transcode.DefaultDecoderConfig()
	dc.FFmpegPath = c.FFmpegPath
	dc.FFprobePath = c.FFprobePath
	return dc
}

// Ingest builds the batch ingestion config
func (c *Config) Ingest() *ingest.Config {
	ic := ingest.DefaultConfig()
	ic.Delay = c.IngestDelay
	return ic
}
