package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-gusto/catalog"
	"github.com/RyanBlaney/sonido-gusto/classifier"
	"github.com/RyanBlaney/sonido-gusto/config"
	"github.com/RyanBlaney/sonido-gusto/dataset"
	"github.com/RyanBlaney/sonido-gusto/features"
	"github.com/RyanBlaney/sonido-gusto/fetch"
	"github.com/RyanBlaney/sonido-gusto/logging"
	"github.com/RyanBlaney/sonido-gusto/storage/sqlite"
	"github.com/RyanBlaney/sonido-gusto/transcode"
	"github.com/spf13/cobra"
)

// app carries the loaded configuration and builds collaborators on demand
type app struct {
	envFile  string
	logLevel string
	dbPath   string
	config   *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "gusto",
		Short:         "Learn your music taste and predict whether you will like a song",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "dotenv file to read (default ./.env)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides GUSTO_LOG_LEVEL)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "sqlite database for samples and models (overrides GUSTO_DB_PATH)")

	root.AddCommand(
		a.searchCmd(),
		a.ingestCmd(),
		a.profileCmd(),
		a.trainCmd(),
		a.tuneCmd(),
		a.predictCmd(),
		a.analyzeCmd(),
	)

	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		level, err := logging.ParseLevel(a.logLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}

	logging.SetLevel(cfg.LogLevel)
	a.config = cfg
	return nil
}

func (a *app) searcher() catalog.Searcher {
	return catalog.NewITunesClient(a.config.Catalog(), nil)
}

func (a *app) fetcher() *fetch.Fetcher {
	return fetch.NewFetcher(a.config.Fetch(), nil)
}

func (a *app) decoder() transcode.AudioDecoder {
	return transcode.NewAutoDecoder(a.config.Decoder())
}

func (a *app) extractor() *features.Extractor {
	return features.NewExtractor(features.DefaultFeatureConfig(), a.decoder())
}

// store opens the sqlite store, or returns nil when none is configured
func (a *app) store() (*sqlite.Store, error) {
	if a.config.DBPath == "" {
		return nil, nil
	}
	return sqlite.Open(a.config.DBPath)
}

// loadDataset reads the CSV dataset, merged with the sqlite samples when a
// store is configured
func (a *app) loadDataset(ctx context.Context, schema *features.Schema) (*dataset.Dataset, error) {
	ds, err := dataset.LoadCSV(a.config.DataPath, schema)
	if err != nil && !errors.Is(err, dataset.ErrInsufficientData) {
		return nil, err
	}
	if ds == nil {
		ds = dataset.New()
	}

	store, err := a.store()
	if err != nil {
		return nil, err
	}
	if store != nil {
		defer store.Close()
		stored, err := store.Samples(ctx)
		if err != nil {
			return nil, err
		}
		ds.Append(stored)
	}

	return ds, nil
}

// saveRows appends rows to the CSV dataset and the store
func (a *app) saveRows(ctx context.Context, schema *features.Schema, rows *dataset.Dataset) error {
	existing, err := dataset.LoadCSV(a.config.DataPath, schema)
	if err != nil && !errors.Is(err, dataset.ErrInsufficientData) {
		return err
	}
	if existing == nil {
		existing = dataset.New()
	}
	existing.Append(rows)

	if err := dataset.SaveCSV(a.config.DataPath, schema, existing); err != nil {
		return err
	}

	store, err := a.store()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		if err := store.SaveDataset(ctx, rows); err != nil {
			return err
		}
	}
	return nil
}

// loadModel prefers the model directory and falls back to the store
func (a *app) loadModel(ctx context.Context, schema *features.Schema) (*classifier.Pair, error) {
	pair, err := classifier.LoadDir(a.config.ModelsDir, schema)
	if err == nil {
		return pair, nil
	}

	store, storeErr := a.store()
	if storeErr != nil || store == nil {
		return nil, fmt.Errorf("no trained model in %s (run `gusto train`): %w", a.config.ModelsDir, err)
	}
	defer store.Close()
	return store.LatestModel(ctx, schema)
}
