package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-gusto/classifier"
	"github.com/RyanBlaney/sonido-gusto/dataset"
	"github.com/RyanBlaney/sonido-gusto/features"
	_ "modernc.org/sqlite"
)

// ErrNoModel is returned by LatestModel when nothing has been saved
var ErrNoModel = errors.New("no model stored")

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		track_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		artist TEXT NOT NULL DEFAULT '',
		preview_url TEXT NOT NULL DEFAULT '',
		label INTEGER NOT NULL,
		features TEXT NOT NULL,
		createdAt REAL NOT NULL,
		UNIQUE(track_id, label)
	);

	CREATE TABLE IF NOT EXISTS models (
		pair_id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		scaler TEXT NOT NULL,
		classifier TEXT NOT NULL,
		createdAt REAL NOT NULL
	);
`

// Store keeps labeled samples and trained model pairs in one SQLite file
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database and migrates it
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// a single connection keeps writes serialized
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

const upsertSampleSQL = `
	INSERT INTO samples (track_id, title, artist, preview_url, label, features, createdAt)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(track_id, label) DO UPDATE SET
		title = excluded.title,
		artist = excluded.artist,
		preview_url = excluded.preview_url,
		features = excluded.features
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveSample upserts a labeled row; the same track with the same label is
// stored once, with the newest features
func (s *Store) SaveSample(ctx context.Context, row dataset.Row) error {
	return s.upsertSample(ctx, s.db, row)
}

// SaveDataset stores every row of ds in one transaction
func (s *Store) SaveDataset(ctx context.Context, ds *dataset.Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, row := range ds.Rows {
		if err := s.upsertSample(ctx, tx, row); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) upsertSample(ctx context.Context, db execer, row dataset.Row) error {
	encoded, err := json.Marshal(row.Features)
	if err != nil {
		return fmt.Errorf("encode features of %s: %w", row.Track.ID, err)
	}

	if _, err := db.ExecContext(ctx, upsertSampleSQL,
		row.Track.ID, row.Track.Title, row.Track.Artist, row.Track.PreviewURL,
		row.Label, string(encoded), unixTime(s.now())); err != nil {
		return fmt.Errorf("insert sample %s: %w", row.Track.ID, err)
	}
	return nil
}

// Samples returns every stored row in insertion order
func (s *Store) Samples(ctx context.Context) (*dataset.Dataset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT track_id, title, artist, preview_url, label, features
		FROM samples
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	ds := dataset.New()
	for rows.Next() {
		var row dataset.Row
		var encoded string
		if err := rows.Scan(&row.Track.ID, &row.Track.Title, &row.Track.Artist,
			&row.Track.PreviewURL, &row.Label, &encoded); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}

		row.Features = make(features.Record)
		if err := json.Unmarshal([]byte(encoded), &row.Features); err != nil {
			return nil, fmt.Errorf("decode features of %s: %w", row.Track.ID, err)
		}
		ds.Add(row)
	}
	return ds, rows.Err()
}

// SaveModel stores both blobs of a pair in one row
func (s *Store) SaveModel(ctx context.Context, pair *classifier.Pair) error {
	scaler, model, err := classifier.MarshalBlobs(pair)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO models (pair_id, kind, fingerprint, scaler, classifier, createdAt)
		VALUES (?, ?, ?, ?, ?, ?)
	`, pair.ID, string(pair.Model.Kind()), pair.Schema.Fingerprint(),
		string(scaler), string(model), unixTime(s.now()))
	if err != nil {
		return fmt.Errorf("insert model: %w", err)
	}
	return nil
}

// LatestModel loads the most recently saved pair fitted on schema
func (s *Store) LatestModel(ctx context.Context, schema *features.Schema) (*classifier.Pair, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT scaler, classifier
		FROM models
		WHERE fingerprint = ?
		ORDER BY createdAt DESC, rowid DESC
		LIMIT 1
	`, schema.Fingerprint())

	var scaler, model string
	if err := row.Scan(&scaler, &model); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoModel
		}
		return nil, fmt.Errorf("scan model: %w", err)
	}

	return classifier.UnmarshalBlobs([]byte(scaler), []byte(model), schema)
}

func unixTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
