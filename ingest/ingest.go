package ingest

import (
	"context"
	"time"

	"github.com/RyanBlaney/sonido-gusto/catalog"
	"github.com/RyanBlaney/sonido-gusto/dataset"
	"github.com/RyanBlaney/sonido-gusto/features"
	"github.com/RyanBlaney/sonido-gusto/logging"
)

// DefaultLikedArtists seeds the like class of the bootstrap dataset
var DefaultLikedArtists = []string{
	"Playboi Carti",
	"Drake",
	"Kendrick Lamar",
	"J. Cole",
	"Travis Scott",
	"Lil Uzi Vert",
	"Post Malone",
	"21 Savage",
	"Lil Baby",
}

// DefaultDislikedArtists seeds the dislike class
var DefaultDislikedArtists = []string{
	"Nickelback",
	"Justin Bieber",
	"Rebecca Black",
	"Limp Bizkit",
	"Insane Clown Posse",
	"Soulja Boy",
	"Hanson",
	"Celine Dion",
}

// Fetcher stores a track's audio locally and returns the path
type Fetcher interface {
	Fetch(ctx context.Context, track catalog.Track) (string, error)
}

// Extractor turns an audio file into a feature record. It owns the file.
type Extractor interface {
	ExtractFile(ctx context.Context, path string) (features.Record, error)
}

// Config controls batch ingestion
type Config struct {
	TracksPerArtist int           `json:"tracks_per_artist"`
	Delay           time.Duration `json:"delay"` // pause between catalog calls
}

func DefaultConfig() *Config {
	return &Config{
		TracksPerArtist: 5,
		Delay:           time.Second,
	}
}

// Result is the outcome for one track. Exactly one of Record and Err is
// set.
type Result struct {
	Track  catalog.Track
	Label  int
	Record features.Record
	Err    error
}

// Ingestor searches, fetches and extracts tracks into labeled rows
type Ingestor struct {
	searcher  catalog.Searcher
	fetcher   Fetcher
	extractor Extractor
	config    *Config
	logger    logging.Logger
}

func NewIngestor(searcher catalog.Searcher, fetcher Fetcher, extractor Extractor, config *Config) *Ingestor {
	if config == nil {
		config = DefaultConfig()
	}
	return &Ingestor{
		searcher:  searcher,
		fetcher:   fetcher,
		extractor: extractor,
		config:    config,
		logger: logging.WithFields(logging.Fields{
			"component": "ingest",
		}),
	}
}

// IngestArtists searches every artist and processes their top tracks. A
// failed search or track becomes a failed Result; only cancellation stops
// the batch, returning what was processed so far.
func (i *Ingestor) IngestArtists(ctx context.Context, artists []string, label int) ([]Result, error) {
	logger := i.logger.WithFields(logging.Fields{
		"function": "IngestArtists",
		"label":    label,
	})

	var results []Result
	for n, artist := range artists {
		if n > 0 {
			if err := i.pause(ctx); err != nil {
				return results, err
			}
		}

		logger.Info("Searching artist", logging.Fields{"artist": artist})

		tracks, err := i.searcher.Search(ctx, artist, i.config.TracksPerArtist)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			logger.Error(err, "Artist search failed", logging.Fields{"artist": artist})
			results = append(results, Result{Track: catalog.Track{Artist: artist}, Label: label, Err: err})
			continue
		}

		batch, err := i.IngestTracks(ctx, tracks, label)
		results = append(results, batch...)
		if err != nil {
			return results, err
		}
	}

	return results, nil
}

// IngestTracks fetches and extracts each track in order
func (i *Ingestor) IngestTracks(ctx context.Context, tracks []catalog.Track, label int) ([]Result, error) {
	results := make([]Result, 0, len(tracks))
	for n, track := range tracks {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if n > 0 {
			if err := i.pause(ctx); err != nil {
				return results, err
			}
		}

		results = append(results, i.process(ctx, track, label))
	}
	return results, nil
}

func (i *Ingestor) process(ctx context.Context, track catalog.Track, label int) Result {
	logger := i.logger.WithFields(logging.Fields{
		"function": "process",
		"track_id": track.ID,
		"title":    track.Title,
	})

	result := Result{Track: track, Label: label}

	path, err := i.fetcher.Fetch(ctx, track)
	if err != nil {
		logger.Warn("Download failed", logging.Fields{"error": err.Error()})
		result.Err = err
		return result
	}

	record, err := i.extractor.ExtractFile(ctx, path)
	if err != nil {
		logger.Warn("Feature extraction failed", logging.Fields{"error": err.Error()})
		result.Err = err
		return result
	}

	logger.Debug("Track processed")
	result.Record = record
	return result
}

func (i *Ingestor) pause(ctx context.Context) error {
	if i.config.Delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(i.config.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Summary folds a batch into a dataset plus the tracks that failed
type Summary struct {
	Dataset  *dataset.Dataset
	Failures []Result
}

// Processed is the number of tracks that produced a row
func (s Summary) Processed() int {
	return s.Dataset.Len()
}

// Fold keeps successful results as rows, in order
func Fold(results []Result) Summary {
	summary := Summary{Dataset: dataset.New()}
	for _, r := range results {
		if r.Err != nil || r.Record == nil {
			summary.Failures = append(summary.Failures, r)
			continue
		}
		summary.Dataset.Add(dataset.Row{
			Track:    r.Track,
			Features: r.Record,
			Label:    r.Label,
		})
	}
	return summary
}
