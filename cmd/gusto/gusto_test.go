package main

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/RyanBlaney/sonido-gusto/catalog"
	"github.com/RyanBlaney/sonido-gusto/classifier"
	"github.com/RyanBlaney/sonido-gusto/fetch"
	"github.com/RyanBlaney/sonido-gusto/logging"
	"github.com/RyanBlaney/sonido-gusto/session"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	logging.SetGlobalLogger(&logging.NoOpLogger{})
	os.Exit(m.Run())
}

type stubSearcher map[string][]catalog.Track

func (s stubSearcher) Search(ctx context.Context, query string, limit int) ([]catalog.Track, error) {
	return s[query], nil
}

func (s stubSearcher) Lookup(ctx context.Context, id string) (catalog.Track, error) {
	return catalog.Track{}, catalog.ErrNotFound
}

func TestVerdict(t *testing.T) {
	assert.Equal(t, "MATCH!! (87%)", verdict(classifier.Prediction{Label: 1, Confidence: 0.871}))
	assert.Equal(t, "SKIP!! (12%)", verdict(classifier.Prediction{Label: 0, Confidence: 0.12}))
	assert.Equal(t, "Tempo: 128 BPM", tempoLine(127.6))
	assert.Equal(t, "Beats: 3 (first at 0.51 s)", beatsLine([]float64{0.5108, 1.0, 1.5}))
	assert.Equal(t, "Beats: none", beatsLine(nil))
}

func TestChoose(t *testing.T) {
	tracks := []catalog.Track{
		{ID: "1", Title: "no preview"},
		{ID: "2", Title: "ok", PreviewURL: "https://example.com/2.m4a"},
	}

	track, err := choose(tracks, 0)
	require.NoError(t, err)
	assert.Equal(t, "2", track.ID)

	_, err = choose(tracks, 1)
	assert.ErrorIs(t, err, fetch.ErrFetchFailed)

	_, err = choose(tracks, 3)
	assert.Error(t, err)

	_, err = choose(tracks[:1], 0)
	assert.ErrorIs(t, err, fetch.ErrFetchFailed)
}

func TestParseAnswer(t *testing.T) {
	for _, raw := range []string{"like", "Yes", " y ", "1"} {
		liked, err := parseAnswer(raw)
		require.NoError(t, err)
		assert.True(t, liked, raw)
	}
	for _, raw := range []string{"skip", "dislike", "no", "0"} {
		liked, err := parseAnswer(raw)
		require.NoError(t, err)
		assert.False(t, liked, raw)
	}
	_, err := parseAnswer("maybe")
	assert.Error(t, err)
}

func TestSeedAndQuiz(t *testing.T) {
	searcher := stubSearcher{
		"sicko": {{ID: "a", Title: "Sicko", PreviewURL: "https://example.com/a.m4a"}},
		"baby":  {{ID: "b", Title: "Baby"}, {ID: "c", Title: "Baby (live)", PreviewURL: "https://example.com/c.m4a"}},
	}

	s, err := seedSession(context.Background(), searcher, session.New(), []string{"sicko"}, []string{"baby"})
	require.NoError(t, err)
	assert.Equal(t, "a", s.Liked[0].ID)
	assert.Equal(t, "c", s.Disliked[0].ID)

	_, err = seedSession(context.Background(), searcher, session.New(), []string{"nothing"}, nil)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	s, err = s.BeginCalibration()
	require.NoError(t, err)

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	_, err = runQuiz(cmd, s, []string{"like"})
	assert.Error(t, err)

	done, err := runQuiz(cmd, s, []string{"like", "skip", "like"})
	require.NoError(t, err)
	assert.Equal(t, session.StepComplete, done.Step)
	assert.Len(t, done.Labeled(), 5)
	assert.Contains(t, out.String(), "Calibration: Song 3 of 3: Shape of You by Ed Sheeran -> like")
}

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"search", "ingest", "profile", "train", "tune", "predict", "analyze"}, names)
}
