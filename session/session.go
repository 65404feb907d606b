package session

import (
	"errors"
	"fmt"
	"slices"

	"github.com/RyanBlaney/sonido-gusto/catalog"
	"github.com/RyanBlaney/sonido-gusto/dataset"
)

var (
	// ErrNeedLikedTrack is returned when calibration starts with no liked
	// seed track
	ErrNeedLikedTrack = errors.New("at least one liked track is required")
	// ErrWrongStep is returned for a transition the current step does not
	// allow
	ErrWrongStep = errors.New("transition not allowed in this step")
)

// Step is the profile-building phase
type Step string

const (
	StepCollectingSeed  Step = "collecting_seed"
	StepCalibrationQuiz Step = "calibration_quiz"
	StepComplete        Step = "complete"
)

// DefaultDiagnosticTracks is the calibration quiz, asked in order
var DefaultDiagnosticTracks = []catalog.Track{
	{
		ID:         "diag_0",
		Title:      "Bohemian Rhapsody",
		Artist:     "Queen",
		PreviewURL: "https://audio-ssl.itunes.apple.com/itunes-assets/AudioPreview115/v4/4a/02/33/4a023308-c8b1-362c-850d-6a58a939f605/mzaf_6765793086383637845.plus.aac.p.m4a",
	},
	{
		ID:         "diag_1",
		Title:      "Sicko Mode",
		Artist:     "Travis Scott",
		PreviewURL: "https://audio-ssl.itunes.apple.com/itunes-assets/AudioPreview115/v4/4e/c9/28/4ec92815-5e6e-3151-692a-74dfa96860d5/mzaf_995276662479906429.plus.aac.p.m4a",
	},
	{
		ID:         "diag_2",
		Title:      "Shape of You",
		Artist:     "Ed Sheeran",
		PreviewURL: "https://audio-ssl.itunes.apple.com/itunes-assets/AudioPreview125/v4/e5/23/c3/e523c348-7359-573e-329b-90f7d6df8326/mzaf_7302458421882834079.plus.aac.p.m4a",
	},
}

// Session is the state of one profile build. It is a value: transitions
// return an updated copy and never modify the receiver.
type Session struct {
	Step        Step            `json:"step"`
	Liked       []catalog.Track `json:"liked"`
	Disliked    []catalog.Track `json:"disliked"`
	QuizIndex   int             `json:"quiz_index"`
	Diagnostics []catalog.Track `json:"diagnostics"`
}

// New starts a session that collects seed tracks, then asks diagnostics
func New(diagnostics ...catalog.Track) Session {
	if len(diagnostics) == 0 {
		diagnostics = DefaultDiagnosticTracks
	}
	return Session{
		Step:        StepCollectingSeed,
		Diagnostics: slices.Clone(diagnostics),
	}
}

func (s Session) clone() Session {
	s.Liked = slices.Clone(s.Liked)
	s.Disliked = slices.Clone(s.Disliked)
	return s
}

func (s Session) require(step Step) error {
	if s.Step != step {
		return fmt.Errorf("%w: session is in %s, need %s", ErrWrongStep, s.Step, step)
	}
	return nil
}

// AddLiked adds a seed track to the liked list unless it is already there
func (s Session) AddLiked(track catalog.Track) (Session, error) {
	if err := s.require(StepCollectingSeed); err != nil {
		return s, err
	}
	next := s.clone()
	next.Liked = appendUnique(next.Liked, track)
	return next, nil
}

// AddDisliked adds a seed track to the disliked list unless it is already
// there
func (s Session) AddDisliked(track catalog.Track) (Session, error) {
	if err := s.require(StepCollectingSeed); err != nil {
		return s, err
	}
	next := s.clone()
	next.Disliked = appendUnique(next.Disliked, track)
	return next, nil
}

// Remove drops a track from both seed lists
func (s Session) Remove(id string) (Session, error) {
	if err := s.require(StepCollectingSeed); err != nil {
		return s, err
	}
	next := s.clone()
	byID := func(t catalog.Track) bool { return t.ID == id }
	next.Liked = slices.DeleteFunc(next.Liked, byID)
	next.Disliked = slices.DeleteFunc(next.Disliked, byID)
	return next, nil
}

// BeginCalibration moves to the quiz. An empty quiz completes at once.
func (s Session) BeginCalibration() (Session, error) {
	if err := s.require(StepCollectingSeed); err != nil {
		return s, err
	}
	if len(s.Liked) == 0 {
		return s, ErrNeedLikedTrack
	}

	next := s.clone()
	next.QuizIndex = 0
	next.Step = StepCalibrationQuiz
	if len(next.Diagnostics) == 0 {
		next.Step = StepComplete
	}
	return next, nil
}

// Current is the diagnostic track awaiting an answer
func (s Session) Current() (catalog.Track, bool) {
	if s.Step != StepCalibrationQuiz || s.QuizIndex >= len(s.Diagnostics) {
		return catalog.Track{}, false
	}
	return s.Diagnostics[s.QuizIndex], true
}

// Progress reports the 1-based question number and the quiz length
func (s Session) Progress() (question, total int) {
	return s.QuizIndex + 1, len(s.Diagnostics)
}

// Answer files the current diagnostic track under liked or disliked and
// advances; the last answer completes the session
func (s Session) Answer(liked bool) (Session, error) {
	track, ok := s.Current()
	if !ok {
		return s, fmt.Errorf("%w: no question pending", ErrWrongStep)
	}

	next := s.clone()
	if liked {
		next.Liked = appendUnique(next.Liked, track)
	} else {
		next.Disliked = appendUnique(next.Disliked, track)
	}

	next.QuizIndex++
	if next.QuizIndex >= len(next.Diagnostics) {
		next.Step = StepComplete
	}
	return next, nil
}

// Labeled is a track with the user's verdict
type Labeled struct {
	Track catalog.Track
	Label int
}

// Labeled returns liked tracks then disliked ones
func (s Session) Labeled() []Labeled {
	out := make([]Labeled, 0, len(s.Liked)+len(s.Disliked))
	for _, t := range s.Liked {
		out = append(out, Labeled{Track: t, Label: dataset.Like})
	}
	for _, t := range s.Disliked {
		out = append(out, Labeled{Track: t, Label: dataset.Dislike})
	}
	return out
}

func appendUnique(tracks []catalog.Track, track catalog.Track) []catalog.Track {
	if slices.ContainsFunc(tracks, func(t catalog.Track) bool { return t.ID == track.ID }) {
		return tracks
	}
	return append(tracks, track)
}
