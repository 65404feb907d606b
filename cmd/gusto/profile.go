package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/RyanBlaney/sonido-gusto/catalog"
	"github.com/RyanBlaney/sonido-gusto/ingest"
	"github.com/RyanBlaney/sonido-gusto/session"
	"github.com/spf13/cobra"
)

func (a *app) profileCmd() *cobra.Command {
	var (
		likes    []string
		dislikes []string
		answers  []string
	)

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Seed your profile with songs and answer the calibration quiz",
		Long: "Each --like and --dislike query adds the first matching song with a preview.\n" +
			"--answers gives one like/skip per calibration song, in order.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			searcher := a.searcher()

			s, err := seedSession(ctx, searcher, session.New(), likes, dislikes)
			if err != nil {
				return err
			}

			s, err = s.BeginCalibration()
			if err != nil {
				return err
			}

			s, err = runQuiz(cmd, s, answers)
			if err != nil {
				return err
			}

			extractor := a.extractor()
			ingestor := ingest.NewIngestor(searcher, a.fetcher(), extractor, a.config.Ingest())

			var results []ingest.Result
			for _, labeled := range s.Labeled() {
				batch, err := ingestor.IngestTracks(ctx, []catalog.Track{labeled.Track}, labeled.Label)
				results = append(results, batch...)
				if err != nil {
					return err
				}
			}

			return a.finishIngest(cmd, extractor.Schema(), results)
		},
	}

	cmd.Flags().StringArrayVar(&likes, "like", nil, "search query for a song you like (repeatable)")
	cmd.Flags().StringArrayVar(&dislikes, "dislike", nil, "search query for a song you dislike (repeatable)")
	cmd.Flags().StringSliceVar(&answers, "answers", nil, "calibration answers, e.g. like,skip,like")
	return cmd
}

func seedSession(ctx context.Context, searcher catalog.Searcher, s session.Session, likes, dislikes []string) (session.Session, error) {
	for _, group := range []struct {
		queries []string
		liked   bool
	}{{likes, true}, {dislikes, false}} {
		for _, query := range group.queries {
			track, err := firstWithPreview(ctx, searcher, query)
			if err != nil {
				return s, err
			}
			if group.liked {
				s, err = s.AddLiked(track)
			} else {
				s, err = s.AddDisliked(track)
			}
			if err != nil {
				return s, err
			}
		}
	}
	return s, nil
}

func runQuiz(cmd *cobra.Command, s session.Session, answers []string) (session.Session, error) {
	for s.Step == session.StepCalibrationQuiz {
		track, _ := s.Current()
		question, total := s.Progress()
		if question > len(answers) {
			return s, fmt.Errorf("calibration needs %d answers, got %d", total, len(answers))
		}

		liked, err := parseAnswer(answers[question-1])
		if err != nil {
			return s, err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Calibration: Song %d of %d: %s by %s -> %s\n", question, total, track.Title, track.Artist, answers[question-1])
		if s, err = s.Answer(liked); err != nil {
			return s, err
		}
	}
	return s, nil
}

func parseAnswer(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "like", "yes", "y", "1":
		return true, nil
	case "skip", "dislike", "no", "n", "0":
		return false, nil
	}
	return false, fmt.Errorf("answer %q is not like or skip", raw)
}

func firstWithPreview(ctx context.Context, searcher catalog.Searcher, query string) (catalog.Track, error) {
	tracks, err := searcher.Search(ctx, query, 5)
	if err != nil {
		return catalog.Track{}, err
	}
	for _, t := range tracks {
		if t.HasPreview() {
			return t, nil
		}
	}
	return catalog.Track{}, fmt.Errorf("%w: no song with a preview matches %q", catalog.ErrNotFound, query)
}
