package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RyanBlaney/sonido-gusto/catalog"
	"github.com/RyanBlaney/sonido-gusto/features"
	"github.com/RyanBlaney/sonido-gusto/fetch"
	"github.com/RyanBlaney/sonido-gusto/transcode"
	"github.com/spf13/cobra"
)

func (a *app) predictCmd() *cobra.Command {
	var pick int

	cmd := &cobra.Command{
		Use:   "predict <query>",
		Short: "Predict whether you will like a song",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := strings.Join(args, " ")

			extractor := a.extractor()
			pair, err := a.loadModel(ctx, extractor.Schema())
			if err != nil {
				return err
			}

			tracks, err := a.searcher().Search(ctx, query, 5)
			if err != nil {
				return err
			}
			if len(tracks) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No songs found with '%s'. Please try again!\n", query)
				return nil
			}
			printTracks(cmd.OutOrStdout(), tracks)

			track, err := choose(tracks, pick)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nListening to %s by %s...\n", track.Title, track.Artist)

			path, err := a.fetcher().Fetch(ctx, track)
			if err != nil {
				return err
			}

			record, err := extractor.ExtractFile(ctx, path)
			if err != nil {
				if errors.Is(err, transcode.ErrDecodeFailed) || errors.Is(err, features.ErrExtractionFailed) {
					fmt.Fprintln(cmd.OutOrStdout(), skipColor.Sprint(analysisFailedMessage))
					return nil
				}
				return err
			}

			prediction, err := pair.Predict(record)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), verdict(prediction))
			fmt.Fprintln(cmd.OutOrStdout(), verdictDetail(prediction))
			fmt.Fprintln(cmd.OutOrStdout(), mutedColor.Sprint(tempoLine(record["tempo"])))
			return nil
		},
	}

	cmd.Flags().IntVar(&pick, "pick", 0, "result to analyze (1-based; default: first with a preview)")
	return cmd
}

func choose(tracks []catalog.Track, pick int) (catalog.Track, error) {
	if pick > 0 {
		if pick > len(tracks) {
			return catalog.Track{}, fmt.Errorf("--pick %d is out of range (1-%d)", pick, len(tracks))
		}
		track := tracks[pick-1]
		if !track.HasPreview() {
			return catalog.Track{}, fmt.Errorf("%w: %s has no preview", fetch.ErrFetchFailed, track.Title)
		}
		return track, nil
	}

	for _, t := range tracks {
		if t.HasPreview() {
			return t, nil
		}
	}
	return catalog.Track{}, fmt.Errorf("%w: none of the results has a preview", fetch.ErrFetchFailed)
}
