package main

import (
	"fmt"

	"github.com/RyanBlaney/sonido-gusto/catalog"
	"github.com/RyanBlaney/sonido-gusto/dataset"
	"github.com/RyanBlaney/sonido-gusto/features"
	"github.com/RyanBlaney/sonido-gusto/ingest"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (a *app) ingestCmd() *cobra.Command {
	var (
		liked    []string
		disliked []string
		library  string
		label    int
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Build the labeled dataset from artists or a local folder",
		Long: "Searches each liked and disliked artist, downloads their top previews and\n" +
			"extracts features. Without flags the curated artist lists are used.\n" +
			"With --library every audio file in the folder is labeled with --label.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			extractor := a.extractor()

			var results []ingest.Result
			if library != "" {
				if label != dataset.Like && label != dataset.Dislike {
					return fmt.Errorf("--label must be 0 or 1, got %d", label)
				}

				lib := catalog.NewLocalLibrary(library)
				tracks, err := lib.List(ctx)
				if err != nil {
					return err
				}
				batch, err := ingest.NewIngestor(lib, a.fetcher(), extractor, a.config.Ingest()).IngestTracks(ctx, tracks, label)
				results = append(results, batch...)
				if err != nil {
					return err
				}
			} else {
				if len(liked) == 0 && len(disliked) == 0 {
					liked, disliked = ingest.DefaultLikedArtists, ingest.DefaultDislikedArtists
				}

				ingestor := ingest.NewIngestor(a.searcher(), a.fetcher(), extractor, a.config.Ingest())
				for _, group := range []struct {
					artists []string
					label   int
				}{{liked, dataset.Like}, {disliked, dataset.Dislike}} {
					batch, err := ingestor.IngestArtists(ctx, group.artists, group.label)
					results = append(results, batch...)
					if err != nil {
						return err
					}
				}
			}

			return a.finishIngest(cmd, extractor.Schema(), results)
		},
	}

	cmd.Flags().StringSliceVar(&liked, "liked", nil, "artists you like")
	cmd.Flags().StringSliceVar(&disliked, "disliked", nil, "artists you dislike")
	cmd.Flags().StringVar(&library, "library", "", "folder of audio files to ingest instead of searching")
	cmd.Flags().IntVar(&label, "label", dataset.Like, "label for --library tracks (1 like, 0 dislike)")
	return cmd
}

func (a *app) finishIngest(cmd *cobra.Command, schema *features.Schema, results []ingest.Result) error {
	summary := ingest.Fold(results)
	for _, failure := range summary.Failures {
		cmd.PrintErrf(" -- skipped %s %s: %v\n", failure.Track.Artist, failure.Track.Title, failure.Err)
	}

	if summary.Processed() == 0 {
		return fmt.Errorf("no tracks could be processed")
	}

	if err := a.saveRows(cmd.Context(), schema, summary.Dataset); err != nil {
		return err
	}

	dislikes, likes := summary.Dataset.Counts()
	fmt.Fprintf(cmd.OutOrStdout(), "Success! Saved %s songs (%d liked, %d disliked) to %s\n",
		humanize.Comma(int64(summary.Processed())), likes, dislikes, a.config.DataPath)
	return nil
}
