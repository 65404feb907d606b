package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-gusto/algorithms/chroma"
	"github.com/RyanBlaney/sonido-gusto/algorithms/temporal"
	"github.com/RyanBlaney/sonido-gusto/catalog"
	"github.com/RyanBlaney/sonido-gusto/features"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (a *app) analyzeCmd() *cobra.Command {
	var predict bool

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Show tags, tempo, key and feature summary of a local audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			if strings.EqualFold(filepath.Ext(path), ".mp3") {
				if title, artist, err := catalog.ReadTags(path); err == nil && (title != "" || artist != "") {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", titleColor.Sprint(title), mutedColor.Sprint(artist))
				}
			}

			audio, err := a.decoder().Decode(ctx, path)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), skipColor.Sprint(analysisFailedMessage))
				return err
			}

			cfg := features.DefaultFeatureConfig()
			extractor := features.NewExtractor(cfg, nil)
			record, err := extractor.Extract(audio)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), skipColor.Sprint(analysisFailedMessage))
				return err
			}

			chromaSTFT := chroma.NewChromaSTFTDefault(cfg.SampleRate)
			chromagram, err := chromaSTFT.ComputeChroma(audio.PCM, cfg.WindowSize, cfg.HopSize)
			if err != nil {
				return err
			}
			key, mode := chromaSTFT.EstimateKey(chromagram)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Duration: %s (%s samples, %s)\n",
				audio.Duration.Round(10*time.Millisecond), humanize.Comma(int64(len(audio.PCM))), audio.Codec)
			fmt.Fprintln(out, tempoLine(record["tempo"]))
			if onset, err := temporal.NewOnsetDetection(cfg.SampleRate).Strength(audio.PCM, cfg.WindowSize, cfg.HopSize); err == nil {
				tracker := temporal.NewBeatTracker(cfg.SampleRate, cfg.HopSize)
				fmt.Fprintln(out, beatsLine(tracker.BeatTimes(tracker.Track(onset, record["tempo"]))))
			}
			fmt.Fprintf(out, "Key: %s %s\n", key, mode)
			fmt.Fprintf(out, "Spectral centroid: %.0f Hz\n", record["spectral_centroid_mean"])
			fmt.Fprintf(out, "RMS: %.4f\n", record["rms_mean"])

			if !predict {
				return nil
			}

			pair, err := a.loadModel(ctx, extractor.Schema())
			if err != nil {
				return err
			}
			prediction, err := pair.Predict(record)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, verdict(prediction))
			return nil
		},
	}

	cmd.Flags().BoolVar(&predict, "predict", false, "also run the trained model on the file")
	return cmd
}
