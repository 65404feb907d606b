package main

import (
	"fmt"
	"io"
	"math"

	"github.com/RyanBlaney/sonido-gusto/catalog"
	"github.com/RyanBlaney/sonido-gusto/classifier"
	"github.com/fatih/color"
)

var (
	matchColor = color.New(color.FgGreen, color.Bold)
	skipColor  = color.New(color.FgRed, color.Bold)
	titleColor = color.New(color.Bold)
	mutedColor = color.New(color.FgCyan)
)

const analysisFailedMessage = "could not analyze this audio"

// verdict renders the prediction headline; the percentage is always the
// like probability, whichever way the label went
func verdict(p classifier.Prediction) string {
	pct := math.Round(p.Confidence * 100)
	if p.Label == 1 {
		return matchColor.Sprintf("MATCH!! (%.0f%%)", pct)
	}
	return skipColor.Sprintf("SKIP!! (%.0f%%)", pct)
}

func verdictDetail(p classifier.Prediction) string {
	if p.Label == 1 {
		return "The model predicts you should like this song!"
	}
	return "The model predicts you should skip this song."
}

func tempoLine(tempo float64) string {
	return fmt.Sprintf("Tempo: %.0f BPM", tempo)
}

func beatsLine(times []float64) string {
	if len(times) == 0 {
		return "Beats: none"
	}
	return fmt.Sprintf("Beats: %d (first at %.2f s)", len(times), times[0])
}

func printTracks(w io.Writer, tracks []catalog.Track) {
	for i, t := range tracks {
		preview := ""
		if !t.HasPreview() {
			preview = " (no preview)"
		}
		fmt.Fprintf(w, "%2d. %s %s%s\n", i+1, titleColor.Sprint(t.Title), mutedColor.Sprint(t.Artist), preview)
	}
}

func printEvaluation(w io.Writer, label string, e classifier.Evaluation) {
	fmt.Fprintf(w, "%s accuracy: %.2f%%\n", label, e.Accuracy*100)
	fmt.Fprintf(w, "  liked:    %d correct, %d missed\n", e.TP, e.FN)
	fmt.Fprintf(w, "  disliked: %d correct, %d missed\n", e.TN, e.FP)
}
