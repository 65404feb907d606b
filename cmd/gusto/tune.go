package main

import (
	"fmt"
	"io"

	"github.com/RyanBlaney/sonido-gusto/features"
	"github.com/RyanBlaney/sonido-gusto/tuning"
	"github.com/spf13/cobra"
)

func (a *app) tuneCmd() *cobra.Command {
	var (
		saveDir string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Grid-search random forest and gradient boosting on the dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			schema := features.DefaultSchema()

			ds, err := a.loadDataset(ctx, schema)
			if err != nil {
				return err
			}

			config := tuning.DefaultConfig()
			if workers > 0 {
				config.Workers = workers
			}

			report, err := tuning.NewTuner(config, schema).Search(ctx, ds, tuning.DefaultGrids())
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)

			if saveDir != "" {
				return a.savePairTo(cmd, saveDir, report.Winner)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&saveDir, "save-dir", "", "save the winning model pair to this directory")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent fits (default: number of CPUs)")
	return cmd
}

func printReport(w io.Writer, r *tuning.Report) {
	fmt.Fprintf(w, "Train rows: %d, held-out rows: %d\n", r.TrainRows, r.TestRows)
	for _, family := range []tuning.FamilyResult{r.Forest, r.Boosting} {
		fmt.Fprintf(w, "%s\n", titleColor.Sprint(family.Kind))
		fmt.Fprintf(w, "  best cv accuracy: %.2f%%\n", family.Best.MeanScore*100)
		fmt.Fprintf(w, "  best parameters:  %s\n", family.Best.Params)
		fmt.Fprintf(w, "  test accuracy:    %.2f%%\n", family.TestAccuracy*100)
	}
	fmt.Fprintf(w, "%s wins\n", matchColor.Sprint(r.WinnerKind))
}
