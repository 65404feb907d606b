package main

import (
	"fmt"

	"github.com/RyanBlaney/sonido-gusto/classifier"
	"github.com/RyanBlaney/sonido-gusto/features"
	"github.com/spf13/cobra"
)

func (a *app) trainCmd() *cobra.Command {
	var boosting bool

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the taste model on the labeled dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			schema := features.DefaultSchema()

			ds, err := a.loadDataset(ctx, schema)
			if err != nil {
				return err
			}

			var params classifier.Params = classifier.DefaultForestParams()
			if boosting {
				params = classifier.DefaultBoostingParams()
			}

			pair, err := classifier.TrainWith(ds, schema, params)
			if err != nil {
				return err
			}

			eval, err := classifier.Evaluate(pair, ds)
			if err != nil {
				return err
			}
			printEvaluation(cmd.OutOrStdout(), "Training", eval)

			return a.savePairTo(cmd, a.config.ModelsDir, pair)
		},
	}

	cmd.Flags().BoolVar(&boosting, "boosting", false, "train gradient boosting instead of the random forest")
	return cmd
}

func (a *app) savePairTo(cmd *cobra.Command, dir string, pair *classifier.Pair) error {
	if err := classifier.SaveDir(dir, pair); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s model %s to %s\n", pair.Model.Kind(), pair.ID, dir)

	store, err := a.store()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		return store.SaveModel(cmd.Context(), pair)
	}
	return nil
}
