package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) searchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog for songs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tracks, err := a.searcher().Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			if len(tracks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No songs found.")
				return nil
			}
			printTracks(cmd.OutOrStdout(), tracks)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 5, "maximum number of results")
	return cmd
}
