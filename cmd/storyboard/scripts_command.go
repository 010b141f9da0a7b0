package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"storyboard/internal/catalog"
	"storyboard/internal/config"
)

func newScriptsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scripts",
		Short: "List scripts with sentence and image counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return fmt.Errorf("load script stats: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(stats) == 0 {
					fmt.Fprintln(out, "No scripts yet")
					return nil
				}

				rows := make([][]string, 0, len(stats))
				for _, s := range stats {
					rows = append(rows, []string{
						s.ID,
						s.Name,
						strconv.Itoa(s.Sentences),
						strconv.Itoa(s.Images),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Name", "Sentences", "Images"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}
