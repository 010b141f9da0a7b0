package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"storyboard/internal/catalog"
	"storyboard/internal/config"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show catalog database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return fmt.Errorf("check catalog health: %w", err)
				}

				rows := [][]string{
					{"Database", health.DBPath},
					{"Exists", yesNo(health.DatabaseExists)},
					{"Readable", yesNo(health.DatabaseReadable)},
					{"Integrity", yesNo(health.IntegrityCheck)},
					{"Scripts", strconv.Itoa(health.Scripts)},
					{"Sentences", strconv.Itoa(health.Sentences)},
					{"Images", strconv.Itoa(health.Images)},
				}
				if len(health.MissingTables) > 0 {
					rows = append(rows, []string{"Missing tables", strings.Join(health.MissingTables, ", ")})
				}
				if health.Error != "" {
					rows = append(rows, []string{"Error", health.Error})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(
					[]string{"Field", "Value"},
					rows,
					[]columnAlignment{alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}
