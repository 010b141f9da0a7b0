package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storyboard/internal/assets"
	"storyboard/internal/catalog"
	"storyboard/internal/config"
	"storyboard/internal/logging"
)

// newSweepCommand reconciles the upload directory against the catalog. Files
// on disk that no image row references are orphans left behind by interrupted
// deletes; the sweep removes them.
func newSweepCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove uploaded files no longer referenced by the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				assetStore, err := assets.New(cfg.Paths.UploadDir, logging.NewNop())
				if err != nil {
					return fmt.Errorf("open asset store: %w", err)
				}

				referenced, err := store.Filenames(cmd.Context())
				if err != nil {
					return fmt.Errorf("load referenced filenames: %w", err)
				}
				known := make(map[string]struct{}, len(referenced))
				for _, name := range referenced {
					known[name] = struct{}{}
				}

				stored, err := assetStore.List()
				if err != nil {
					return fmt.Errorf("list upload directory: %w", err)
				}

				out := cmd.OutOrStdout()

				orphans := make([]string, 0)
				onDisk := make(map[string]struct{}, len(stored))
				for _, name := range stored {
					onDisk[name] = struct{}{}
					if _, ok := known[name]; !ok {
						orphans = append(orphans, name)
					}
				}

				missing := 0
				for _, name := range referenced {
					if _, ok := onDisk[name]; !ok {
						missing++
						fmt.Fprintf(out, "Warning: catalog references missing file %s\n", name)
					}
				}

				for _, name := range orphans {
					if dryRun {
						fmt.Fprintf(out, "Would remove %s\n", name)
						continue
					}
					assetStore.Remove(name)
					fmt.Fprintf(out, "Removed %s\n", name)
				}

				if dryRun {
					fmt.Fprintf(out, "Found %d orphaned files (%d missing from disk)\n", len(orphans), missing)
				} else {
					fmt.Fprintf(out, "Removed %d orphaned files (%d missing from disk)\n", len(orphans), missing)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report orphaned files without deleting them")
	return cmd
}
