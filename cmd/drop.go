package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
)

var (
	dropForce     bool
	dropArtifacts bool
)

// dropCmd deletes the spread database and, optionally, the artifact directory.
var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the spread database",
	Long: `Permanently delete the SQLite database with every stored table, predictor
and training run. With --artifacts the artifact_dir is removed as well.
Run 'nflspread train' afterwards to rebuild.`,
	Args: cobra.NoArgs,
	RunE: runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
	dropCmd.Flags().BoolVar(&dropArtifacts, "artifacts", false, "also delete artifact_dir")
}

func dropTargets() []string {
	targets := []string{cfg.DBPath, cfg.DBPath + "-wal", cfg.DBPath + "-shm"}
	if dropArtifacts && cfg.ArtifactDir != "" {
		targets = append(targets, cfg.ArtifactDir)
	}
	return targets
}

func runDrop(cmd *cobra.Command, args []string) error {
	targets := dropTargets()
	if !dropForce {
		fmt.Fprintln(os.Stderr, "This will permanently delete:")
		for _, t := range targets {
			fmt.Fprintf(os.Stderr, "  %s\n", t)
		}
		fmt.Fprintln(os.Stderr, "Re-run with --force to confirm.")
		return nil
	}

	removed := 0
	for _, t := range targets {
		if _, err := os.Stat(t); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.RemoveAll(t); err != nil {
			return fmt.Errorf("remove %s: %w", t, err)
		}
		fmt.Fprintf(os.Stdout, "Deleted: %s\n", t)
		removed++
	}
	if removed == 0 {
		fmt.Fprintln(os.Stdout, "Nothing to drop.")
	}
	return nil
}
