package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-nfl-spread/internal/artifact"
	"github.com/pable/go-nfl-spread/internal/report"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List stored tables, predictors and training runs",
	Args:  cobra.NoArgs,
	RunE:  runVersions,
}

func runVersions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	tables, err := e.db.ListTableVersions(ctx)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	predictors, err := e.store.Versions(ctx, artifact.KindPredictor)
	if err != nil {
		return fmt.Errorf("list predictors: %w", err)
	}
	runs, err := e.db.ListTrainingRuns(ctx)
	if err != nil {
		return fmt.Errorf("list training runs: %w", err)
	}
	report.PrintVersions(os.Stdout, tables, predictors, runs)
	return nil
}
