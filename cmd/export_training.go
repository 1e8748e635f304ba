package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-nfl-spread/internal/matchup"
	"github.com/pable/go-nfl-spread/internal/report"
	"github.com/pable/go-nfl-spread/internal/storage"
	"github.com/pable/go-nfl-spread/pkg/logger"
)

var exportOut string

var exportTrainingCmd = &cobra.Command{
	Use:   "export-training",
	Short: "Export the training table of the latest running-average table as CSV",
	Long: `Pairs home and away rows of every game in the latest table and writes one
CSV row per game: identity, home_spread target and the model's feature
columns. Missing averages are written as NA.`,
	Args: cobra.NoArgs,
	RunE: runExportTraining,
}

func init() {
	exportTrainingCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: stdout)")
}

func runExportTraining(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	version, rows, err := db.LatestRunningAverages(ctx)
	if err != nil {
		return err
	}
	training, dropped := matchup.AssembleTrainingTable(rows)
	logger.Get().Info(ctx, "exporting training table",
		logger.String("table_version", version),
		logger.Int("rows", len(training)),
		logger.Int("incomplete_games", dropped))

	var w io.Writer = os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOut, err)
		}
		defer f.Close()
		w = f
	}
	if err := report.WriteTrainingCSV(w, training); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
