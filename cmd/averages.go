package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-nfl-spread/internal/model"
	"github.com/pable/go-nfl-spread/internal/report"
	"github.com/pable/go-nfl-spread/internal/rolling"
	"github.com/pable/go-nfl-spread/internal/storage"
)

var averagesYear int

var averagesCmd = &cobra.Command{
	Use:   "averages <team>",
	Short: "Show a team's running averages from the latest table",
	Args:  cobra.ExactArgs(1),
	RunE:  runAverages,
}

func init() {
	averagesCmd.Flags().IntVar(&averagesYear, "year", 0, "only show this season (default: all)")
}

func runAverages(cmd *cobra.Command, args []string) error {
	team := model.NormalizeTeam(args[0])
	if !model.IsValidTeam(team) {
		return fmt.Errorf("%w: unknown team %q", model.ErrInvalidMatchup, args[0])
	}
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	version, rows, err := db.LatestRunningAverages(cmd.Context())
	if err != nil {
		return err
	}
	rows = rolling.ForTeam(rows, team, averagesYear)
	if len(rows) == 0 {
		return &model.MissingDataError{Team: team, Year: averagesYear}
	}
	fmt.Fprintf(os.Stdout, "Table %s\n", version)
	report.PrintAverages(os.Stdout, team, rows)
	return nil
}
