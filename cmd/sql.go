package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-nfl-spread/internal/report"
	"github.com/pable/go-nfl-spread/internal/storage"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the spread database",
	Long: `Run an arbitrary SQL query against the spread database and print results as a table.

Schema overview:
  table_versions(version, created_at, row_count)
  running_averages(version, seq, game_id, team, week, year, home_team, away_team,
    home_spread, <stat>, <stat>_avg ...)
  artifacts(kind, version, created_at, payload)
  training_runs(run_id, predictor_version, table_version, trained_at,
    input_rows, dropped_rows, train_rows, test_rows, mse, mae, r2)

Stats: rushing_yards, passing_yards, yards_gained, sack_yards, passing_yards_defense,
rushing_yards_defense, yards_gained_defense, sack_yards_defense,
score_differential_post, points_scored, points_allowed, mean_epa.
Averages use the short names (rushing_avg, passing_avg, ...). Missing values are NULL.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	report.PrintQueryResult(os.Stdout, cols, rows)
	return nil
}
