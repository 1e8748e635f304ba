package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-nfl-spread/internal/model"
	"github.com/pable/go-nfl-spread/internal/report"
)

var (
	predictYear int
	predictWeek int
)

var predictCmd = &cobra.Command{
	Use:   "predict <home> <away>",
	Short: "Predict the spread of one matchup",
	Long: `Scores a home/away pairing with the latest predictor. Without --year and
--week each team's most recent running-average row is used.

Examples:
  nflspread predict KC DET
  nflspread predict KC DET --year 2023 --week 10`,
	Args: cobra.ExactArgs(2),
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().IntVar(&predictYear, "year", 0, "season of the rows to use (default: latest)")
	predictCmd.Flags().IntVar(&predictWeek, "week", 0, "week of the rows to use (default: latest)")
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, m, err := loadModel(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	req := model.MatchupRequest{HomeTeam: args[0], AwayTeam: args[1], Year: predictYear, Week: predictWeek}
	pred, err := e.pipe.Predict(ctx, m, req, "cli")
	if err != nil {
		return err
	}
	report.PrintPrediction(os.Stdout, pred)
	return nil
}
