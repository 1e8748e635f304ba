package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-nfl-spread/internal/nflverse"
	"github.com/pable/go-nfl-spread/internal/report"
)

var (
	trainYears []int
	trainSeed  int64
	trainCoefs bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Build the running-average table and train the spread model",
	Long: `Loads every downloaded play-by-play season, builds and stores a new
running-average table, fits the regression on it and stores the predictor
together with a training-run record. Both are versioned by timestamp and
never overwrite earlier versions.`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

var buildTableCmd = &cobra.Command{
	Use:   "build-table",
	Short: "Build and store the running-average table only",
	Args:  cobra.NoArgs,
	RunE:  runBuildTable,
}

func init() {
	trainCmd.Flags().IntSliceVar(&trainYears, "years", nil, "only load these seasons (default: all files in data dir)")
	trainCmd.Flags().Int64Var(&trainSeed, "seed", 0, "train/test split seed (default: config seed)")
	trainCmd.Flags().BoolVar(&trainCoefs, "coefficients", false, "also print the fitted coefficients")
	buildTableCmd.Flags().IntSliceVar(&trainYears, "years", nil, "only load these seasons (default: all files in data dir)")
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	plays, err := nflverse.LoadDir(cfg.DataDir, trainYears)
	if err != nil {
		return err
	}
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	opts := trainOptions()
	if cmd.Flags().Changed("seed") {
		opts.Seed = trainSeed
	}
	res, err := e.pipe.Train(ctx, plays, opts)
	if err != nil {
		return err
	}
	report.PrintDiagnostics(os.Stdout, res.Predictor, res.TableVersion)
	if trainCoefs {
		report.PrintCoefficients(os.Stdout, res.Predictor)
	}
	return nil
}

func runBuildTable(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	plays, err := nflverse.LoadDir(cfg.DataDir, trainYears)
	if err != nil {
		return err
	}
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	rows, err := e.pipe.BuildTable(ctx, plays)
	if err != nil {
		return err
	}
	version, err := e.pipe.SaveTable(ctx, rows)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Stored running-average table %s (%d rows from %d plays)\n", version, len(rows), len(plays))
	return nil
}
