package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-nfl-spread/internal/espn"
	"github.com/pable/go-nfl-spread/internal/model"
	"github.com/pable/go-nfl-spread/internal/report"
	"github.com/pable/go-nfl-spread/pkg/logger"
)

var (
	upcomingFrom  string
	upcomingSaved bool
	upcomingSave  bool
	upcomingOut   string
	upcomingOnly  bool
)

var upcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "Fetch this week's matchups and predict each",
	Long: `Reads the current week's home/away pairings from ESPN (or from a JSON
file, or the last saved list) and predicts every one of them. Matchups that
cannot be scored are listed separately.

Examples:
  nflspread upcoming
  nflspread upcoming --save --out week.json
  nflspread upcoming --from week.json`,
	Args: cobra.NoArgs,
	RunE: runUpcoming,
}

func init() {
	upcomingCmd.Flags().StringVar(&upcomingFrom, "from", "", "read matchups from this JSON file instead of ESPN")
	upcomingCmd.Flags().BoolVar(&upcomingSaved, "saved", false, "use the latest saved matchup list")
	upcomingCmd.Flags().BoolVar(&upcomingSave, "save", false, "store the fetched list as a new matchup artifact")
	upcomingCmd.Flags().StringVar(&upcomingOut, "out", "", "also write the fetched list to this JSON file")
	upcomingCmd.Flags().BoolVar(&upcomingOnly, "list-only", false, "print the matchups without predicting")
	upcomingCmd.MarkFlagsMutuallyExclusive("from", "saved")
}

func runUpcoming(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	var reqs []model.MatchupRequest
	switch {
	case upcomingFrom != "":
		f, err := os.Open(upcomingFrom)
		if err != nil {
			return fmt.Errorf("open matchups: %w", err)
		}
		reqs, err = espn.LoadMatchups(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", upcomingFrom, err)
		}
	case upcomingSaved:
		version, saved, err := e.pipe.LatestMatchups(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Matchups saved %s\n", version)
		reqs = saved
	default:
		client := espn.NewClient(cfg.ESPNURL, cfg.HTTPTimeout(), logger.Named("espn"))
		reqs, err = client.UpcomingMatchups(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("fetch upcoming matchups: %w", err)
		}
	}

	if len(reqs) == 0 {
		fmt.Fprintln(os.Stdout, "No scoreable matchups this week.")
		return nil
	}
	if upcomingSave {
		if _, err := e.pipe.SaveMatchups(ctx, reqs); err != nil {
			return err
		}
	}
	if upcomingOut != "" {
		if err := writeMatchupFile(upcomingOut, reqs); err != nil {
			return err
		}
	}
	if upcomingOnly {
		report.PrintMatchups(os.Stdout, reqs)
		return nil
	}

	m, err := e.pipe.Load(ctx)
	if err != nil {
		return err
	}
	preds, failed := e.pipe.PredictAll(ctx, m, reqs, "upcoming")
	report.PrintPredictions(os.Stdout, preds)
	report.PrintFailures(os.Stdout, failed)
	return nil
}

func writeMatchupFile(path string, reqs []model.MatchupRequest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := espn.SaveMatchups(f, reqs); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
