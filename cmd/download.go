package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-nfl-spread/internal/nflverse"
	"github.com/pable/go-nfl-spread/pkg/logger"
)

var downloadCmd = &cobra.Command{
	Use:   "download [years...]",
	Short: "Download nflverse play-by-play files",
	Long: `Downloads play_by_play_<year>.csv.gz for each season into the data
directory. Without arguments every season from start_year to the current
year is fetched. Seasons not published yet are skipped with a warning.

Examples:
  nflspread download
  nflspread download 2022 2023`,
	RunE: runDownload,
}

func runDownload(cmd *cobra.Command, args []string) error {
	now := time.Now()
	years := nflverse.Seasons(cfg.StartYear, now)
	if len(args) > 0 {
		years = nil
		for _, a := range args {
			y, err := strconv.Atoi(a)
			if err != nil {
				return fmt.Errorf("invalid year %q: %w", a, err)
			}
			years = append(years, y)
		}
	}

	client := nflverse.NewClient(cfg.NflverseURL, cfg.HTTPTimeout(), logger.Named("nflverse"))
	paths, err := client.Download(cmd.Context(), years, cfg.DataDir)
	for _, p := range paths {
		fmt.Fprintln(os.Stdout, p)
	}
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	fmt.Fprintf(os.Stdout, "\n%d of %d seasons downloaded to %s\n", len(paths), len(years), cfg.DataDir)
	return nil
}
