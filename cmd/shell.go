package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-nfl-spread/internal/artifact"
	"github.com/pable/go-nfl-spread/internal/model"
	"github.com/pable/go-nfl-spread/internal/pipeline"
	"github.com/pable/go-nfl-spread/internal/report"
	"github.com/pable/go-nfl-spread/internal/rolling"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive prediction session",
	Long:  "Load the latest table and predictor once and score matchups interactively. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(cmd *cobra.Command, _ []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	s := &shell{pipe: e.pipe, out: os.Stdout, errOut: os.Stderr}
	if err := s.reload(cmd.Context()); err != nil {
		cWarn.Fprintf(os.Stderr, "no model loaded: %v\n", err)
	}
	cGreeting.Println("nflspread shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()
	return s.run(cmd.Context(), os.Stdin, true)
}

// shell is one interactive session over a loaded model.
type shell struct {
	pipe   *pipeline.Pipeline
	model  *pipeline.Model
	out    io.Writer
	errOut io.Writer
}

func (s *shell) reload(ctx context.Context) error {
	m, err := s.pipe.Load(ctx)
	if err != nil {
		return err
	}
	s.model = m
	fmt.Fprintf(s.out, "table %s, predictor %s\n", m.TableVersion, m.Predictor.Version)
	return nil
}

func (s *shell) run(ctx context.Context, in io.Reader, prompt bool) error {
	scanner := bufio.NewScanner(in)
	for {
		if prompt {
			cPrompt.Fprint(s.out, "nflspread")
			cMuted.Fprint(s.out, "> ")
		}
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		cmd, args := tokens[0], tokens[1:]

		switch cmd {
		case "exit", "quit":
			return nil
		case "help":
			s.help()
		case "teams":
			fmt.Fprintln(s.out, strings.Join(model.Teams, " "))
		case "reload":
			if err := s.reload(ctx); err != nil {
				s.fail(err)
			}
		case "predict":
			if len(args) != 2 && len(args) != 4 {
				cError.Fprintln(s.errOut, "usage: predict <home> <away> [<year> <week>]")
				continue
			}
			s.predict(ctx, args)
		case "averages":
			if len(args) == 0 {
				cError.Fprintln(s.errOut, "usage: averages <team> [<year>]")
				continue
			}
			s.averages(args)
		case "matchups":
			s.matchups(ctx)
		default:
			cWarn.Fprintf(s.errOut, "unknown command %q, type 'help'\n", cmd)
		}
	}
	return scanner.Err()
}

func (s *shell) help() {
	fmt.Fprintln(s.out)
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"predict <home> <away>", "predict with each team's latest row"},
		{"predict <home> <away> <year> <week>", "predict with the rows of one week"},
		{"averages <team> [<year>]", "show a team's running averages"},
		{"matchups", "predict the latest saved matchup list"},
		{"teams", "list valid team codes"},
		{"reload", "load the newest table and predictor"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Fprint(s.out, "  ")
		cCmd.Fprintf(s.out, "%-38s", r.cmd)
		fmt.Fprintln(s.out, r.desc)
	}
	fmt.Fprintln(s.out)
}

func (s *shell) fail(err error) {
	cError.Fprintf(s.errOut, "error: %v\n", err)
}

func (s *shell) ready() bool {
	if s.model == nil {
		s.fail(fmt.Errorf("no model loaded, run 'nflspread train' then 'reload'"))
		return false
	}
	return true
}

func (s *shell) predict(ctx context.Context, args []string) {
	if !s.ready() {
		return
	}
	req := model.MatchupRequest{HomeTeam: args[0], AwayTeam: args[1]}
	if len(args) == 4 {
		var err1, err2 error
		req.Year, err1 = strconv.Atoi(args[2])
		req.Week, err2 = strconv.Atoi(args[3])
		if err1 != nil || err2 != nil {
			s.fail(fmt.Errorf("year and week must be numbers"))
			return
		}
	}
	pred, err := s.pipe.Predict(ctx, s.model, req, "shell")
	if err != nil {
		s.fail(err)
		return
	}
	report.PrintPrediction(s.out, pred)
}

func (s *shell) averages(args []string) {
	if !s.ready() {
		return
	}
	team := model.NormalizeTeam(args[0])
	year := 0
	if len(args) > 1 {
		y, err := strconv.Atoi(args[1])
		if err != nil {
			s.fail(fmt.Errorf("invalid year %q", args[1]))
			return
		}
		year = y
	}
	rows := rolling.ForTeam(s.model.Table, team, year)
	if len(rows) == 0 {
		s.fail(&model.MissingDataError{Team: team, Year: year})
		return
	}
	report.PrintAverages(s.out, team, rows)
}

func (s *shell) matchups(ctx context.Context) {
	if !s.ready() {
		return
	}
	version, reqs, err := s.pipe.LatestMatchups(ctx)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			cMuted.Fprintln(s.out, "no saved matchups, run 'nflspread upcoming --save'")
			return
		}
		s.fail(err)
		return
	}
	cMuted.Fprintf(s.out, "matchups saved %s\n", version)
	preds, failed := s.pipe.PredictAll(ctx, s.model, reqs, "shell")
	report.PrintPredictions(s.out, preds)
	report.PrintFailures(s.out, failed)
}
