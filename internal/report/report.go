// Package report renders predictions, running averages and training history
// as terminal tables.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-nfl-spread/internal/ml"
	"github.com/pable/go-nfl-spread/internal/model"
	"github.com/pable/go-nfl-spread/internal/pipeline"
	"github.com/pable/go-nfl-spread/internal/storage"
)

var (
	cFavourite = color.New(color.FgGreen, color.Bold)
	cHeader    = color.New(color.FgCyan, color.Bold)
	cMuted     = color.New(color.Faint)
	cWarn      = color.New(color.FgYellow)
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// num formats v with prec decimals, or "—" when missing.
func num(v float64, prec int) string {
	if math.IsNaN(v) {
		return "—"
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func signed(v float64) string {
	if math.IsNaN(v) {
		return "—"
	}
	return fmt.Sprintf("%+.1f", v)
}

// PrintPrediction prints a one-line verdict for a single matchup.
func PrintPrediction(w io.Writer, p model.Prediction) {
	fav, other := p.Favourite(), p.AwayTeam
	if fav == p.AwayTeam {
		other = p.HomeTeam
	}
	fmt.Fprintf(w, "\n%s @ %s  (home %d wk %d, away %d wk %d)\n",
		p.AwayTeam, p.HomeTeam, p.HomeYear, p.HomeWeek, p.AwayYear, p.AwayWeek)
	fmt.Fprintf(w, "Predicted home spread: %s  ", signed(p.Spread))
	cFavourite.Fprintf(w, "%s by %.1f over %s\n", fav, math.Abs(p.Spread), other)
	cMuted.Fprintf(w, "model %s\n\n", p.ModelVersion)
}

// PrintPredictions prints one row per scored matchup. A positive spread
// favours the home team.
func PrintPredictions(w io.Writer, preds []model.Prediction) {
	table := newTable(w)
	table.Header("AWAY", "HOME", "AWAY_WK", "HOME_WK", "SPREAD", "FAVOURITE", "MARGIN")
	for _, p := range preds {
		table.Append(
			p.AwayTeam,
			p.HomeTeam,
			fmt.Sprintf("%d/%d", p.AwayYear, p.AwayWeek),
			fmt.Sprintf("%d/%d", p.HomeYear, p.HomeWeek),
			signed(p.Spread),
			p.Favourite(),
			num(math.Abs(p.Spread), 1),
		)
	}
	table.Render()
}

// PrintFailures lists matchups that could not be scored.
func PrintFailures(w io.Writer, failed []pipeline.Failure) {
	if len(failed) == 0 {
		return
	}
	cWarn.Fprintf(w, "\n%d matchup(s) skipped:\n", len(failed))
	for _, f := range failed {
		fmt.Fprintf(w, "  %s @ %s: %v\n", f.Request.AwayTeam, f.Request.HomeTeam, f.Err)
	}
}

// PrintMatchups lists matchups without scoring them.
func PrintMatchups(w io.Writer, reqs []model.MatchupRequest) {
	table := newTable(w)
	table.Header("AWAY", "HOME")
	for _, r := range reqs {
		table.Append(r.AwayTeam, r.HomeTeam)
	}
	table.Render()
}

// PrintDiagnostics summarises a training run.
func PrintDiagnostics(w io.Writer, p *ml.Predictor, tableVersion string) {
	d := p.Diagnostics
	cHeader.Fprintf(w, "\nPredictor %s\n", p.Version)
	cMuted.Fprintf(w, "run %s  table %s\n\n", p.RunID, tableVersion)

	table := newTable(w)
	table.Header("INPUT", "DROPPED", "TRAIN", "TEST", "MSE", "MAE", "RMSE", "R2")
	table.Append(
		strconv.Itoa(d.InputRows),
		strconv.Itoa(d.DroppedRows),
		strconv.Itoa(d.TrainRows),
		strconv.Itoa(d.TestRows),
		num(d.MSE, 2),
		num(d.MAE, 2),
		num(math.Sqrt(d.MSE), 2),
		num(d.R2, 3),
	)
	table.Render()
}

// PrintCoefficients lists the fitted weight of each feature on the
// standardised scale, plus the intercept.
func PrintCoefficients(w io.Writer, p *ml.Predictor) {
	table := newTable(w)
	table.Header("FEATURE", "COEF", "TRAIN_MEAN", "TRAIN_STD")
	for i, name := range p.Features {
		table.Append(name, num(p.Coeffs[i], 3), num(p.Scaler.Mean[i], 2), num(p.Scaler.Scale[i], 2))
	}
	table.Append("(intercept)", num(p.Intercept, 3), "", "")
	table.Render()
}

// PrintAverages prints a team's rows: the game result and the averages the
// model saw going into that game.
func PrintAverages(w io.Writer, team string, rows []model.RunningAverageRow) {
	cHeader.Fprintf(w, "\n%s running averages (entering each game)\n\n", team)
	table := newTable(w)
	table.Header(
		"YEAR", "WK", "OPP", "H/A", "PF", "PA",
		"PF_AVG", "PA_AVG", "RUSH_AVG", "PASS_AVG", "SACK_YDS_AVG", "DIFF_AVG", "EPA_AVG",
	)
	for _, r := range rows {
		ha := "A"
		if r.IsHome() {
			ha = "H"
		}
		table.Append(
			strconv.Itoa(r.Year),
			strconv.Itoa(r.Week),
			r.Opponent(),
			ha,
			num(r.Stats[model.StatPointsScored], 0),
			num(r.Stats[model.StatPointsAllowed], 0),
			num(r.Avg[model.StatPointsScored], 1),
			num(r.Avg[model.StatPointsAllowed], 1),
			num(r.Avg[model.StatRushing], 1),
			num(r.Avg[model.StatPassing], 1),
			num(r.Avg[model.StatSackYards], 1),
			signed(r.Avg[model.StatScoreDifferentialPost]),
			num(r.Avg[model.StatMeanEPA], 3),
		)
	}
	table.Render()
}

// PrintVersions lists stored tables, predictors and training runs.
func PrintVersions(w io.Writer, tables []storage.TableVersion, predictors []string, runs []storage.TrainingRun) {
	cHeader.Fprintln(w, "\nRunning-average tables")
	if len(tables) == 0 {
		cMuted.Fprintln(w, "  none, run 'nflspread train' or 'nflspread build-table'")
	} else {
		table := newTable(w)
		table.Header("VERSION", "CREATED", "ROWS")
		for _, v := range tables {
			table.Append(v.Version, v.CreatedAt, strconv.Itoa(v.RowCount))
		}
		table.Render()
	}

	cHeader.Fprintln(w, "\nPredictors")
	if len(predictors) == 0 {
		cMuted.Fprintln(w, "  none")
	}
	for i := len(predictors) - 1; i >= 0; i-- {
		fmt.Fprintf(w, "  %s\n", predictors[i])
	}

	cHeader.Fprintln(w, "\nTraining runs")
	if len(runs) == 0 {
		cMuted.Fprintln(w, "  none")
		return
	}
	table := newTable(w)
	table.Header("PREDICTOR", "TABLE", "TRAIN", "TEST", "MSE", "MAE", "R2", "RUN_ID")
	for _, r := range runs {
		table.Append(
			r.PredictorVersion,
			r.TableVersion,
			strconv.Itoa(r.TrainRows),
			strconv.Itoa(r.TestRows),
			num(r.MSE, 2),
			num(r.MAE, 2),
			num(r.R2, 3),
			r.RunID,
		)
	}
	table.Render()
}

// PrintQueryResult prints raw query output.
func PrintQueryResult(w io.Writer, cols []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}
	table := newTable(w)
	colsAny := make([]any, len(cols))
	for i, c := range cols {
		colsAny[i] = c
	}
	table.Header(colsAny...)
	for _, row := range rows {
		rowAny := make([]any, len(row))
		for i, v := range row {
			rowAny[i] = v
		}
		table.Append(rowAny...)
	}
	table.Render()
	fmt.Fprintf(w, "\n(%d rows)\n", len(rows))
}
