// Package rolling computes each team's per-season running averages, where the
// value attached to a game only reflects the games played before it.
package rolling

import (
	"fmt"

	"github.com/pable/go-nfl-spread/internal/model"
)

type seasonKey struct {
	team string
	year int
}

// accumulator is the running sum and count of present values per stat for
// one (team, year).
type accumulator struct {
	sum      [model.NumStats]float64
	count    [model.NumStats]int
	lastWeek int
}

// mean returns the current running means; stats without any value are missing.
func (a *accumulator) mean() [model.NumStats]float64 {
	var out [model.NumStats]float64
	for i := range out {
		if a.count[i] == 0 {
			out[i] = model.Missing()
			continue
		}
		out[i] = a.sum[i] / float64(a.count[i])
	}
	return out
}

func (a *accumulator) add(stats [model.NumStats]float64) {
	for i, v := range stats {
		if model.IsMissing(v) {
			continue
		}
		a.sum[i] += v
		a.count[i]++
	}
}

// ComputeRunningAverages returns one RunningAverageRow per input row, in
// input order. Rows of the same (team, year) must appear in strictly
// increasing week order; anything else is an integrity fault.
//
// The average attached to a row is emitted before that row's own values are
// folded in, so a game never contributes to its own features. Accumulators
// start empty for every (team, year).
func ComputeRunningAverages(stats []model.GameTeamStat) ([]model.RunningAverageRow, error) {
	accs := make(map[seasonKey]*accumulator)
	out := make([]model.RunningAverageRow, 0, len(stats))

	for _, s := range stats {
		key := seasonKey{team: s.Team, year: s.Year}
		acc, ok := accs[key]
		if !ok {
			acc = &accumulator{}
			accs[key] = acc
		} else if s.Week <= acc.lastWeek {
			return nil, &model.IntegrityError{
				GameID: s.GameID, Team: s.Team, Year: s.Year, Week: s.Week, Field: "week",
				Reason: fmt.Sprintf("week %d does not follow week %d", s.Week, acc.lastWeek),
			}
		}

		out = append(out, model.RunningAverageRow{
			GameTeamStat: s,
			Avg:          acc.mean(),
			HomeSpread:   model.HomeSpread(s),
		})
		acc.add(s.Stats)
		acc.lastWeek = s.Week
	}
	return out, nil
}

// Latest returns the most recent (year, week) present for team, and false if
// the team has no rows. When year is non-zero only that season is considered.
func Latest(rows []model.RunningAverageRow, team string, year int) (int, int, bool) {
	var bestYear, bestWeek int
	found := false
	for _, r := range rows {
		if r.Team != team || (year != 0 && r.Year != year) {
			continue
		}
		if !found || r.Year > bestYear || (r.Year == bestYear && r.Week > bestWeek) {
			bestYear, bestWeek = r.Year, r.Week
			found = true
		}
	}
	return bestYear, bestWeek, found
}

// ForTeam returns team's rows, optionally limited to one season, in table order.
func ForTeam(rows []model.RunningAverageRow, team string, year int) []model.RunningAverageRow {
	var out []model.RunningAverageRow
	for _, r := range rows {
		if r.Team == team && (year == 0 || r.Year == year) {
			out = append(out, r)
		}
	}
	return out
}
