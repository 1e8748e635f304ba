// Package matchup pairs home and away running-average rows into model inputs.
package matchup

import (
	"sort"

	"github.com/pable/go-nfl-spread/internal/model"
	"github.com/pable/go-nfl-spread/internal/rolling"
)

// sides collects the first home and first away row seen for a game.
type sides struct {
	home, away *model.RunningAverageRow
}

// AssembleTrainingTable builds one TrainingRow per game that has both a home
// and an away row. Games missing a side are left out; the second return value
// counts them. Identifying columns come from the home row. Output is ordered
// by (year, week, game_id).
func AssembleTrainingTable(rows []model.RunningAverageRow) ([]model.TrainingRow, int) {
	games := make(map[string]*sides)
	var order []string
	for i := range rows {
		r := &rows[i]
		s, ok := games[r.GameID]
		if !ok {
			s = &sides{}
			games[r.GameID] = s
			order = append(order, r.GameID)
		}
		if r.IsHome() {
			if s.home == nil {
				s.home = r
			}
		} else if s.away == nil {
			s.away = r
		}
	}

	out := make([]model.TrainingRow, 0, len(order))
	dropped := 0
	for _, id := range order {
		s := games[id]
		if s.home == nil || s.away == nil {
			dropped++
			continue
		}
		out = append(out, model.TrainingRow{
			GameID:     id,
			Week:       s.home.Week,
			Year:       s.home.Year,
			HomeTeam:   s.home.HomeTeam,
			AwayTeam:   s.home.AwayTeam,
			HomeSpread: s.home.HomeSpread,
			Pairing:    model.Pairing{Home: s.home.Avg, Away: s.away.Avg},
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Week != b.Week {
			return a.Week < b.Week
		}
		return a.GameID < b.GameID
	})
	return out, dropped
}

// AssembleMatchup builds the inference vector for req. With Year and Week
// both set, each side must have a row at exactly that point. With only Year
// set, each side uses its latest week of that season. With neither, each side
// uses its own latest (year, week) in the table. A side without a matching
// row yields a *model.MissingDataError; no vector is returned.
func AssembleMatchup(rows []model.RunningAverageRow, req model.MatchupRequest) (model.Matchup, error) {
	home, err := resolve(rows, req.HomeTeam, req.Year, req.Week)
	if err != nil {
		return model.Matchup{}, err
	}
	away, err := resolve(rows, req.AwayTeam, req.Year, req.Week)
	if err != nil {
		return model.Matchup{}, err
	}
	return model.Matchup{
		HomeTeam: req.HomeTeam,
		AwayTeam: req.AwayTeam,
		HomeYear: home.Year,
		HomeWeek: home.Week,
		AwayYear: away.Year,
		AwayWeek: away.Week,
		Pairing:  model.Pairing{Home: home.Avg, Away: away.Avg},
	}, nil
}

// resolve finds team's row. A week given without a season refers to the
// team's latest season.
func resolve(rows []model.RunningAverageRow, team string, year, week int) (*model.RunningAverageRow, error) {
	if year == 0 && week != 0 {
		y, _, ok := rolling.Latest(rows, team, 0)
		if !ok {
			return nil, &model.MissingDataError{Team: team, Week: week}
		}
		year = y
	}
	if week == 0 {
		y, w, ok := rolling.Latest(rows, team, year)
		if !ok {
			return nil, &model.MissingDataError{Team: team, Year: year}
		}
		year, week = y, w
	}
	for i := range rows {
		r := &rows[i]
		if r.Team == team && r.Year == year && r.Week == week {
			return r, nil
		}
	}
	return nil, &model.MissingDataError{Team: team, Year: year, Week: week}
}
