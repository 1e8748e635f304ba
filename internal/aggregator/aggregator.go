// Package aggregator reduces a play-by-play log to one row per (game, team).
package aggregator

import (
	"fmt"
	"sort"

	"github.com/pable/go-nfl-spread/internal/model"
)

// yardage holds the four per-play yardage sums kept for both offense and defense.
type yardage struct {
	passing, rushing, gained, sack float64
}

// add sums a play's yardage, skipping missing values the way a column sum does.
func (y *yardage) add(p model.PlayRecord) {
	y.passing += orZero(p.PassingYards)
	y.rushing += orZero(p.RushingYards)
	y.gained += orZero(p.YardsGained)
	y.sack += orZero(sackYards(p))
}

// offense accumulates one team's own plays in a game.
type offense struct {
	yardage
	homeScore, awayScore float64
	lastDiff             float64
	epaSum               float64
	epaN                 int
	week, year           int
}

// game is the set of plays sharing a game id, in play order.
type game struct {
	id       string
	homeTeam string
	awayTeam string
	plays    []model.PlayRecord
}

// sackYards is yards_gained on a sack play and missing on every other play.
func sackYards(p model.PlayRecord) float64 {
	if p.Sack {
		return p.YardsGained
	}
	return model.Missing()
}

func orZero(v float64) float64 {
	if model.IsMissing(v) {
		return 0
	}
	return v
}

// Aggregate computes one GameTeamStat per (game_id, team) from the play log.
// Offensive sums group plays by the team in possession, defensive sums group
// the same plays by the defending team. A game that does not resolve to
// exactly its home and away team on both sides is an integrity fault.
// The result is ordered by (year, week, game_id, team).
func Aggregate(plays []model.PlayRecord) ([]model.GameTeamStat, error) {
	// ---- Pass 1: bucket plays by game, checking the per-game labels agree. ----

	games := make(map[string]*game)
	var order []string
	for _, p := range plays {
		if p.GameID == "" {
			return nil, &model.IntegrityError{Field: "game_id", Reason: "play without game id"}
		}
		if p.Week <= 0 || p.Year <= 0 {
			return nil, &model.IntegrityError{GameID: p.GameID, Field: "week", Reason: fmt.Sprintf("invalid week/year %d/%d", p.Week, p.Year)}
		}
		g, ok := games[p.GameID]
		if !ok {
			if p.HomeTeam == "" || p.AwayTeam == "" || p.HomeTeam == p.AwayTeam {
				return nil, &model.IntegrityError{GameID: p.GameID, Field: "home_team", Reason: fmt.Sprintf("invalid home/away %q/%q", p.HomeTeam, p.AwayTeam)}
			}
			g = &game{id: p.GameID, homeTeam: p.HomeTeam, awayTeam: p.AwayTeam}
			games[p.GameID] = g
			order = append(order, p.GameID)
		}
		if p.HomeTeam != g.homeTeam || p.AwayTeam != g.awayTeam {
			return nil, &model.IntegrityError{GameID: p.GameID, Field: "home_team",
				Reason: fmt.Sprintf("home/away %s/%s disagrees with %s/%s", p.HomeTeam, p.AwayTeam, g.homeTeam, g.awayTeam)}
		}
		g.plays = append(g.plays, p)
	}

	// ---- Pass 2: per game, sum offense by pos_team and defense by def_team. ----

	var out []model.GameTeamStat
	for _, id := range order {
		rows, err := aggregateGame(games[id])
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Week != b.Week {
			return a.Week < b.Week
		}
		if a.GameID != b.GameID {
			return a.GameID < b.GameID
		}
		return a.Team < b.Team
	})
	return out, nil
}

func aggregateGame(g *game) ([]model.GameTeamStat, error) {
	sort.SliceStable(g.plays, func(i, j int) bool {
		return g.plays[i].PlayID < g.plays[j].PlayID
	})

	off := make(map[string]*offense)
	def := make(map[string]*yardage)
	for _, p := range g.plays {
		if p.PosTeam != "" {
			o, ok := off[p.PosTeam]
			if !ok {
				o = &offense{
					homeScore: model.Missing(),
					awayScore: model.Missing(),
					lastDiff:  model.Missing(),
				}
				off[p.PosTeam] = o
			}
			o.add(p)
			// first non-missing score, last non-missing differential
			if model.IsMissing(o.homeScore) {
				o.homeScore = p.HomeScore
			}
			if model.IsMissing(o.awayScore) {
				o.awayScore = p.AwayScore
			}
			if !model.IsMissing(p.ScoreDifferentialPost) {
				o.lastDiff = p.ScoreDifferentialPost
			}
			if !model.IsMissing(p.EPA) {
				o.epaSum += p.EPA
				o.epaN++
			}
			o.week, o.year = p.Week, p.Year
		}
		if p.DefTeam != "" {
			d, ok := def[p.DefTeam]
			if !ok {
				d = &yardage{}
				def[p.DefTeam] = d
			}
			d.add(p)
		}
	}

	if err := checkParticipants(g, off, def); err != nil {
		return nil, err
	}

	rows := make([]model.GameTeamStat, 0, 2)
	for _, team := range []string{g.homeTeam, g.awayTeam} {
		o, d := off[team], def[team]
		row := model.GameTeamStat{
			GameID:   g.id,
			Team:     team,
			Week:     o.week,
			Year:     o.year,
			HomeTeam: g.homeTeam,
			AwayTeam: g.awayTeam,
		}
		isHome := row.IsHome()

		row.Stats[model.StatRushing] = o.rushing
		row.Stats[model.StatPassing] = o.passing
		row.Stats[model.StatYardsGained] = o.gained
		row.Stats[model.StatSackYards] = o.sack
		row.Stats[model.StatPassingDefense] = d.passing
		row.Stats[model.StatRushingDefense] = d.rushing
		row.Stats[model.StatYardsGainedDefense] = d.gained
		row.Stats[model.StatSackYardsDefense] = d.sack
		row.Stats[model.StatScoreDifferentialPost] = o.lastDiff
		row.Stats[model.StatPointsScored] = pick(isHome, o.homeScore, o.awayScore)
		row.Stats[model.StatPointsAllowed] = pick(isHome, o.awayScore, o.homeScore)
		row.Stats[model.StatMeanEPA] = model.Missing()
		if o.epaN > 0 {
			row.Stats[model.StatMeanEPA] = o.epaSum / float64(o.epaN)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// checkParticipants requires both the offense and the defense grouping to
// contain exactly the game's home and away team.
func checkParticipants(g *game, off map[string]*offense, def map[string]*yardage) error {
	if len(off) != 2 {
		return &model.IntegrityError{GameID: g.id, Field: "posteam",
			Reason: fmt.Sprintf("expected 2 teams with possession, got %d", len(off))}
	}
	if len(def) != 2 {
		return &model.IntegrityError{GameID: g.id, Field: "defteam",
			Reason: fmt.Sprintf("expected 2 defending teams, got %d", len(def))}
	}
	for _, team := range []string{g.homeTeam, g.awayTeam} {
		if _, ok := off[team]; !ok {
			return &model.IntegrityError{GameID: g.id, Team: team, Field: "posteam", Reason: "participant has no offensive plays"}
		}
		if _, ok := def[team]; !ok {
			return &model.IntegrityError{GameID: g.id, Team: team, Field: "defteam", Reason: "participant has no defensive plays"}
		}
	}
	return nil
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}
