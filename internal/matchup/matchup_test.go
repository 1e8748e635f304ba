package matchup

import (
	"errors"
	"testing"

	"github.com/pable/go-nfl-spread/internal/model"
)

// avgRow builds a running-average row whose averages are all v.
func avgRow(gameID, team, homeTeam, awayTeam string, year, week int, v, spread float64) model.RunningAverageRow {
	r := model.RunningAverageRow{
		GameTeamStat: model.GameTeamStat{
			GameID:   gameID,
			Team:     team,
			Year:     year,
			Week:     week,
			HomeTeam: homeTeam,
			AwayTeam: awayTeam,
		},
		HomeSpread: spread,
	}
	for i := range r.Avg {
		r.Avg[i] = v
	}
	return r
}

// game returns both rows of a completed game.
func game(id, homeTeam, awayTeam string, year, week int, homeAvg, awayAvg, spread float64) []model.RunningAverageRow {
	return []model.RunningAverageRow{
		avgRow(id, awayTeam, homeTeam, awayTeam, year, week, awayAvg, spread),
		avgRow(id, homeTeam, homeTeam, awayTeam, year, week, homeAvg, spread),
	}
}

func TestTrainingTableCardinality(t *testing.T) {
	var rows []model.RunningAverageRow
	rows = append(rows, game("g3", "KC", "SF", 2023, 3, 1, 2, 7)...)
	rows = append(rows, game("g1", "DET", "GB", 2023, 1, 3, 4, -3)...)
	rows = append(rows, game("g2", "BUF", "MIA", 2023, 2, 5, 6, 10)...)

	table, dropped := AssembleTrainingTable(rows)
	if len(table) != 3 {
		t.Fatalf("expected 3 training rows, got %d", len(table))
	}
	if dropped != 0 {
		t.Errorf("expected 0 dropped, got %d", dropped)
	}
	if table[0].GameID != "g1" || table[1].GameID != "g2" || table[2].GameID != "g3" {
		t.Errorf("expected rows ordered by week, got %s %s %s", table[0].GameID, table[1].GameID, table[2].GameID)
	}
	for _, r := range table {
		if len(r.Columns()) != 24 {
			t.Errorf("game %s: expected 24 average columns, got %d", r.GameID, len(r.Columns()))
		}
		if len(r.Features()) != 14 {
			t.Errorf("game %s: expected 14 features, got %d", r.GameID, len(r.Features()))
		}
	}

	kc := table[2]
	if kc.HomeTeam != "KC" || kc.AwayTeam != "SF" || kc.HomeSpread != 7 || kc.Week != 3 || kc.Year != 2023 {
		t.Errorf("unexpected identifying columns: %+v", kc)
	}
	if kc.Home[model.StatRushing] != 1 || kc.Away[model.StatRushing] != 2 {
		t.Errorf("home/away averages swapped: home %v away %v", kc.Home[model.StatRushing], kc.Away[model.StatRushing])
	}
}

func TestIncompletePairDropped(t *testing.T) {
	rows := game("g1", "KC", "SF", 2023, 2, 1, 2, 7)
	rows = append(rows, avgRow("g2", "DET", "DET", "GB", 2023, 2, 9, 3))

	table, dropped := AssembleTrainingTable(rows)
	if len(table) != 1 || table[0].GameID != "g1" {
		t.Fatalf("expected only g1, got %+v", table)
	}
	if dropped != 1 {
		t.Errorf("expected 1 dropped game, got %d", dropped)
	}
}

func TestDuplicateSideKeepsFirst(t *testing.T) {
	rows := game("g1", "KC", "SF", 2023, 2, 1, 2, 7)
	rows = append(rows, avgRow("g1", "KC", "KC", "SF", 2023, 2, 99, 7))

	table, _ := AssembleTrainingTable(rows)
	if len(table) != 1 {
		t.Fatalf("expected 1 row, got %d", len(table))
	}
	if table[0].Home[model.StatPassing] != 1 {
		t.Errorf("expected first home row to win, got %v", table[0].Home[model.StatPassing])
	}
}

func TestMissingWeekRejection(t *testing.T) {
	_, err := AssembleMatchup(nil, model.MatchupRequest{HomeTeam: "KC", AwayTeam: "SF"})
	if !errors.Is(err, model.ErrMissingData) {
		t.Fatalf("expected missing-data fault on empty table, got %v", err)
	}

	rows := game("g1", "KC", "SF", 2023, 2, 1, 2, 7)
	_, err = AssembleMatchup(rows, model.MatchupRequest{HomeTeam: "KC", AwayTeam: "SF", Year: 2023, Week: 5})
	var me *model.MissingDataError
	if !errors.As(err, &me) {
		t.Fatalf("expected MissingDataError, got %v", err)
	}
	if me.Team != "KC" || me.Week != 5 || me.Year != 2023 {
		t.Errorf("fault should name the request, got %+v", me)
	}
}

func TestAssembleMatchupPinned(t *testing.T) {
	var rows []model.RunningAverageRow
	rows = append(rows, game("g1", "KC", "SF", 2023, 2, 1, 2, 7)...)
	rows = append(rows, game("g2", "SF", "KC", 2023, 3, 3, 4, 0)...)

	m, err := AssembleMatchup(rows, model.MatchupRequest{HomeTeam: "KC", AwayTeam: "SF", Year: 2023, Week: 2})
	if err != nil {
		t.Fatalf("AssembleMatchup: %v", err)
	}
	if m.Home[model.StatRushing] != 1 || m.Away[model.StatRushing] != 2 {
		t.Errorf("expected week 2 averages, got home %v away %v", m.Home[model.StatRushing], m.Away[model.StatRushing])
	}
	if m.HomeWeek != 2 || m.AwayWeek != 2 {
		t.Errorf("resolved weeks: %d/%d", m.HomeWeek, m.AwayWeek)
	}
}

func TestAssembleMatchupLatestPerTeam(t *testing.T) {
	var rows []model.RunningAverageRow
	rows = append(rows, game("g1", "KC", "SF", 2023, 2, 1, 2, 7)...)
	rows = append(rows, game("g2", "KC", "DET", 2023, 3, 5, 6, 1)...)
	rows = append(rows, game("g3", "SF", "GB", 2022, 18, 8, 9, 1)...)

	m, err := AssembleMatchup(rows, model.MatchupRequest{HomeTeam: "KC", AwayTeam: "SF"})
	if err != nil {
		t.Fatalf("AssembleMatchup: %v", err)
	}
	if m.HomeYear != 2023 || m.HomeWeek != 3 || m.Home[model.StatRushing] != 5 {
		t.Errorf("KC should resolve to 2023 week 3, got %d/%d (%v)", m.HomeYear, m.HomeWeek, m.Home[model.StatRushing])
	}
	if m.AwayYear != 2023 || m.AwayWeek != 2 || m.Away[model.StatRushing] != 2 {
		t.Errorf("SF should resolve to 2023 week 2, got %d/%d (%v)", m.AwayYear, m.AwayWeek, m.Away[model.StatRushing])
	}

	m, err = AssembleMatchup(rows, model.MatchupRequest{HomeTeam: "SF", AwayTeam: "KC", Year: 2022})
	if !errors.Is(err, model.ErrMissingData) {
		t.Fatalf("KC has no 2022 rows, expected missing-data fault, got %v (%+v)", err, m)
	}
}
