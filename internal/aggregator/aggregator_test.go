package aggregator

import (
	"errors"
	"math"
	"testing"

	"github.com/pable/go-nfl-spread/internal/model"
)

const (
	home = "KC"
	away = "DET"
)

// play builds a minimal play for game "g1" between KC (home) and DET.
func play(id int, pos, def string) model.PlayRecord {
	return model.PlayRecord{
		GameID:                "g1",
		PlayID:                id,
		Year:                  2023,
		Week:                  1,
		PosTeam:               pos,
		DefTeam:               def,
		HomeTeam:              home,
		AwayTeam:              away,
		HomeScore:             20,
		AwayScore:             21,
		PassingYards:          math.NaN(),
		RushingYards:          math.NaN(),
		YardsGained:           0,
		EPA:                   math.NaN(),
		ScoreDifferentialPost: math.NaN(),
	}
}

func passPlay(id int, pos, def string, yards, epa, diff float64) model.PlayRecord {
	p := play(id, pos, def)
	p.PassingYards = yards
	p.YardsGained = yards
	p.EPA = epa
	p.ScoreDifferentialPost = diff
	return p
}

func rushPlay(id int, pos, def string, yards, epa, diff float64) model.PlayRecord {
	p := play(id, pos, def)
	p.RushingYards = yards
	p.YardsGained = yards
	p.EPA = epa
	p.ScoreDifferentialPost = diff
	return p
}

func sackPlay(id int, pos, def string, yards float64) model.PlayRecord {
	p := play(id, pos, def)
	p.Sack = true
	p.YardsGained = yards
	p.EPA = -1
	return p
}

func sampleGame() []model.PlayRecord {
	return []model.PlayRecord{
		passPlay(1, home, away, 10, 0.5, 0),
		rushPlay(2, home, away, 5, 0.1, 0),
		sackPlay(3, home, away, -7),
		passPlay(4, away, home, 20, 1.0, 0),
		rushPlay(5, away, home, 3, -0.2, 7),
		play(6, "", ""), // end of quarter
		passPlay(7, home, away, 15, 0.4, -7),
	}
}

func findRow(t *testing.T, rows []model.GameTeamStat, team string) model.GameTeamStat {
	t.Helper()
	for _, r := range rows {
		if r.Team == team {
			return r
		}
	}
	t.Fatalf("no row for team %s", team)
	return model.GameTeamStat{}
}

func TestAggregateOffenseAndDefense(t *testing.T) {
	rows, err := Aggregate(sampleGame())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	kc := findRow(t, rows, home)
	det := findRow(t, rows, away)

	if got := kc.Stats[model.StatPassing]; got != 25 {
		t.Errorf("KC passing: expected 25, got %v", got)
	}
	if got := kc.Stats[model.StatRushing]; got != 5 {
		t.Errorf("KC rushing: expected 5, got %v", got)
	}
	if got := kc.Stats[model.StatYardsGained]; got != 23 {
		t.Errorf("KC yards gained: expected 23 (10+5-7+15), got %v", got)
	}
	if got := kc.Stats[model.StatSackYards]; got != -7 {
		t.Errorf("KC sack yards: expected -7, got %v", got)
	}

	// DET's defense is credited with KC's offensive yardage, including the sack.
	if got := det.Stats[model.StatPassingDefense]; got != 25 {
		t.Errorf("DET passing allowed: expected 25, got %v", got)
	}
	if got := det.Stats[model.StatSackYardsDefense]; got != -7 {
		t.Errorf("DET sack yards defense: expected -7, got %v", got)
	}
	if got := kc.Stats[model.StatRushingDefense]; got != 3 {
		t.Errorf("KC rushing allowed: expected 3, got %v", got)
	}
	if got := det.Stats[model.StatSackYards]; got != 0 {
		t.Errorf("DET sack yards with no sacks: expected 0, got %v", got)
	}
}

func TestSackYardsAttributedToOpposingDefense(t *testing.T) {
	rows, err := Aggregate(sampleGame())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	kc := findRow(t, rows, home)
	det := findRow(t, rows, away)

	// Sack yardage is measured from the offense's side: negative yards lost
	// by KC appear as the same negative figure in DET's defensive column.
	if kc.Stats[model.StatSackYards] != det.Stats[model.StatSackYardsDefense] {
		t.Errorf("sack attribution mismatch: KC offense %v vs DET defense %v",
			kc.Stats[model.StatSackYards], det.Stats[model.StatSackYardsDefense])
	}
	if kc.Stats[model.StatSackYardsDefense] != 0 {
		t.Errorf("KC defense recorded no sacks, got %v", kc.Stats[model.StatSackYardsDefense])
	}
}

func TestPointsFromHomeFlag(t *testing.T) {
	rows, err := Aggregate(sampleGame())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	kc := findRow(t, rows, home)
	det := findRow(t, rows, away)

	if kc.Stats[model.StatPointsScored] != 20 || kc.Stats[model.StatPointsAllowed] != 21 {
		t.Errorf("KC points: got %v/%v", kc.Stats[model.StatPointsScored], kc.Stats[model.StatPointsAllowed])
	}
	if det.Stats[model.StatPointsScored] != 21 || det.Stats[model.StatPointsAllowed] != 20 {
		t.Errorf("DET points: got %v/%v", det.Stats[model.StatPointsScored], det.Stats[model.StatPointsAllowed])
	}
}

func TestLastDifferentialAndMeanEPA(t *testing.T) {
	plays := sampleGame()
	// Shuffle input order; play ids define chronology.
	plays[0], plays[6] = plays[6], plays[0]

	rows, err := Aggregate(plays)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	kc := findRow(t, rows, home)
	det := findRow(t, rows, away)

	if got := kc.Stats[model.StatScoreDifferentialPost]; got != -7 {
		t.Errorf("KC final differential: expected -7 (play 7), got %v", got)
	}
	if got := det.Stats[model.StatScoreDifferentialPost]; got != 7 {
		t.Errorf("DET final differential: expected 7, got %v", got)
	}
	// KC epa: 0.5, 0.1, -1, 0.4 -> 0.0
	if got := kc.Stats[model.StatMeanEPA]; math.Abs(got) > 1e-12 {
		t.Errorf("KC mean epa: expected 0, got %v", got)
	}
	// DET epa: 1.0, -0.2 -> 0.4
	if got := det.Stats[model.StatMeanEPA]; math.Abs(got-0.4) > 1e-12 {
		t.Errorf("DET mean epa: expected 0.4, got %v", got)
	}
}

func TestPairingInvariant(t *testing.T) {
	plays := sampleGame()
	for _, p := range sampleGame() {
		p.GameID = "g2"
		p.Week = 2
		plays = append(plays, p)
	}

	rows, err := Aggregate(plays)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	perGame := make(map[string][]model.GameTeamStat)
	for _, r := range rows {
		perGame[r.GameID] = append(perGame[r.GameID], r)
	}
	if len(perGame) != 2 {
		t.Fatalf("expected 2 games, got %d", len(perGame))
	}
	for id, rs := range perGame {
		if len(rs) != 2 {
			t.Errorf("game %s: expected 2 rows, got %d", id, len(rs))
			continue
		}
		if rs[0].HomeTeam != rs[1].HomeTeam || rs[0].AwayTeam != rs[1].AwayTeam {
			t.Errorf("game %s: home/away disagree across rows", id)
		}
	}
	// ordered by (year, week, game_id, team)
	if rows[0].GameID != "g1" || rows[0].Team != "DET" || rows[3].GameID != "g2" || rows[3].Team != "KC" {
		t.Errorf("unexpected order: %s/%s ... %s/%s", rows[0].GameID, rows[0].Team, rows[3].GameID, rows[3].Team)
	}
}

func TestThreeTeamGameIsIntegrityFault(t *testing.T) {
	plays := sampleGame()
	stray := passPlay(8, "BUF", away, 5, 0, 0)
	plays = append(plays, stray)

	_, err := Aggregate(plays)
	if !errors.Is(err, model.ErrIntegrity) {
		t.Fatalf("expected integrity fault, got %v", err)
	}
	var ie *model.IntegrityError
	if !errors.As(err, &ie) || ie.GameID != "g1" {
		t.Errorf("expected fault to name game g1, got %v", err)
	}
}

func TestOneSidedGameIsIntegrityFault(t *testing.T) {
	plays := []model.PlayRecord{
		passPlay(1, home, away, 10, 0.5, 0),
		rushPlay(2, home, away, 5, 0.1, 0),
	}
	if _, err := Aggregate(plays); !errors.Is(err, model.ErrIntegrity) {
		t.Fatalf("expected integrity fault for one-sided game, got %v", err)
	}
}

func TestInconsistentHomeAwayIsIntegrityFault(t *testing.T) {
	plays := sampleGame()
	plays[3].HomeTeam = away
	plays[3].AwayTeam = home
	if _, err := Aggregate(plays); !errors.Is(err, model.ErrIntegrity) {
		t.Fatalf("expected integrity fault for swapped labels, got %v", err)
	}
}

func TestMissingGameID(t *testing.T) {
	p := passPlay(1, home, away, 10, 0, 0)
	p.GameID = ""
	if _, err := Aggregate([]model.PlayRecord{p}); !errors.Is(err, model.ErrIntegrity) {
		t.Fatalf("expected integrity fault, got %v", err)
	}
}
