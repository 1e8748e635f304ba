package pipeline

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pable/go-nfl-spread/internal/model"
)

var fixtureTeams = []string{"KC", "DET", "BUF", "NYJ", "SF", "DAL", "GB", "CHI"}

// syntheticSeason plays every fixture team once per week for weeks 1..weeks
// of 2023, with seeded random yardage, sacks, epa and scores.
func syntheticSeason(seed int64, weeks int) []model.PlayRecord {
	rng := rand.New(rand.NewSource(seed))
	var plays []model.PlayRecord
	for w := 1; w <= weeks; w++ {
		perm := rng.Perm(len(fixtureTeams))
		for g := 0; g+1 < len(perm); g += 2 {
			home, away := fixtureTeams[perm[g]], fixtureTeams[perm[g+1]]
			plays = append(plays, syntheticGame(rng, 2023, w, home, away)...)
		}
	}
	return plays
}

func syntheticGame(rng *rand.Rand, year, week int, home, away string) []model.PlayRecord {
	gameID := fmt.Sprintf("%d_%02d_%s_%s", year, week, away, home)
	homeScore := float64(rng.Intn(35) + 3)
	awayScore := float64(rng.Intn(35) + 3)
	base := model.PlayRecord{
		GameID:                gameID,
		Year:                  year,
		Week:                  week,
		HomeTeam:              home,
		AwayTeam:              away,
		HomeScore:             homeScore,
		AwayScore:             awayScore,
		PassingYards:          math.NaN(),
		RushingYards:          math.NaN(),
		YardsGained:           math.NaN(),
		EPA:                   math.NaN(),
		ScoreDifferentialPost: math.NaN(),
	}

	// kickoff marker without teams
	plays := []model.PlayRecord{base}
	plays[0].PlayID = 1

	id := 1
	for i := 0; i < 4; i++ {
		for _, side := range [][2]string{{home, away}, {away, home}} {
			id += 10
			p := base
			p.PlayID = id
			p.PosTeam, p.DefTeam = side[0], side[1]
			p.EPA = rng.NormFloat64()
			p.ScoreDifferentialPost = float64(rng.Intn(29) - 14)
			switch {
			case rng.Float64() < 0.25:
				p.YardsGained = -float64(rng.Intn(9) + 1)
				p.Sack = true
			case i%2 == 0:
				p.RushingYards = float64(rng.Intn(15) - 2)
				p.YardsGained = p.RushingYards
			default:
				p.PassingYards = float64(rng.Intn(30))
				p.YardsGained = p.PassingYards
			}
			plays = append(plays, p)
		}
	}
	return plays
}
