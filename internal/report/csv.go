package report

import (
	"io"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/pable/go-nfl-spread/internal/model"
)

// csvFloat writes missing values as NA, the way the play-by-play files do.
type csvFloat float64

func (f csvFloat) MarshalCSV() (string, error) {
	if model.IsMissing(float64(f)) {
		return "NA", nil
	}
	return strconv.FormatFloat(float64(f), 'g', -1, 64), nil
}

// trainingCSV is one exported training row. Feature columns follow
// model.FeatureNames.
type trainingCSV struct {
	GameID     string   `csv:"game_id"`
	Year       int      `csv:"year"`
	Week       int      `csv:"week"`
	HomeTeam   string   `csv:"home_team"`
	AwayTeam   string   `csv:"away_team"`
	HomeSpread csvFloat `csv:"home_spread"`

	AwayRushing      csvFloat `csv:"away_rushing_avg"`
	HomeRushing      csvFloat `csv:"home_rushing_avg"`
	AwayPassing      csvFloat `csv:"away_passing_avg"`
	HomePassing      csvFloat `csv:"home_passing_avg"`
	AwaySackYards    csvFloat `csv:"away_sack_yards_avg"`
	HomeSackYards    csvFloat `csv:"home_sack_yards_avg"`
	AwayScoreDiff    csvFloat `csv:"away_score_differential_post_avg"`
	HomeScoreDiff    csvFloat `csv:"home_score_differential_post_avg"`
	AwayPointsScored csvFloat `csv:"away_points_scored_avg"`
	HomePointsScored csvFloat `csv:"home_points_scored_avg"`
	AwayPointsAllow  csvFloat `csv:"away_points_allowed_avg"`
	HomePointsAllow  csvFloat `csv:"home_points_allowed_avg"`
	AwayMeanEPA      csvFloat `csv:"away_mean_epa_avg"`
	HomeMeanEPA      csvFloat `csv:"home_mean_epa_avg"`
}

func toTrainingCSV(r model.TrainingRow) *trainingCSV {
	f := r.Features()
	return &trainingCSV{
		GameID:     r.GameID,
		Year:       r.Year,
		Week:       r.Week,
		HomeTeam:   r.HomeTeam,
		AwayTeam:   r.AwayTeam,
		HomeSpread: csvFloat(r.HomeSpread),

		AwayRushing:      csvFloat(f[0]),
		HomeRushing:      csvFloat(f[1]),
		AwayPassing:      csvFloat(f[2]),
		HomePassing:      csvFloat(f[3]),
		AwaySackYards:    csvFloat(f[4]),
		HomeSackYards:    csvFloat(f[5]),
		AwayScoreDiff:    csvFloat(f[6]),
		HomeScoreDiff:    csvFloat(f[7]),
		AwayPointsScored: csvFloat(f[8]),
		HomePointsScored: csvFloat(f[9]),
		AwayPointsAllow:  csvFloat(f[10]),
		HomePointsAllow:  csvFloat(f[11]),
		AwayMeanEPA:      csvFloat(f[12]),
		HomeMeanEPA:      csvFloat(f[13]),
	}
}

// WriteTrainingCSV writes the training table with a header row.
func WriteTrainingCSV(w io.Writer, rows []model.TrainingRow) error {
	out := make([]*trainingCSV, 0, len(rows))
	for _, r := range rows {
		out = append(out, toTrainingCSV(r))
	}
	return gocsv.Marshal(out, w)
}
