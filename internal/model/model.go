package model

import "math"

// Missing returns the marker used for an absent numeric value.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v is the missing-value marker.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// ---- Raw input ----

// PlayRecord is one play from the play-by-play log. Numeric fields that the
// source leaves blank carry the missing marker.
type PlayRecord struct {
	GameID   string
	PlayID   int // ordering within a game; equal ids keep input order
	Year     int // season start year
	Week     int
	PosTeam  string
	DefTeam  string
	HomeTeam string
	AwayTeam string

	HomeScore float64
	AwayScore float64

	PassingYards float64
	RushingYards float64
	YardsGained  float64
	Sack         bool

	EPA                   float64
	ScoreDifferentialPost float64
}

// ---- Tracked stats ----

// Stat identifies one of the per-game statistics that receive a running average.
type Stat int

const (
	StatRushing Stat = iota
	StatPassing
	StatYardsGained
	StatSackYards
	StatPassingDefense
	StatRushingDefense
	StatYardsGainedDefense
	StatSackYardsDefense
	StatScoreDifferentialPost
	StatPointsScored
	StatPointsAllowed
	StatMeanEPA
)

// NumStats is the number of tracked stats.
const NumStats = int(StatMeanEPA) + 1

var statColumns = [NumStats]string{
	"rushing_yards",
	"passing_yards",
	"yards_gained",
	"sack_yards",
	"passing_yards_defense",
	"rushing_yards_defense",
	"yards_gained_defense",
	"sack_yards_defense",
	"score_differential_post",
	"points_scored",
	"points_allowed",
	"mean_epa",
}

var avgColumns = [NumStats]string{
	"rushing_avg",
	"passing_avg",
	"yards_gained_avg",
	"sack_yards_avg",
	"passing_yards_defense_avg",
	"rushing_yards_defense_avg",
	"yards_gained_defense_avg",
	"sack_yards_defense_avg",
	"score_differential_post_avg",
	"points_scored_avg",
	"points_allowed_avg",
	"mean_epa_avg",
}

// Stats returns every tracked stat in column order.
func Stats() []Stat {
	out := make([]Stat, NumStats)
	for i := range out {
		out[i] = Stat(i)
	}
	return out
}

// Column is the per-game column name, e.g. "sack_yards_defense".
func (s Stat) Column() string { return statColumns[s] }

// AvgColumn is the running-average column name, e.g. "rushing_avg".
func (s Stat) AvgColumn() string { return avgColumns[s] }

func (s Stat) String() string { return s.Column() }

// ---- Derived rows ----

// GameTeamStat is one team's totals for one game. Stats holds the raw
// per-game value of every tracked stat, indexed by Stat.
type GameTeamStat struct {
	GameID   string
	Team     string
	Week     int
	Year     int
	HomeTeam string
	AwayTeam string
	Stats    [NumStats]float64
}

// IsHome reports whether the row belongs to the game's home team.
func (g GameTeamStat) IsHome() bool { return g.Team == g.HomeTeam }

// Opponent returns the other participant of the game.
func (g GameTeamStat) Opponent() string {
	if g.IsHome() {
		return g.AwayTeam
	}
	return g.HomeTeam
}

// RunningAverageRow extends a game row with the mean of each stat over the
// team's earlier games of the same season. Avg entries are missing when the
// team has no earlier game with a value for that stat.
type RunningAverageRow struct {
	GameTeamStat
	Avg        [NumStats]float64
	HomeSpread float64
}

// HomeSpread signs a team's final score differential relative to the home team.
func HomeSpread(g GameTeamStat) float64 {
	d := g.Stats[StatScoreDifferentialPost]
	if g.IsHome() {
		return d
	}
	return -d
}

// ---- Model inputs ----

// featureStats are the stats used by the regression, each contributing an
// away and a home column (away first).
var featureStats = []Stat{
	StatRushing,
	StatPassing,
	StatSackYards,
	StatScoreDifferentialPost,
	StatPointsScored,
	StatPointsAllowed,
	StatMeanEPA,
}

// NumFeatures is the length of a model feature vector.
const NumFeatures = 14

// FeatureNames returns the model's input column names in vector order.
func FeatureNames() []string {
	out := make([]string, 0, NumFeatures)
	for _, s := range featureStats {
		out = append(out, "away_"+s.AvgColumn(), "home_"+s.AvgColumn())
	}
	return out
}

// PairingColumns returns the names of every home/away running-average column,
// home side first.
func PairingColumns() []string {
	out := make([]string, 0, 2*NumStats)
	for _, s := range Stats() {
		out = append(out, "home_"+s.AvgColumn())
	}
	for _, s := range Stats() {
		out = append(out, "away_"+s.AvgColumn())
	}
	return out
}

// Pairing holds the running averages of both sides of a matchup.
type Pairing struct {
	Home [NumStats]float64
	Away [NumStats]float64
}

// Features returns the model feature vector in FeatureNames order.
func (p Pairing) Features() []float64 {
	out := make([]float64, 0, NumFeatures)
	for _, s := range featureStats {
		out = append(out, p.Away[s], p.Home[s])
	}
	return out
}

// Columns returns all home/away average values in PairingColumns order.
func (p Pairing) Columns() []float64 {
	out := make([]float64, 0, 2*NumStats)
	out = append(out, p.Home[:]...)
	out = append(out, p.Away[:]...)
	return out
}

// TrainingRow is one completed game with both sides' prior-game averages and
// the home-relative spread as target.
type TrainingRow struct {
	GameID     string
	Week       int
	Year       int
	HomeTeam   string
	AwayTeam   string
	HomeSpread float64
	Pairing
}

// MatchupRequest asks for the feature vector of a home/away pairing. A zero
// Year or Week means "latest available" for each side.
type MatchupRequest struct {
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
	Year     int    `json:"year,omitempty"`
	Week     int    `json:"week,omitempty"`
}

// Matchup is an assembled inference vector together with the table rows it
// was resolved from.
type Matchup struct {
	HomeTeam string
	AwayTeam string
	HomeYear int
	HomeWeek int
	AwayYear int
	AwayWeek int
	Pairing
}

// Prediction is the outcome of scoring one matchup.
type Prediction struct {
	Matchup
	Spread       float64 // positive favours the home team
	ModelVersion string
}

// Favourite returns the team the prediction favours; ties go to the home team.
func (p Prediction) Favourite() string {
	if p.Spread < 0 {
		return p.AwayTeam
	}
	return p.HomeTeam
}
