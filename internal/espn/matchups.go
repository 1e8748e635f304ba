package espn

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pable/go-nfl-spread/internal/model"
)

// SaveMatchups writes matchups as a JSON list of {"home_team","away_team"}.
func SaveMatchups(w io.Writer, matchups []model.MatchupRequest) error {
	if matchups == nil {
		matchups = []model.MatchupRequest{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(matchups)
}

// LoadMatchups reads a list written by SaveMatchups. Team codes are
// normalized; entries missing a side are rejected.
func LoadMatchups(r io.Reader) ([]model.MatchupRequest, error) {
	var out []model.MatchupRequest
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode matchups: %w", err)
	}
	for i := range out {
		out[i].HomeTeam = Normalize(out[i].HomeTeam)
		out[i].AwayTeam = Normalize(out[i].AwayTeam)
		if out[i].HomeTeam == "" || out[i].AwayTeam == "" {
			return nil, fmt.Errorf("matchup %d: home_team and away_team are required", i)
		}
	}
	return out, nil
}
