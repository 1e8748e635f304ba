package espn

import "github.com/pable/go-nfl-spread/internal/model"

// abbreviations maps ESPN team abbreviations that differ from the
// play-by-play codes.
var abbreviations = map[string]string{
	"WSH": "WAS",
	"LAR": "LA",
	"JAC": "JAX",
	"OAK": "LV",
	"SD":  "LAC",
	"STL": "LA",
}

// Normalize converts an ESPN abbreviation to the play-by-play team code.
func Normalize(abbr string) string {
	code := model.NormalizeTeam(abbr)
	if mapped, ok := abbreviations[code]; ok {
		return mapped
	}
	return code
}
