package model

import (
	"fmt"
	"strings"
)

// FirstSeason is the earliest season with play-by-play coverage.
const FirstSeason = 1999

// Teams lists the valid team codes as used by the play-by-play source.
var Teams = []string{
	"WAS", "ARI", "BUF", "NYJ", "ATL", "CAR", "CIN", "CLE",
	"NYG", "DAL", "DET", "KC", "CHI", "GB", "BAL", "HOU",
	"IND", "JAX", "SEA", "LA", "LV", "DEN", "MIA", "LAC",
	"PHI", "NE", "PIT", "SF", "MIN", "TB", "NO", "TEN",
}

var teamSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Teams))
	for _, t := range Teams {
		m[t] = struct{}{}
	}
	return m
}()

// IsValidTeam reports whether code is a known team code.
func IsValidTeam(code string) bool {
	_, ok := teamSet[code]
	return ok
}

// NormalizeTeam upper-cases and trims a user-supplied team code.
func NormalizeTeam(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateMatchup rejects unknown team codes and a team playing itself.
func ValidateMatchup(home, away string) error {
	for _, t := range []string{home, away} {
		if !IsValidTeam(t) {
			return fmt.Errorf("%w: unknown team %q", ErrInvalidMatchup, t)
		}
	}
	if home == away {
		return fmt.Errorf("%w: home and away team cannot be the same (%s)", ErrInvalidMatchup, home)
	}
	return nil
}

// IsValidSeason reports whether year lies between FirstSeason and currentYear.
func IsValidSeason(year, currentYear int) bool {
	return year >= FirstSeason && year <= currentYear
}
