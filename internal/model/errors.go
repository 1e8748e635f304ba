package model

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by the pipeline. Use errors.Is to classify.
var (
	ErrIntegrity      = errors.New("input integrity fault")
	ErrMissingData    = errors.New("no data for requested team/week/year")
	ErrInvalidMatchup = errors.New("invalid matchup")
)

// IntegrityError describes malformed input: a game without exactly two
// participants, inconsistent team labels, or weeks out of order.
type IntegrityError struct {
	GameID string
	Team   string
	Year   int
	Week   int
	Field  string
	Reason string
}

func (e *IntegrityError) Error() string {
	var parts []string
	if e.GameID != "" {
		parts = append(parts, "game "+e.GameID)
	}
	if e.Team != "" {
		parts = append(parts, "team "+e.Team)
	}
	if e.Year != 0 {
		parts = append(parts, fmt.Sprintf("year %d", e.Year))
	}
	if e.Week != 0 {
		parts = append(parts, fmt.Sprintf("week %d", e.Week))
	}
	if e.Field != "" {
		parts = append(parts, "field "+e.Field)
	}
	where := ""
	if len(parts) > 0 {
		where = " (" + strings.Join(parts, ", ") + ")"
	}
	return fmt.Sprintf("%s: %s%s", ErrIntegrity, e.Reason, where)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

// MissingDataError reports that no running-average row exists for a team at
// the requested season/week.
type MissingDataError struct {
	Team string
	Year int // 0 when unpinned
	Week int // 0 when unpinned
}

func (e *MissingDataError) Error() string {
	switch {
	case e.Year != 0 && e.Week != 0:
		return fmt.Sprintf("%s: %s week %d of %d", ErrMissingData, e.Team, e.Week, e.Year)
	case e.Year != 0:
		return fmt.Sprintf("%s: %s in %d", ErrMissingData, e.Team, e.Year)
	case e.Week != 0:
		return fmt.Sprintf("%s: %s week %d", ErrMissingData, e.Team, e.Week)
	default:
		return fmt.Sprintf("%s: %s", ErrMissingData, e.Team)
	}
}

func (e *MissingDataError) Unwrap() error { return ErrMissingData }
