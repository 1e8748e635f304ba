// Package espn reads upcoming NFL matchups from the ESPN core API.
package espn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pable/go-nfl-spread/internal/model"
	"github.com/pable/go-nfl-spread/pkg/logger"
)

// DefaultBaseURL is the root of the ESPN core API for the NFL league.
const DefaultBaseURL = "https://sports.core.api.espn.com/v2/sports/football/leagues/nfl"

// calendarTimeLayout is the minute-resolution UTC stamp used by the calendar.
const calendarTimeLayout = "2006-01-02T15:04Z"

// ErrNoSeasonPosition is returned when the calendar has no section covering now.
var ErrNoSeasonPosition = errors.New("could not find current season position")

// SeasonType is the calendar section kind.
type SeasonType int

const (
	Preseason  SeasonType = 1
	Regular    SeasonType = 2
	Postseason SeasonType = 3
	Offseason  SeasonType = 4
)

func (t SeasonType) String() string {
	switch t {
	case Preseason:
		return "preseason"
	case Regular:
		return "regular"
	case Postseason:
		return "postseason"
	case Offseason:
		return "offseason"
	}
	return fmt.Sprintf("season-type-%d", int(t))
}

// SeasonPosition locates a moment within the league calendar.
type SeasonPosition struct {
	Type SeasonType
	Week string
}

// HasPriorGames reports whether matchups at this position can be scored:
// running averages need at least one earlier game of the season, so the
// preseason, the offseason and regular-season week 1 are excluded.
func (p SeasonPosition) HasPriorGames() bool {
	switch p.Type {
	case Regular:
		return p.Week != "1"
	case Postseason:
		return true
	}
	return false
}

type ref struct {
	Ref string `json:"$ref"`
}

type calendarEntry struct {
	Value     string `json:"value"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type calendarSection struct {
	Value     string          `json:"value"`
	StartDate string          `json:"startDate"`
	EndDate   string          `json:"endDate"`
	Entries   []calendarEntry `json:"entries"`
}

// Calendar holds the fields we need from /calendar/blacklist.
type Calendar struct {
	Season   ref               `json:"season"`
	Sections []calendarSection `json:"sections"`
}

type season struct {
	Type struct {
		Week struct {
			Events ref `json:"events"`
		} `json:"week"`
	} `json:"type"`
}

type eventList struct {
	Items []ref `json:"items"`
}

type event struct {
	ID           string `json:"id"`
	Competitions []struct {
		Competitors []struct {
			HomeAway string `json:"homeAway"`
			Team     ref    `json:"team"`
		} `json:"competitors"`
	} `json:"competitions"`
}

type team struct {
	Abbreviation string `json:"abbreviation"`
}

// Client is a minimal ESPN core API client.
type Client struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
}

// NewClient returns a client for baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// get performs a GET against url and JSON-decodes the response body into out.
// The API links resources with absolute $ref URLs, so callers pass full URLs.
func (c *Client) get(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: HTTP %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decode: %w", url, err)
	}
	return nil
}

// GetCalendar fetches the league calendar.
func (c *Client) GetCalendar(ctx context.Context) (*Calendar, error) {
	var cal Calendar
	if err := c.get(ctx, c.baseURL+"/calendar/blacklist", &cal); err != nil {
		return nil, err
	}
	return &cal, nil
}

func within(now time.Time, start, end string) (bool, error) {
	s, err := time.Parse(calendarTimeLayout, start)
	if err != nil {
		return false, err
	}
	e, err := time.Parse(calendarTimeLayout, end)
	if err != nil {
		return false, err
	}
	return !now.Before(s) && !now.After(e), nil
}

// Position returns the section and entry of the calendar covering now.
func (cal *Calendar) Position(now time.Time) (SeasonPosition, error) {
	now = now.UTC()
	for _, sec := range cal.Sections {
		in, err := within(now, sec.StartDate, sec.EndDate)
		if err != nil {
			return SeasonPosition{}, fmt.Errorf("calendar section %s: %w", sec.Value, err)
		}
		if !in {
			continue
		}
		for _, e := range sec.Entries {
			in, err := within(now, e.StartDate, e.EndDate)
			if err != nil {
				return SeasonPosition{}, fmt.Errorf("calendar entry %s: %w", e.Value, err)
			}
			if !in {
				continue
			}
			var typ int
			if _, err := fmt.Sscanf(sec.Value, "%d", &typ); err != nil {
				return SeasonPosition{}, fmt.Errorf("calendar section type %q: %w", sec.Value, err)
			}
			return SeasonPosition{Type: SeasonType(typ), Week: e.Value}, nil
		}
	}
	return SeasonPosition{}, fmt.Errorf("%w at %s", ErrNoSeasonPosition, now.Format(time.RFC3339))
}

// UpcomingMatchups returns the home/away pairings of the current week's
// events. It returns an empty list outside the regular season and
// postseason and during regular-season week 1.
func (c *Client) UpcomingMatchups(ctx context.Context, now time.Time) ([]model.MatchupRequest, error) {
	cal, err := c.GetCalendar(ctx)
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}
	pos, err := cal.Position(now)
	if err != nil {
		return nil, err
	}
	if !pos.HasPriorGames() {
		c.log.Info(ctx, "no scoreable matchups this week",
			logger.String("season_type", pos.Type.String()), logger.String("week", pos.Week))
		return nil, nil
	}
	if cal.Season.Ref == "" {
		return nil, errors.New("season url not found in calendar")
	}

	var s season
	if err := c.get(ctx, cal.Season.Ref, &s); err != nil {
		return nil, fmt.Errorf("season: %w", err)
	}
	eventsURL := s.Type.Week.Events.Ref
	if eventsURL == "" {
		return nil, errors.New("events url not found in season data")
	}
	var events eventList
	if err := c.get(ctx, eventsURL, &events); err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}

	var out []model.MatchupRequest
	for _, item := range events.Items {
		m, err := c.matchup(ctx, item.Ref)
		if errors.Is(err, model.ErrInvalidMatchup) {
			c.log.Warn(ctx, "skipping event", logger.String("event", item.Ref), logger.Error(err))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	c.log.Info(ctx, "fetched upcoming matchups",
		logger.String("season_type", pos.Type.String()),
		logger.String("week", pos.Week),
		logger.Int("matchups", len(out)))
	return out, nil
}

func (c *Client) matchup(ctx context.Context, eventURL string) (model.MatchupRequest, error) {
	var ev event
	if err := c.get(ctx, eventURL, &ev); err != nil {
		return model.MatchupRequest{}, fmt.Errorf("event: %w", err)
	}
	if n := len(ev.Competitions); n != 1 {
		return model.MatchupRequest{}, fmt.Errorf("event %s: expected 1 competition, got %d", ev.ID, n)
	}

	var m model.MatchupRequest
	for _, comp := range ev.Competitions[0].Competitors {
		if comp.HomeAway != "home" && comp.HomeAway != "away" {
			continue
		}
		var t team
		if err := c.get(ctx, comp.Team.Ref, &t); err != nil {
			return model.MatchupRequest{}, fmt.Errorf("team: %w", err)
		}
		if comp.HomeAway == "home" {
			m.HomeTeam = Normalize(t.Abbreviation)
		} else {
			m.AwayTeam = Normalize(t.Abbreviation)
		}
	}
	if m.HomeTeam == "" || m.AwayTeam == "" {
		return model.MatchupRequest{}, fmt.Errorf("event %s: home or away team not found", ev.ID)
	}
	if err := model.ValidateMatchup(m.HomeTeam, m.AwayTeam); err != nil {
		return model.MatchupRequest{}, fmt.Errorf("event %s: %w", ev.ID, err)
	}
	return m, nil
}
