package nflverse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pable/go-nfl-spread/internal/model"
	"github.com/pable/go-nfl-spread/pkg/logger"
)

// DefaultBaseURL is the release directory serving play_by_play_<year>.csv.gz.
const DefaultBaseURL = "https://github.com/nflverse/nflverse-data/releases/download/pbp"

// ErrInvalidYear is returned for seasons outside the covered range.
var ErrInvalidYear = errors.New("invalid season")

// ErrSeasonNotPublished is returned when the release has no file for a season.
var ErrSeasonNotPublished = errors.New("season not published")

// ValidYear rejects seasons before the first covered season or after now.
func ValidYear(year int, now time.Time) error {
	if !model.IsValidSeason(year, now.Year()) {
		return fmt.Errorf("%w: %d (expected %d-%d)", ErrInvalidYear, year, model.FirstSeason, now.Year())
	}
	return nil
}

// Seasons returns every season from start through now's year.
func Seasons(start int, now time.Time) []int {
	var out []int
	for y := start; y <= now.Year(); y++ {
		out = append(out, y)
	}
	return out
}

// Client downloads play-by-play release files.
type Client struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
}

// NewClient returns a Client for baseURL (DefaultBaseURL when empty).
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

// Download fetches each season into dir and returns the paths written.
// Seasons the release does not publish yet are logged and skipped; any other
// failure aborts.
func (c *Client) Download(ctx context.Context, years []int, dir string) ([]string, error) {
	now := time.Now()
	for _, y := range years {
		if err := ValidYear(y, now); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	var written []string
	for _, y := range years {
		path, err := c.fetch(ctx, y, dir)
		if errors.Is(err, ErrSeasonNotPublished) {
			c.log.Warn(ctx, "season not available, skipping", logger.Int("year", y), logger.Error(err))
			continue
		}
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// fetch streams one season to a temp file and renames it into place so a
// failed transfer never leaves a truncated file behind.
func (c *Client) fetch(ctx context.Context, year int, dir string) (string, error) {
	name := FileName(year)
	url := c.baseURL + "/" + name
	dest := filepath.Join(dir, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "nflspread/1.0")

	c.log.Info(ctx, "downloading", logger.String("url", url), logger.String("dest", dest))
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s: HTTP %d", ErrSeasonNotPublished, url, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("GET %s: HTTP %d: %s", url, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	tmp, err := os.CreateTemp(dir, name+".*.part")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("rename %s: %w", dest, err)
	}
	c.log.Info(ctx, "downloaded",
		logger.Int("year", year),
		logger.Int("bytes", int(n)),
		logger.Duration("took", time.Since(start).Round(time.Millisecond)))
	return dest, nil
}
