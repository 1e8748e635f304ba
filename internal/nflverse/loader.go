// Package nflverse downloads and reads the nflverse play-by-play release files.
package nflverse

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/klauspost/compress/gzip"

	"github.com/pable/go-nfl-spread/internal/model"
)

// ErrNoData is returned when no play-by-play file could be read.
var ErrNoData = errors.New("no play-by-play data")

var fileRe = regexp.MustCompile(`^play_by_play_(\d{4})\.csv\.gz$`)

// FileName returns the release file name for a season.
func FileName(year int) string {
	return fmt.Sprintf("play_by_play_%d.csv.gz", year)
}

// yearFromFileName extracts the season from play_by_play_<year>.csv.gz.
func yearFromFileName(name string) (int, bool) {
	m := fileRe.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	y, err := strconv.Atoi(m[1])
	return y, err == nil
}

// naString is a text column where the release writes NA for absent values.
type naString string

func (s *naString) UnmarshalCSV(v string) error {
	if v == "NA" {
		v = ""
	}
	*s = naString(v)
	return nil
}

// naFloat is a numeric column that maps NA and empty cells to the missing marker.
type naFloat float64

func (f *naFloat) UnmarshalCSV(v string) error {
	if v == "" || v == "NA" {
		*f = naFloat(math.NaN())
		return nil
	}
	x, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	*f = naFloat(x)
	return nil
}

// csvPlay maps the columns of a play-by-play file that the pipeline reads.
type csvPlay struct {
	GameID                naString `csv:"game_id"`
	PlayID                naFloat  `csv:"play_id"`
	Week                  naFloat  `csv:"week"`
	PosTeam               naString `csv:"posteam"`
	DefTeam               naString `csv:"defteam"`
	HomeTeam              naString `csv:"home_team"`
	AwayTeam              naString `csv:"away_team"`
	HomeScore             naFloat  `csv:"home_score"`
	AwayScore             naFloat  `csv:"away_score"`
	PassingYards          naFloat  `csv:"passing_yards"`
	RushingYards          naFloat  `csv:"rushing_yards"`
	YardsGained           naFloat  `csv:"yards_gained"`
	Sack                  naFloat  `csv:"sack"`
	EPA                   naFloat  `csv:"epa"`
	ScoreDifferentialPost naFloat  `csv:"score_differential_post"`
}

// optionalColumns may be absent; PlayID then stays 0 and input order is kept.
var optionalColumns = map[string]bool{"play_id": true}

func toInt(f naFloat) int {
	if math.IsNaN(float64(f)) {
		return 0
	}
	return int(f)
}

func (p csvPlay) record(year int) model.PlayRecord {
	sack := float64(p.Sack)
	return model.PlayRecord{
		GameID:                string(p.GameID),
		PlayID:                toInt(p.PlayID),
		Year:                  year,
		Week:                  toInt(p.Week),
		PosTeam:               string(p.PosTeam),
		DefTeam:               string(p.DefTeam),
		HomeTeam:              string(p.HomeTeam),
		AwayTeam:              string(p.AwayTeam),
		HomeScore:             float64(p.HomeScore),
		AwayScore:             float64(p.AwayScore),
		PassingYards:          float64(p.PassingYards),
		RushingYards:          float64(p.RushingYards),
		YardsGained:           float64(p.YardsGained),
		Sack:                  !math.IsNaN(sack) && sack != 0,
		EPA:                   float64(p.EPA),
		ScoreDifferentialPost: float64(p.ScoreDifferentialPost),
	}
}

// Read parses an uncompressed play-by-play CSV stream. Every play is stamped
// with year, which the release encodes in the file name.
func Read(r io.Reader, year int) ([]model.PlayRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	um, err := gocsv.NewUnmarshaller(cr, csvPlay{})
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var missing []string
	for _, col := range um.MismatchedStructFields {
		if !optionalColumns[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required columns missing: %s", strings.Join(missing, ", "))
	}

	var out []model.PlayRecord
	for line := 2; ; line++ {
		v, err := um.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, v.(csvPlay).record(year))
	}
	return out, nil
}

// ReadFile reads one gzip-compressed play_by_play_<year>.csv.gz file.
func ReadFile(path string) ([]model.PlayRecord, error) {
	year, ok := yearFromFileName(filepath.Base(path))
	if !ok {
		return nil, fmt.Errorf("%s: file name does not carry a season", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer gz.Close()

	plays, err := Read(gz, year)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return plays, nil
}

// Files lists the play-by-play files in dir keyed by season, restricted to
// years when non-empty.
func Files(dir string, years []int) (map[int]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}
	want := make(map[int]bool, len(years))
	for _, y := range years {
		want[y] = true
	}
	out := make(map[int]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		y, ok := yearFromFileName(e.Name())
		if !ok || (len(want) > 0 && !want[y]) {
			continue
		}
		out[y] = filepath.Join(dir, e.Name())
	}
	return out, nil
}

// LoadDir reads every play-by-play file in dir (optionally only the given
// seasons) in season order and concatenates their plays.
func LoadDir(dir string, years []int) ([]model.PlayRecord, error) {
	files, err := Files(dir, years)
	if err != nil {
		return nil, err
	}
	seasons := make([]int, 0, len(files))
	for y := range files {
		seasons = append(seasons, y)
	}
	sort.Ints(seasons)

	var plays []model.PlayRecord
	for _, y := range seasons {
		p, err := ReadFile(files[y])
		if err != nil {
			return nil, err
		}
		plays = append(plays, p...)
	}
	if len(plays) == 0 {
		return nil, fmt.Errorf("%w in %s, run 'nflspread download' first", ErrNoData, dir)
	}
	return plays, nil
}
