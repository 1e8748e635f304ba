// Package config holds nflspread's runtime configuration.
//
// Values are layered: built-in defaults, then an optional YAML file named by
// NFLSPREAD_CONFIG, then NFLSPREAD_* environment variables. Command-line
// flags are applied on top by the cmd package.
package config

import (
	"path/filepath"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DBPath is the SQLite database holding tables, artifacts and runs.
	DBPath string `koanf:"db_path"`

	// DataDir holds downloaded play_by_play_<year>.csv.gz files.
	DataDir string `koanf:"data_dir"`

	// ArtifactDir, when set, stores predictor and matchup artifacts as
	// files instead of in the database.
	ArtifactDir string `koanf:"artifact_dir"`

	// StartYear is the first season downloaded and loaded by default.
	StartYear int `koanf:"start_year"`

	// Seed and TestFraction control the train/test split.
	Seed         int64   `koanf:"seed"`
	TestFraction float64 `koanf:"test_fraction"`

	// NflverseURL is the release directory serving play-by-play files.
	NflverseURL string `koanf:"nflverse_url"`

	// ESPNURL is the base of the ESPN core API for the NFL league.
	ESPNURL string `koanf:"espn_url"`

	// HTTPTimeoutSec bounds each outbound request.
	HTTPTimeoutSec int `koanf:"http_timeout_sec"`

	// MetricsTextfile, when set, receives a Prometheus textfile after each
	// batch command.
	MetricsTextfile string `koanf:"metrics_textfile"`

	// ServeAddr is the listen address of the HTTP predictor.
	ServeAddr string `koanf:"serve_addr"`

	// AnalyzeModel is the Anthropic model used by the analyze command.
	AnalyzeModel string `koanf:"analyze_model"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		DBPath:         filepath.Join("data", "nflspread.db"),
		DataDir:        filepath.Join("data", "raw"),
		StartYear:      1999,
		Seed:           42,
		TestFraction:   0.2,
		NflverseURL:    "https://github.com/nflverse/nflverse-data/releases/download/pbp",
		ESPNURL:        "https://sports.core.api.espn.com/v2/sports/football/leagues/nfl",
		HTTPTimeoutSec: 60,
		ServeAddr:      ":8080",
		AnalyzeModel:   "claude-sonnet-4-5",
	}
}

// HTTPTimeout returns HTTPTimeoutSec as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}
