package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-nfl-spread/internal/artifact"
	"github.com/pable/go-nfl-spread/internal/config"
	"github.com/pable/go-nfl-spread/internal/ml"
	"github.com/pable/go-nfl-spread/internal/pipeline"
	"github.com/pable/go-nfl-spread/internal/storage"
	"github.com/pable/go-nfl-spread/pkg/logger"
	"github.com/pable/go-nfl-spread/pkg/metrics"
)

var (
	cfg        *config.Config
	metricsMgr *metrics.Manager

	flagDB       string
	flagDataDir  string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "nflspread",
	Short: "NFL point-spread predictor",
	Long: `Builds leakage-free rolling team statistics from nflverse play-by-play
logs, trains a linear spread model on them and predicts home-relative
point spreads for upcoming matchups.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: writeMetrics,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "path to SQLite database (overrides db_path)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "directory of play-by-play files (overrides data_dir)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error (overrides log_level)")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(buildTableCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(upcomingCmd)
	rootCmd.AddCommand(averagesCmd)
	rootCmd.AddCommand(exportTrainingCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(dropCmd)
}

// setup loads configuration, applies flag overrides and initializes logging.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}
	if flagDB != "" {
		c.DBPath = flagDB
	}
	if flagDataDir != "" {
		c.DataDir = flagDataDir
	}
	if flagLogLevel != "" {
		c.LogLevel = flagLogLevel
	}
	cfg = c

	if err := logger.Init(); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}
	metricsMgr = metrics.NewManager()
	return nil
}

func writeMetrics(cmd *cobra.Command, _ []string) error {
	if cfg == nil || cfg.MetricsTextfile == "" || cmd.Name() == "serve" {
		return nil
	}
	return metricsMgr.WriteTextfile(cfg.MetricsTextfile)
}

// env bundles the stores a command works against.
type env struct {
	db    *storage.DB
	store artifact.Store
	pipe  *pipeline.Pipeline
}

func (e *env) Close() error { return e.db.Close() }

// openEnv opens the database and the artifact store selected by config.
func openEnv() (*env, error) {
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	var store artifact.Store = db
	if cfg.ArtifactDir != "" {
		ds, err := artifact.NewDirStore(cfg.ArtifactDir)
		if err != nil {
			db.Close()
			return nil, err
		}
		store = ds
	}
	pipe := pipeline.New(db, store, logger.Named("pipeline"), metricsMgr)
	return &env{db: db, store: store, pipe: pipe}, nil
}

// loadModel opens the stores and loads the latest table and predictor.
func loadModel(ctx context.Context) (*env, *pipeline.Model, error) {
	e, err := openEnv()
	if err != nil {
		return nil, nil, err
	}
	m, err := e.pipe.Load(ctx)
	if err != nil {
		e.Close()
		return nil, nil, err
	}
	return e, m, nil
}

func trainOptions() ml.Options {
	opts := ml.DefaultOptions()
	opts.Seed = cfg.Seed
	opts.TestFraction = cfg.TestFraction
	return opts
}
