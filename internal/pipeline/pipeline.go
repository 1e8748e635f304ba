// Package pipeline wires the stages together: play log to running-average
// table, table to trained predictor, and table plus predictor to spreads.
// Every stage is timed, logged and counted.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pable/go-nfl-spread/internal/aggregator"
	"github.com/pable/go-nfl-spread/internal/artifact"
	"github.com/pable/go-nfl-spread/internal/matchup"
	"github.com/pable/go-nfl-spread/internal/ml"
	"github.com/pable/go-nfl-spread/internal/model"
	"github.com/pable/go-nfl-spread/internal/rolling"
	"github.com/pable/go-nfl-spread/internal/storage"
	"github.com/pable/go-nfl-spread/pkg/logger"
	"github.com/pable/go-nfl-spread/pkg/metrics"
)

// Tables persists running-average tables and training-run history.
// *storage.DB implements it.
type Tables interface {
	SaveRunningAverages(ctx context.Context, version string, rows []model.RunningAverageRow) error
	LatestRunningAverages(ctx context.Context) (string, []model.RunningAverageRow, error)
	InsertTrainingRun(ctx context.Context, run storage.TrainingRun) error
}

// Pipeline runs the stages against a table store and an artifact store.
type Pipeline struct {
	tables    Tables
	artifacts artifact.Store
	log       logger.Logger
	metrics   *metrics.Manager
	now       func() time.Time
}

// New returns a Pipeline. A nil metrics manager gets a private one.
func New(tables Tables, artifacts artifact.Store, log logger.Logger, m *metrics.Manager) *Pipeline {
	if m == nil {
		m = metrics.NewManager()
	}
	return &Pipeline{
		tables:    tables,
		artifacts: artifacts,
		log:       log,
		metrics:   m,
		now:       time.Now,
	}
}

func (p *Pipeline) stage(ctx context.Context, name string, start time.Time, fields ...logger.Field) {
	d := time.Since(start)
	p.metrics.ObserveStage(name, d)
	p.log.Debug(ctx, "stage done", append(fields, logger.String("stage", name), logger.Duration("took", d))...)
}

// BuildTable aggregates plays into game-team rows and computes their
// leakage-free running averages.
func (p *Pipeline) BuildTable(ctx context.Context, plays []model.PlayRecord) ([]model.RunningAverageRow, error) {
	p.metrics.RecordPlaysLoaded(len(plays))

	start := time.Now()
	stats, err := aggregator.Aggregate(plays)
	if err != nil {
		return nil, fmt.Errorf("aggregate plays: %w", err)
	}
	p.stage(ctx, "aggregate", start, logger.Int("plays", len(plays)), logger.Int("game_rows", len(stats)))

	start = time.Now()
	rows, err := rolling.ComputeRunningAverages(stats)
	if err != nil {
		return nil, fmt.Errorf("running averages: %w", err)
	}
	p.stage(ctx, "running_averages", start, logger.Int("rows", len(rows)))
	p.metrics.SetGameRows(len(rows))
	return rows, nil
}

// TrainFromTable assembles the training table from rows and fits a predictor
// stamped with a fresh version and run id.
func (p *Pipeline) TrainFromTable(ctx context.Context, rows []model.RunningAverageRow, opts ml.Options) (*ml.Predictor, error) {
	start := time.Now()
	training, dropped := matchup.AssembleTrainingTable(rows)
	p.metrics.RecordTrainingTable(len(training), dropped)
	p.stage(ctx, "assemble", start, logger.Int("training_rows", len(training)), logger.Int("incomplete_games", dropped))
	if dropped > 0 {
		p.log.Warn(ctx, "dropped games with a missing side", logger.Int("games", dropped))
	}

	start = time.Now()
	pred, err := ml.Train(training, opts)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	trainedAt := p.now()
	pred.TrainedAt = trainedAt.UTC()
	pred.Version = artifact.NewVersion(trainedAt)
	pred.RunID = uuid.NewString()

	d := pred.Diagnostics
	p.metrics.RecordTraining(d.DroppedRows, d.MSE, d.MAE, d.R2, trainedAt)
	p.stage(ctx, "train", start,
		logger.Int("train_rows", d.TrainRows),
		logger.Int("test_rows", d.TestRows),
		logger.Float64("mse", d.MSE),
		logger.Float64("mae", d.MAE))
	return pred, nil
}

// SaveTable persists rows as a new table version and returns the version.
func (p *Pipeline) SaveTable(ctx context.Context, rows []model.RunningAverageRow) (string, error) {
	version := artifact.NewVersion(p.now())
	if err := p.tables.SaveRunningAverages(ctx, version, rows); err != nil {
		return "", fmt.Errorf("save running averages: %w", err)
	}
	p.log.Info(ctx, "saved running-average table", logger.String("version", version), logger.Int("rows", len(rows)))
	return version, nil
}

// TrainResult is the outcome of Train.
type TrainResult struct {
	TableVersion string
	Table        []model.RunningAverageRow
	Predictor    *ml.Predictor
}

// Train builds a table from plays, fits and encodes a predictor on it, and
// only then stores the table, the predictor and the run record. A failed fit
// leaves nothing behind.
func (p *Pipeline) Train(ctx context.Context, plays []model.PlayRecord, opts ml.Options) (*TrainResult, error) {
	rows, err := p.BuildTable(ctx, plays)
	if err != nil {
		return nil, err
	}
	pred, err := p.TrainFromTable(ctx, rows, opts)
	if err != nil {
		return nil, err
	}
	blob, err := artifact.Encode(pred)
	if err != nil {
		return nil, fmt.Errorf("encode predictor: %w", err)
	}
	tableVersion, err := p.SaveTable(ctx, rows)
	if err != nil {
		return nil, err
	}
	if err := p.artifacts.Put(ctx, artifact.KindPredictor, pred.Version, blob); err != nil {
		return nil, fmt.Errorf("save predictor: %w", err)
	}
	run := storage.TrainingRun{
		RunID:            pred.RunID,
		PredictorVersion: pred.Version,
		TableVersion:     tableVersion,
		TrainedAt:        pred.TrainedAt,
		Diagnostics:      pred.Diagnostics,
	}
	if err := p.tables.InsertTrainingRun(ctx, run); err != nil {
		return nil, err
	}
	p.log.Info(ctx, "trained predictor",
		logger.String("version", pred.Version),
		logger.String("run_id", pred.RunID),
		logger.String("table_version", tableVersion))
	return &TrainResult{TableVersion: tableVersion, Table: rows, Predictor: pred}, nil
}

// Model is a running-average table together with the predictor scored on it.
type Model struct {
	TableVersion string
	Table        []model.RunningAverageRow
	Predictor    *ml.Predictor
}

// Load reads the latest table and the latest predictor.
func (p *Pipeline) Load(ctx context.Context) (*Model, error) {
	tableVersion, rows, err := p.tables.LatestRunningAverages(ctx)
	if err != nil {
		return nil, err
	}
	var pred ml.Predictor
	version, err := artifact.LoadLatest(ctx, p.artifacts, artifact.KindPredictor, &pred)
	if err != nil {
		return nil, fmt.Errorf("load predictor: %w", err)
	}
	if pred.Version == "" {
		pred.Version = version
	}
	if err := pred.Validate(); err != nil {
		return nil, err
	}
	p.log.Debug(ctx, "loaded model",
		logger.String("table_version", tableVersion),
		logger.String("predictor_version", pred.Version))
	return &Model{TableVersion: tableVersion, Table: rows, Predictor: &pred}, nil
}

// Predict validates req, assembles its pairing from m's table and scores it.
// source labels the caller in metrics (cli, http, upcoming).
func (p *Pipeline) Predict(ctx context.Context, m *Model, req model.MatchupRequest, source string) (model.Prediction, error) {
	req.HomeTeam = model.NormalizeTeam(req.HomeTeam)
	req.AwayTeam = model.NormalizeTeam(req.AwayTeam)
	if err := model.ValidateMatchup(req.HomeTeam, req.AwayTeam); err != nil {
		p.metrics.RecordPredictionError("invalid_matchup")
		return model.Prediction{}, err
	}
	mu, err := matchup.AssembleMatchup(m.Table, req)
	if err != nil {
		p.metrics.RecordPredictionError(errorReason(err))
		return model.Prediction{}, err
	}
	pred := model.Prediction{
		Matchup:      mu,
		Spread:       m.Predictor.Predict(mu.Pairing),
		ModelVersion: m.Predictor.Version,
	}
	p.metrics.RecordPrediction(source)
	p.log.Debug(ctx, "predicted",
		logger.String("home", req.HomeTeam),
		logger.String("away", req.AwayTeam),
		logger.Float64("spread", pred.Spread))
	return pred, nil
}

// Failure is a matchup PredictAll could not score.
type Failure struct {
	Request model.MatchupRequest
	Err     error
}

// PredictAll scores every request. Requests that fail validation or lack
// data are returned as failures; the rest are still scored.
func (p *Pipeline) PredictAll(ctx context.Context, m *Model, reqs []model.MatchupRequest, source string) ([]model.Prediction, []Failure) {
	var preds []model.Prediction
	var failed []Failure
	for _, req := range reqs {
		pred, err := p.Predict(ctx, m, req, source)
		if err != nil {
			p.log.Warn(ctx, "cannot score matchup",
				logger.String("home", req.HomeTeam),
				logger.String("away", req.AwayTeam),
				logger.Error(err))
			failed = append(failed, Failure{Request: req, Err: err})
			continue
		}
		preds = append(preds, pred)
	}
	return preds, failed
}

// SaveMatchups stores a matchup list as a new artifact version.
func (p *Pipeline) SaveMatchups(ctx context.Context, reqs []model.MatchupRequest) (string, error) {
	version := artifact.NewVersion(p.now())
	if err := artifact.Save(ctx, p.artifacts, artifact.KindMatchups, version, reqs); err != nil {
		return "", fmt.Errorf("save matchups: %w", err)
	}
	p.log.Info(ctx, "saved matchups", logger.String("version", version), logger.Int("matchups", len(reqs)))
	return version, nil
}

// LatestMatchups loads the newest saved matchup list.
func (p *Pipeline) LatestMatchups(ctx context.Context) (string, []model.MatchupRequest, error) {
	var reqs []model.MatchupRequest
	version, err := artifact.LoadLatest(ctx, p.artifacts, artifact.KindMatchups, &reqs)
	if err != nil {
		return "", nil, err
	}
	return version, reqs, nil
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, model.ErrMissingData):
		return "missing_data"
	case errors.Is(err, model.ErrInvalidMatchup):
		return "invalid_matchup"
	}
	return "other"
}
