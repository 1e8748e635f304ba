package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pable/go-nfl-spread/internal/artifact"
	"github.com/pable/go-nfl-spread/internal/ml"
	"github.com/pable/go-nfl-spread/internal/model"
)

// TableVersion describes one persisted running-average table.
type TableVersion struct {
	Version   string
	CreatedAt string
	RowCount  int
}

// TrainingRun records one training run and the artifacts it produced.
type TrainingRun struct {
	RunID            string
	PredictorVersion string
	TableVersion     string
	TrainedAt        time.Time
	ml.Diagnostics
}

// runningAvgColumns lists every running_averages column after version/seq,
// in the order used by inserts and selects.
func runningAvgColumns() []string {
	cols := []string{"game_id", "team", "week", "year", "home_team", "away_team", "home_spread"}
	for _, s := range model.Stats() {
		cols = append(cols, s.Column())
	}
	for _, s := range model.Stats() {
		cols = append(cols, s.AvgColumn())
	}
	return cols
}

func nullable(v float64) sql.NullFloat64 {
	if model.IsMissing(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullable(n sql.NullFloat64) float64 {
	if !n.Valid {
		return model.Missing()
	}
	return n.Float64
}

// SaveRunningAverages stores rows as a new table version. An existing version
// is never replaced.
func (db *DB) SaveRunningAverages(ctx context.Context, version string, rows []model.RunningAverageRow) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM table_versions WHERE version = ?", version).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: running averages %s", artifact.ErrExists, version)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO table_versions(version, created_at, row_count) VALUES (?, ?, ?)",
		version, time.Now().UTC().Format(time.RFC3339), len(rows)); err != nil {
		return fmt.Errorf("insert table version: %w", err)
	}

	cols := runningAvgColumns()
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO running_averages(version, seq, %s) VALUES (?, ?, %s)",
		strings.Join(cols, ", "), placeholders(len(cols))))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range rows {
		args := make([]any, 0, len(cols)+2)
		args = append(args, version, i, r.GameID, r.Team, r.Week, r.Year, r.HomeTeam, r.AwayTeam, nullable(r.HomeSpread))
		for _, v := range r.Stats {
			args = append(args, nullable(v))
		}
		for _, v := range r.Avg {
			args = append(args, nullable(v))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert running average %s/%s: %w", r.GameID, r.Team, err)
		}
	}
	return tx.Commit()
}

// RunningAverages loads the table stored under version in its original row order.
func (db *DB) RunningAverages(ctx context.Context, version string) ([]model.RunningAverageRow, error) {
	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s FROM running_averages WHERE version = ? ORDER BY seq",
		strings.Join(runningAvgColumns(), ", ")), version)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RunningAverageRow
	for rows.Next() {
		var r model.RunningAverageRow
		var spread sql.NullFloat64
		var stats, avgs [model.NumStats]sql.NullFloat64
		dest := []any{&r.GameID, &r.Team, &r.Week, &r.Year, &r.HomeTeam, &r.AwayTeam, &spread}
		for i := range stats {
			dest = append(dest, &stats[i])
		}
		for i := range avgs {
			dest = append(dest, &avgs[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		r.HomeSpread = fromNullable(spread)
		for i := range stats {
			r.Stats[i] = fromNullable(stats[i])
			r.Avg[i] = fromNullable(avgs[i])
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestRunningAverages loads the greatest table version.
func (db *DB) LatestRunningAverages(ctx context.Context) (string, []model.RunningAverageRow, error) {
	var version string
	err := db.conn.QueryRowContext(ctx, "SELECT version FROM table_versions ORDER BY version DESC LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return "", nil, fmt.Errorf("%w: no running-average table, run 'nflspread train' first", artifact.ErrNotFound)
	}
	if err != nil {
		return "", nil, err
	}
	rows, err := db.RunningAverages(ctx, version)
	if err != nil {
		return "", nil, fmt.Errorf("load running averages %s: %w", version, err)
	}
	return version, rows, nil
}

// ListTableVersions returns stored table versions, newest first.
func (db *DB) ListTableVersions(ctx context.Context) ([]TableVersion, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT version, created_at, row_count FROM table_versions ORDER BY version DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TableVersion
	for rows.Next() {
		var v TableVersion
		if err := rows.Scan(&v.Version, &v.CreatedAt, &v.RowCount); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ---- artifact.Store ----

// Put stores an artifact blob. Existing versions are never overwritten.
func (db *DB) Put(ctx context.Context, kind, version string, blob []byte) error {
	var n int
	if err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM artifacts WHERE kind = ? AND version = ?", kind, version).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %s %s", artifact.ErrExists, kind, version)
	}
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO artifacts(kind, version, created_at, payload) VALUES (?, ?, ?, ?)",
		kind, version, time.Now().UTC().Format(time.RFC3339), blob)
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

// Latest returns the greatest version of kind and its blob.
func (db *DB) Latest(ctx context.Context, kind string) (string, []byte, error) {
	var version string
	var blob []byte
	err := db.conn.QueryRowContext(ctx,
		"SELECT version, payload FROM artifacts WHERE kind = ? ORDER BY version DESC LIMIT 1", kind).
		Scan(&version, &blob)
	if err == sql.ErrNoRows {
		return "", nil, fmt.Errorf("%w: %s", artifact.ErrNotFound, kind)
	}
	if err != nil {
		return "", nil, err
	}
	return version, blob, nil
}

// Versions lists the stored versions of kind in ascending order.
func (db *DB) Versions(ctx context.Context, kind string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT version FROM artifacts WHERE kind = ? ORDER BY version", kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ---- training runs ----

// InsertTrainingRun records a completed training run.
func (db *DB) InsertTrainingRun(ctx context.Context, run TrainingRun) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO training_runs(run_id, predictor_version, table_version, trained_at,
			input_rows, dropped_rows, train_rows, test_rows, mse, mae, r2)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.PredictorVersion, run.TableVersion, run.TrainedAt.UTC().Format(time.RFC3339),
		run.InputRows, run.DroppedRows, run.TrainRows, run.TestRows,
		nullable(run.MSE), nullable(run.MAE), nullable(run.R2),
	)
	if err != nil {
		return fmt.Errorf("insert training run: %w", err)
	}
	return nil
}

// ListTrainingRuns returns recorded runs, newest first.
func (db *DB) ListTrainingRuns(ctx context.Context) ([]TrainingRun, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT run_id, predictor_version, table_version, trained_at,
		       input_rows, dropped_rows, train_rows, test_rows, mse, mae, r2
		FROM training_runs ORDER BY predictor_version DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrainingRun
	for rows.Next() {
		var r TrainingRun
		var trainedAt string
		var mse, mae, r2 sql.NullFloat64
		if err := rows.Scan(&r.RunID, &r.PredictorVersion, &r.TableVersion, &trainedAt,
			&r.InputRows, &r.DroppedRows, &r.TrainRows, &r.TestRows, &mse, &mae, &r2); err != nil {
			return nil, err
		}
		r.TrainedAt, _ = time.Parse(time.RFC3339, trainedAt)
		r.MSE, r.MAE, r.R2 = fromNullable(mse), fromNullable(mae), fromNullable(r2)
		out = append(out, r)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
