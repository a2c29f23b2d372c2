// Package store keeps a queryable history of runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kingrea/procflow/internal/artifact"
	"github.com/kingrea/procflow/internal/process"
)

const timeLayout = time.RFC3339Nano

// Logger receives observer write failures.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// RunRecord is one row of the runs table.
type RunRecord struct {
	RunID          string
	ProcessID      string
	Version        string
	Status         process.RunStatus
	Success        bool
	StartedAt      time.Time
	FinishedAt     time.Time
	Duration       time.Duration
	FailureKind    process.FailureKind
	FailureMessage string
	Input          map[string]any
	Outputs        map[string]any
}

// SQLiteStore records runs, phases and artifacts. It implements
// process.Observer.
type SQLiteStore struct {
	db     *sql.DB
	logger Logger
}

var _ process.Observer = (*SQLiteStore)(nil)

// Open opens or creates the history database at path and applies the schema.
func Open(ctx context.Context, path string, logger Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if logger == nil {
		logger = nopLogger{}
	}
	s := &SQLiteStore{db: db, logger: logger}
	if err := s.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return s, nil
}

// Init creates the tables when missing.
func (s *SQLiteStore) Init(ctx context.Context) error {
	ddl := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA foreign_keys=ON;`,
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			process_id TEXT NOT NULL,
			version TEXT,
			status TEXT NOT NULL,
			success INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			duration_ms INTEGER,
			failure_kind TEXT,
			failure_message TEXT,
			input_json TEXT NOT NULL,
			outputs_json TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_process ON runs(process_id);`,
		`CREATE TABLE IF NOT EXISTS phases (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			name TEXT NOT NULL,
			effect_id TEXT,
			grp TEXT,
			status TEXT NOT NULL,
			reason TEXT,
			kind TEXT,
			error TEXT,
			artifacts INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_phases_run_id ON phases(run_id);`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			path TEXT NOT NULL,
			format TEXT,
			label TEXT,
			language TEXT,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_run_id ON artifacts(run_id);`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// OnRunStart implements process.Observer.
func (s *SQLiteStore) OnRunStart(info process.RunInfo) {
	if err := s.CreateRun(context.Background(), info); err != nil {
		s.logger.Printf("store: record run %s: %v", info.RunID, err)
	}
}

// OnPhase implements process.Observer.
func (s *SQLiteStore) OnPhase(info process.RunInfo, phase process.PhaseRecord) {
	if err := s.AddPhase(context.Background(), info.RunID, phase); err != nil {
		s.logger.Printf("store: record phase %s/%s: %v", info.RunID, phase.Name, err)
	}
}

// OnRunFinish implements process.Observer.
func (s *SQLiteStore) OnRunFinish(info process.RunInfo, result process.Result) {
	if err := s.FinishRun(context.Background(), info.RunID, result); err != nil {
		s.logger.Printf("store: finish run %s: %v", info.RunID, err)
	}
}

// CreateRun inserts a running row.
func (s *SQLiteStore) CreateRun(ctx context.Context, info process.RunInfo) error {
	input, err := encodeJSON(info.Input)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, process_id, version, status, started_at, input_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		info.RunID,
		info.ProcessID,
		info.Version,
		string(process.RunStatusRunning),
		info.StartedAt.UTC().Format(timeLayout),
		input,
	)
	return err
}

// AddPhase appends a phase record.
func (s *SQLiteStore) AddPhase(ctx context.Context, runID string, phase process.PhaseRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO phases (run_id, name, effect_id, grp, status, reason, kind, error, artifacts, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		phase.Name,
		phase.EffectID,
		phase.Group,
		string(phase.Status),
		phase.Reason,
		string(phase.Kind),
		phase.Error,
		phase.Artifacts,
		phase.StartedAt.UTC().Format(timeLayout),
		phase.FinishedAt.UTC().Format(timeLayout),
	)
	return err
}

// FinishRun stores the final status, outputs and artifacts of a run.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, result process.Result) error {
	outputs, err := encodeJSON(result.Outputs)
	if err != nil {
		return err
	}
	var kind, message string
	if result.Error != nil {
		kind, message = string(result.Error.Kind), result.Error.Message
	}
	finished := result.Metadata.Timestamp
	if finished.IsZero() {
		finished = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, success = ?, finished_at = ?, duration_ms = ?, failure_kind = ?, failure_message = ?, outputs_json = ?
		WHERE run_id = ?`,
		string(result.Status()),
		result.Success,
		finished.UTC().Format(timeLayout),
		result.Duration.Milliseconds(),
		kind,
		message,
		outputs,
		runID,
	); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO artifacts (run_id, position, path, format, label, language)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, a := range result.Artifacts {
		if _, err := stmt.ExecContext(ctx, runID, i, a.Path, a.Format, a.Label, a.Language); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT run_id, process_id, version, status, success, started_at, finished_at, duration_ms,
			failure_kind, failure_message, input_json, outputs_json
		FROM runs
		ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetRun returns one run.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, process_id, version, status, success, started_at, finished_at, duration_ms,
			failure_kind, failure_message, input_json, outputs_json
		FROM runs WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return RunRecord{}, fmt.Errorf("store: run %s not found: %w", runID, err)
	}
	return rec, err
}

// RunPhases returns the phases of a run in execution order.
func (s *SQLiteStore) RunPhases(ctx context.Context, runID string) ([]process.PhaseRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, effect_id, grp, status, reason, kind, error, artifacts, started_at, finished_at
		FROM phases WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []process.PhaseRecord
	for rows.Next() {
		var (
			p                 process.PhaseRecord
			effect, grp       sql.NullString
			reason, kind, msg sql.NullString
			status            string
			started, finished string
		)
		if err := rows.Scan(&p.Name, &effect, &grp, &status, &reason, &kind, &msg, &p.Artifacts, &started, &finished); err != nil {
			return nil, err
		}
		p.EffectID, p.Group, p.Reason, p.Error = effect.String, grp.String, reason.String, msg.String
		p.Status = process.PhaseStatus(status)
		p.Kind = process.FailureKind(kind.String)
		p.StartedAt = parseTime(started)
		p.FinishedAt = parseTime(finished)
		out = append(out, p)
	}
	return out, rows.Err()
}

// RunArtifacts returns the artifacts of a run in accumulation order.
func (s *SQLiteStore) RunArtifacts(ctx context.Context, runID string) ([]artifact.Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, format, label, language
		FROM artifacts WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []artifact.Artifact
	for rows.Next() {
		var (
			a                       artifact.Artifact
			format, label, language sql.NullString
		)
		if err := rows.Scan(&a.Path, &format, &label, &language); err != nil {
			return nil, err
		}
		a.Format, a.Label, a.Language = format.String, label.String, language.String
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var (
		rec           RunRecord
		version       sql.NullString
		status        string
		success       bool
		started       string
		finished      sql.NullString
		duration      sql.NullInt64
		kind, message sql.NullString
		inputJSON     string
		outputsJSON   sql.NullString
	)
	if err := row.Scan(&rec.RunID, &rec.ProcessID, &version, &status, &success, &started, &finished, &duration,
		&kind, &message, &inputJSON, &outputsJSON); err != nil {
		return RunRecord{}, err
	}
	rec.Version = version.String
	rec.Status = process.RunStatus(status)
	rec.Success = success
	rec.StartedAt = parseTime(started)
	rec.FinishedAt = parseTime(finished.String)
	rec.Duration = time.Duration(duration.Int64) * time.Millisecond
	rec.FailureKind = process.FailureKind(kind.String)
	rec.FailureMessage = message.String
	rec.Input = decodeJSON(inputJSON)
	rec.Outputs = decodeJSON(outputsJSON.String)
	return rec, nil
}

func encodeJSON(value map[string]any) (string, error) {
	if value == nil {
		return "{}", nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("store: encode json: %w", err)
	}
	return string(data), nil
}

func decodeJSON(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
