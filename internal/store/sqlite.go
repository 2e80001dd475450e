package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS intake_runs (
	id            TEXT PRIMARY KEY,
	session_id    TEXT,
	document_type TEXT NOT NULL,
	template_id   TEXT NOT NULL,
	stage         TEXT NOT NULL DEFAULT 'upload',
	status        TEXT NOT NULL DEFAULT 'active',
	strategy      TEXT,
	completion    REAL NOT NULL DEFAULT 0,
	result        TEXT,
	error         TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS intake_run_events (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES intake_runs(id),
	kind       TEXT NOT NULL,
	detail     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_intake_runs_status ON intake_runs(status);
CREATE INDEX IF NOT EXISTS idx_intake_runs_document_type ON intake_runs(document_type);
CREATE INDEX IF NOT EXISTS idx_intake_run_events_run_id ON intake_run_events(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.IntakeRun) error {
	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now
	if run.Status == "" {
		run.Status = model.RunStatusActive
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO intake_runs (id, session_id, document_type, template_id, stage, status, strategy, completion, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SessionID, run.DocumentType, run.TemplateID, string(run.Stage), string(run.Status), run.Strategy, run.Completion, now, now,
	)
	return eris.Wrap(err, "sqlite: create run")
}

func (s *SQLiteStore) UpdateRunStage(ctx context.Context, runID string, stage model.Stage, completion float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE intake_runs SET stage = ?, completion = ?, updated_at = ? WHERE id = ?`,
		string(stage), completion, time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "sqlite: update run stage")
}

func (s *SQLiteStore) UpdateRunResult(ctx context.Context, runID string, result *model.GenerationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE intake_runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(payload), string(model.RunStatusCompleted), time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "sqlite: update run result")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.IntakeRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, document_type, template_id, stage, status, strategy, completion, result, error, created_at, updated_at
		 FROM intake_runs WHERE id = ?`, runID)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.IntakeRun, error) {
	query := `SELECT id, session_id, document_type, template_id, stage, status, strategy, completion, result, error, created_at, updated_at
		 FROM intake_runs WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.DocumentType != "" {
		query += " AND document_type = ?"
		args = append(args, filter.DocumentType)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.IntakeRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) RecordEvent(ctx context.Context, runID, kind, detail string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO intake_run_events (id, run_id, kind, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), runID, kind, detail, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: record event")
}

func (s *SQLiteStore) ListEvents(ctx context.Context, runID string) ([]model.RunEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, kind, detail, created_at FROM intake_run_events WHERE run_id = ? ORDER BY created_at`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list events")
	}
	defer rows.Close() //nolint:errcheck

	var events []model.RunEvent
	for rows.Next() {
		var e model.RunEvent
		var detail sql.NullString
		if err := rows.Scan(&e.ID, &e.RunID, &e.Kind, &detail, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan event")
		}
		e.Detail = detail.String
		events = append(events, e)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: iterate events")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.IntakeRun, error) {
	var run model.IntakeRun
	var sessionID, strategy, result, errMsg sql.NullString
	var stage, status string
	if err := row.Scan(&run.ID, &sessionID, &run.DocumentType, &run.TemplateID, &stage, &status,
		&strategy, &run.Completion, &result, &errMsg, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	run.SessionID = sessionID.String
	run.Strategy = strategy.String
	run.Stage = model.Stage(stage)
	run.Status = model.RunStatus(status)
	run.Error = errMsg.String
	if result.Valid && result.String != "" {
		var gr model.GenerationResult
		if err := json.Unmarshal([]byte(result.String), &gr); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
		run.Result = &gr
	}
	return &run, nil
}
