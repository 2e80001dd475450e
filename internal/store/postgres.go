package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/CEOAOVA/controlnotdev-sub000/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS intake_runs (
	id            TEXT PRIMARY KEY,
	session_id    TEXT,
	document_type TEXT NOT NULL,
	template_id   TEXT NOT NULL,
	stage         TEXT NOT NULL DEFAULT 'upload',
	status        TEXT NOT NULL DEFAULT 'active',
	strategy      TEXT,
	completion    DOUBLE PRECISION NOT NULL DEFAULT 0,
	result        JSONB,
	error         TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS intake_run_events (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES intake_runs(id),
	kind       TEXT NOT NULL,
	detail     TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_intake_runs_status ON intake_runs(status);
CREATE INDEX IF NOT EXISTS idx_intake_runs_document_type ON intake_runs(document_type);
CREATE INDEX IF NOT EXISTS idx_intake_run_events_run_id ON intake_run_events(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *model.IntakeRun) error {
	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now
	if run.Status == "" {
		run.Status = model.RunStatusActive
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO intake_runs (id, session_id, document_type, template_id, stage, status, strategy, completion, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.SessionID, run.DocumentType, run.TemplateID, string(run.Stage), string(run.Status), run.Strategy, run.Completion, now, now,
	)
	return eris.Wrap(err, "postgres: create run")
}

func (s *PostgresStore) UpdateRunStage(ctx context.Context, runID string, stage model.Stage, completion float64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE intake_runs SET stage = $1, completion = $2, updated_at = $3 WHERE id = $4`,
		string(stage), completion, time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "postgres: update run stage")
}

func (s *PostgresStore) UpdateRunResult(ctx context.Context, runID string, result *model.GenerationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE intake_runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		payload, string(model.RunStatusCompleted), time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "postgres: update run result")
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.IntakeRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, session_id, document_type, template_id, stage, status, strategy, completion, result, error, created_at, updated_at
		 FROM intake_runs WHERE id = $1`, runID)

	run, err := scanPgRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(err, "postgres: get run %s", runID)
		}
		return nil, eris.Wrap(err, "postgres: get run")
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.IntakeRun, error) {
	query := `SELECT id, session_id, document_type, template_id, stage, status, strategy, completion, result, error, created_at, updated_at
		 FROM intake_runs WHERE 1=1`
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.DocumentType != "" {
		args = append(args, filter.DocumentType)
		query += fmt.Sprintf(" AND document_type = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.IntakeRun
	for rows.Next() {
		run, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func (s *PostgresStore) RecordEvent(ctx context.Context, runID, kind, detail string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO intake_run_events (id, run_id, kind, detail, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), runID, kind, detail, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: record event")
}

func (s *PostgresStore) ListEvents(ctx context.Context, runID string) ([]model.RunEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, kind, detail, created_at FROM intake_run_events WHERE run_id = $1 ORDER BY created_at`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list events")
	}
	defer rows.Close()

	var events []model.RunEvent
	for rows.Next() {
		var e model.RunEvent
		var detail *string
		if err := rows.Scan(&e.ID, &e.RunID, &e.Kind, &detail, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan event")
		}
		if detail != nil {
			e.Detail = *detail
		}
		events = append(events, e)
	}
	return events, eris.Wrap(rows.Err(), "postgres: iterate events")
}

func scanPgRun(row pgx.Row) (*model.IntakeRun, error) {
	var run model.IntakeRun
	var sessionID, strategy, errMsg *string
	var stage, status string
	var result []byte
	if err := row.Scan(&run.ID, &sessionID, &run.DocumentType, &run.TemplateID, &stage, &status,
		&strategy, &run.Completion, &result, &errMsg, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, err
	}
	if sessionID != nil {
		run.SessionID = *sessionID
	}
	if strategy != nil {
		run.Strategy = *strategy
	}
	if errMsg != nil {
		run.Error = *errMsg
	}
	run.Stage = model.Stage(stage)
	run.Status = model.RunStatus(status)
	if len(result) > 0 {
		var gr model.GenerationResult
		if err := json.Unmarshal(result, &gr); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
		run.Result = &gr
	}
	return &run, nil
}
