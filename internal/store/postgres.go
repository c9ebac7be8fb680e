package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/econ-calendar/internal/db"
	"github.com/sells-group/econ-calendar/internal/model"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const eventsTable = "economic_events"

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS economic_events (
	external_id        TEXT PRIMARY KEY,
	currency           TEXT NOT NULL,
	country            TEXT,
	flag_code          TEXT,
	event_name         TEXT NOT NULL,
	impact             TEXT NOT NULL DEFAULT 'Low',
	event_date         DATE NOT NULL,
	time_utc           TIMESTAMPTZ,
	unix_timestamp     BIGINT,
	actual_value       TEXT,
	forecast_value     TEXT,
	previous_value     TEXT,
	actual_result_type TEXT,
	data_source        TEXT NOT NULL,
	source_url         TEXT,
	last_updated       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_economic_events_name_currency ON economic_events(event_name, currency);
CREATE INDEX IF NOT EXISTS idx_economic_events_lower_name ON economic_events(lower(event_name), currency);
CREATE INDEX IF NOT EXISTS idx_economic_events_date ON economic_events(event_date);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	kind        TEXT NOT NULL,
	source      TEXT,
	status      TEXT NOT NULL DEFAULT 'running',
	result      JSONB,
	error       TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT external_id FROM economic_events WHERE external_id = ANY($1)`, ids)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: existing ids")
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan existing id")
		}
		out[id] = true
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate existing ids")
}

// UpsertEvents merges events through a staged COPY. Callers dedupe by
// external_id first: one statement cannot touch the same row twice.
func (s *PostgresStore) UpsertEvents(ctx context.Context, events []model.Event) (int64, error) {
	rows := make([][]any, len(events))
	for i, e := range events {
		rows[i] = eventRow(e)
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        eventsTable,
		Columns:      eventColumns,
		ConflictKeys: []string{"external_id"},
		Merge:        true,
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert events")
	}
	return n, nil
}

func (s *PostgresStore) History(ctx context.Context, pairs []model.PairKey) ([]model.Event, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	names := make([]string, len(pairs))
	currencies := make([]string, len(pairs))
	for i, p := range pairs {
		names[i] = p.EventName
		currencies[i] = p.Currency
	}

	rows, err := s.pool.Query(ctx,
		eventSelect+` WHERE impact IS NOT NULL
	AND (event_name, currency) IN (SELECT * FROM unnest($1::text[], $2::text[]))
	ORDER BY last_updated DESC`,
		names, currencies,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: history")
	}
	return collectEvents(rows)
}

// FindEvent returns the most recent row for a cleaned name and currency, or
// nil when none exists.
func (s *PostgresStore) FindEvent(ctx context.Context, name, currency string) (*model.Event, error) {
	e, err := scanEvent(s.pool.QueryRow(ctx,
		eventSelect+` WHERE lower(event_name) = lower($1) AND currency = $2 ORDER BY event_date DESC, last_updated DESC LIMIT 1`,
		name, currency,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find event %s/%s", name, currency)
	}
	return &e, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, filter EventFilter) ([]model.Event, error) {
	query := eventSelect + ` WHERE event_date = $1`
	args := []any{dayOf(filter.Date)}
	if len(filter.Currencies) > 0 {
		query += ` AND currency = ANY($2)`
		args = append(args, filter.Currencies)
	}
	query += ` ORDER BY time_utc NULLS LAST, event_name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list events")
	}
	return collectEvents(rows)
}

func (s *PostgresStore) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM economic_events`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count events")
	}
	return n, nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, kind model.RunKind, source string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, kind, source, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, string(kind), source, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Kind:      kind,
		Source:    source,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
	}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, result *model.RunResult, runErr error) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}
	status, errText := runOutcome(runErr)

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, result = $2, error = $3, finished_at = $4 WHERE id = $5`,
		string(status), resultJSON, errText, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, source, status, result, error, created_at, finished_at FROM runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func collectEvents(rows pgx.Rows) ([]model.Event, error) {
	defer rows.Close()
	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan event")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate events")
}

func scanRun(row scanner) (model.Run, error) {
	var (
		r          model.Run
		kind       string
		status     string
		source     *string
		resultJSON []byte
		errText    *string
	)
	if err := row.Scan(&r.ID, &kind, &source, &status, &resultJSON, &errText, &r.CreatedAt, &r.FinishedAt); err != nil {
		return r, err
	}
	r.Kind = model.RunKind(kind)
	r.Status = model.RunStatus(status)
	if source != nil {
		r.Source = *source
	}
	if errText != nil {
		r.Error = *errText
	}
	if len(resultJSON) > 0 && string(resultJSON) != "null" {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return r, eris.Wrap(err, "unmarshal run result")
		}
	}
	return r, nil
}

func runOutcome(runErr error) (model.RunStatus, *string) {
	if runErr == nil {
		return model.RunStatusComplete, nil
	}
	msg := runErr.Error()
	return model.RunStatusFailed, &msg
}
