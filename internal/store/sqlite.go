package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/econ-calendar/internal/model"
)

var _ Store = (*SQLiteStore)(nil)

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
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS economic_events (
	external_id        TEXT PRIMARY KEY,
	currency           TEXT NOT NULL,
	country            TEXT,
	flag_code          TEXT,
	event_name         TEXT NOT NULL,
	impact             TEXT NOT NULL DEFAULT 'Low',
	event_date         DATE NOT NULL,
	time_utc           DATETIME,
	unix_timestamp     INTEGER,
	actual_value       TEXT,
	forecast_value     TEXT,
	previous_value     TEXT,
	actual_result_type TEXT,
	data_source        TEXT NOT NULL,
	source_url         TEXT,
	last_updated       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_economic_events_name_currency ON economic_events(event_name, currency);
CREATE INDEX IF NOT EXISTS idx_economic_events_date ON economic_events(event_date);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	source      TEXT,
	status      TEXT NOT NULL DEFAULT 'running',
	result      TEXT,
	error       TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// sqliteHistoryChunk bounds the number of (name, currency) pairs per query.
const sqliteHistoryChunk = 200

var sqliteUpsert = buildSQLiteUpsert()

func buildSQLiteUpsert() string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(eventColumns)), ", ")
	var sets []string
	for _, c := range eventColumns[1:] {
		sets = append(sets, fmt.Sprintf("%s = COALESCE(excluded.%s, economic_events.%s)", c, c, c))
	}
	return fmt.Sprintf(
		"INSERT INTO economic_events (%s) VALUES (%s) ON CONFLICT(external_id) DO UPDATE SET %s",
		strings.Join(eventColumns, ", "), placeholders, strings.Join(sets, ", "),
	)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT external_id FROM economic_events WHERE external_id IN (` + placeholders(len(ids)) + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: existing ids")
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan existing id")
		}
		out[id] = true
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate existing ids")
}

func (s *SQLiteStore) UpsertEvents(ctx context.Context, events []model.Event) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close() //nolint:errcheck

	var affected int64
	for _, e := range events {
		res, err := stmt.ExecContext(ctx, eventRow(e)...)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert event %s", e.ExternalID)
		}
		n, _ := res.RowsAffected()
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert")
	}
	return affected, nil
}

func (s *SQLiteStore) History(ctx context.Context, pairs []model.PairKey) ([]model.Event, error) {
	var out []model.Event
	for start := 0; start < len(pairs); start += sqliteHistoryChunk {
		end := min(start+sqliteHistoryChunk, len(pairs))
		chunk := pairs[start:end]

		clauses := make([]string, len(chunk))
		args := make([]any, 0, 2*len(chunk))
		for i, p := range chunk {
			clauses[i] = "(event_name = ? AND currency = ?)"
			args = append(args, p.EventName, p.Currency)
		}
		query := eventSelect + ` WHERE impact IS NOT NULL AND (` + strings.Join(clauses, " OR ") + `) ORDER BY last_updated DESC`

		events, err := s.queryEvents(ctx, query, args...)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: history")
		}
		out = append(out, events...)
	}
	return out, nil
}

func (s *SQLiteStore) FindEvent(ctx context.Context, name, currency string) (*model.Event, error) {
	e, err := scanEvent(s.db.QueryRowContext(ctx,
		eventSelect+` WHERE lower(event_name) = lower(?) AND currency = ? ORDER BY event_date DESC, last_updated DESC LIMIT 1`,
		name, currency,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find event %s/%s", name, currency)
	}
	return &e, nil
}

func (s *SQLiteStore) ListEvents(ctx context.Context, filter EventFilter) ([]model.Event, error) {
	query := eventSelect + ` WHERE event_date = ?`
	args := []any{dayOf(filter.Date)}
	if len(filter.Currencies) > 0 {
		query += ` AND currency IN (` + placeholders(len(filter.Currencies)) + `)`
		for _, c := range filter.Currencies {
			args = append(args, c)
		}
	}
	query += ` ORDER BY time_utc IS NULL, time_utc, event_name`

	events, err := s.queryEvents(ctx, query, args...)
	return events, eris.Wrap(err, "sqlite: list events")
}

func (s *SQLiteStore) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM economic_events`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count events")
	}
	return n, nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, kind model.RunKind, source string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, source, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(kind), source, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Kind:      kind,
		Source:    source,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, result *model.RunResult, runErr error) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}
	status, errText := runOutcome(runErr)

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, result = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), string(resultJSON), errText, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, source, status, result, error, created_at, finished_at FROM runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) queryEvents(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, eris.Wrap(err, "scan event")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
