// Package journal keeps a sqlite record of every run and its per-event
// outcomes, so results stay queryable across runs long after the JSON
// artifacts were overwritten.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"flowscrape/internal/scrapers/flowagility"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

type Journal struct {
	db *sql.DB
}

// Open connects to the journal database and applies the schema. A
// plain path opens an embedded sqlite file, a url picks the libsql
// driver for a hosted database.
func Open(ctx context.Context, dsn string) (*Journal, error) {
	driver := "sqlite"
	if strings.Contains(dsn, "://") {
		driver = "libsql"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// sqlite takes one writer at a time, WAL keeps readers unblocked
	db.SetMaxOpenConns(1)
	if driver == "sqlite" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set journal mode: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// StartRun opens a journal entry for one invocation.
func (j *Journal) StartRun(ctx context.Context, stage string) (*Run, error) {
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (stage, started_at) VALUES (?, ?)`,
		stage, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}
	return &Run{journal: j, id: id}, nil
}

type Run struct {
	journal *Journal
	id      int64
}

func (r *Run) ID() int64 {
	return r.id
}

// RecordEvent upserts one event outcome. Errors only log, the journal
// never fails the scrape.
func (r *Run) RecordEvent(ctx context.Context, ev flowagility.DetailedEvent, took time.Duration) {
	_, err := r.journal.db.ExecContext(ctx, `
		INSERT INTO event_outcomes (run_id, event_id, nombre, status, participants, duration_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, event_id) DO UPDATE SET
			status = excluded.status,
			participants = excluded.participants,
			duration_ms = excluded.duration_ms,
			recorded_at = excluded.recorded_at`,
		r.id, ev.ID, ev.Nombre, ev.ParticipantesInfo, ev.NumeroParticipantes,
		took.Milliseconds(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		slog.WarnContext(ctx, "journal write failed", "event", ev.ID, "error", err)
	}
}

// Finish stamps the run's end time and totals.
func (r *Run) Finish(ctx context.Context, events, participants int) error {
	_, err := r.journal.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, events = ?, participants = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), events, participants, r.id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

type RunInfo struct {
	ID        int64
	Stage     string
	StartedAt time.Time
	// zero while the run is still going
	FinishedAt   time.Time
	Events       int
	Participants int
}

// History lists the most recent runs, newest first.
func (j *Journal) History(ctx context.Context, limit int) ([]RunInfo, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, stage, started_at, COALESCE(finished_at, ''), events, participants
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query run history: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var info RunInfo
		var started, finished string
		if err := rows.Scan(&info.ID, &info.Stage, &started, &finished, &info.Events, &info.Participants); err != nil {
			return nil, fmt.Errorf("scan run history: %w", err)
		}
		info.StartedAt, _ = time.Parse(time.RFC3339, started)
		if finished != "" {
			info.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

type Outcome struct {
	RunID        int64
	EventID      string
	Nombre       string
	Status       string
	Participants int
	Duration     time.Duration
}

// Outcomes lists the per-event outcomes of one run in processing
// order.
func (j *Journal) Outcomes(ctx context.Context, runID int64) ([]Outcome, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, event_id, nombre, status, participants, duration_ms
		FROM event_outcomes WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var o Outcome
		var ms int64
		if err := rows.Scan(&o.RunID, &o.EventID, &o.Nombre, &o.Status, &o.Participants, &ms); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, o)
	}
	return out, rows.Err()
}
