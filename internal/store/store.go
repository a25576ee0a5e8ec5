// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists investigations, their event logs, and their
// findings in SQLite. Findings are indexed with FTS4 for full-text search
// across investigations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/investigator/internal/events"
	"github.com/pdiddy/investigator/pkg/types"
)

const (
	dbFile    = "investigator.db"
	exportDir = "exports"
)

// ErrNotFound is returned when an investigation does not exist.
var ErrNotFound = errors.New("investigation not found")

// Store manages the investigator SQLite database.
type Store struct {
	db  *sql.DB
	dir string
}

// Open opens or creates dir/investigator.db and its schema.
func Open(cfg types.StoreConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = types.DefaultConfig().Store.Dir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: dir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the directory holding the database and exports.
func (s *Store) Dir() string { return s.dir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS investigations (
			id TEXT PRIMARY KEY,
			prompt TEXT NOT NULL,
			status TEXT NOT NULL,
			phase TEXT,
			cost_usd REAL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			data TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			investigation_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			id TEXT NOT NULL,
			type TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			data TEXT,
			PRIMARY KEY (investigation_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS findings (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			investigation_id TEXT NOT NULL REFERENCES investigations(id) ON DELETE CASCADE,
			hypothesis_id TEXT,
			title TEXT NOT NULL,
			detail TEXT,
			evidence TEXT,
			evidence_type TEXT,
			evidence_level INTEGER,
			source_type TEXT,
			source_id TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_investigation ON findings(investigation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_investigations_created ON investigations(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='findings_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE findings_fts USING fts4(content="findings", title, detail, evidence)`,
		`CREATE TRIGGER findings_bd BEFORE DELETE ON findings BEGIN
			DELETE FROM findings_fts WHERE docid=old.rowid;
		END`,
		`CREATE TRIGGER findings_bu BEFORE UPDATE ON findings BEGIN
			DELETE FROM findings_fts WHERE docid=old.rowid;
		END`,
		`CREATE TRIGGER findings_ai AFTER INSERT ON findings BEGIN
			INSERT INTO findings_fts(docid, title, detail, evidence) VALUES (new.rowid, new.title, new.detail, new.evidence);
		END`,
		`CREATE TRIGGER findings_au AFTER UPDATE ON findings BEGIN
			INSERT INTO findings_fts(docid, title, detail, evidence) VALUES (new.rowid, new.title, new.detail, new.evidence);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// Save upserts inv and replaces its indexed findings in one transaction.
func (s *Store) Save(ctx context.Context, inv *types.Investigation) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encoding investigation %s: %w", inv.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO investigations (id, prompt, status, phase, cost_usd, created_at, updated_at, data)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			prompt=excluded.prompt, status=excluded.status, phase=excluded.phase,
			cost_usd=excluded.cost_usd, updated_at=excluded.updated_at, data=excluded.data`,
		inv.ID, inv.Prompt, string(inv.Status), string(inv.Phase), inv.Cost.TotalCostUSD,
		formatTime(inv.CreatedAt), formatTime(inv.UpdatedAt), string(data),
	)
	if err != nil {
		return fmt.Errorf("upserting investigation %s: %w", inv.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM findings WHERE investigation_id = ?`, inv.ID); err != nil {
		return fmt.Errorf("deleting old findings: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO findings (id, investigation_id, hypothesis_id, title, detail, evidence,
			evidence_type, evidence_level, source_type, source_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range inv.Findings {
		_, err := stmt.ExecContext(ctx,
			f.ID, inv.ID, f.HypothesisID, f.Title, f.Detail, f.Evidence,
			string(f.EvidenceType), f.EvidenceLevel, f.SourceType, f.SourceID,
		)
		if err != nil {
			return fmt.Errorf("inserting finding %s: %w", f.ID, err)
		}
	}
	return tx.Commit()
}

// Load returns the stored investigation, or ErrNotFound.
func (s *Store) Load(ctx context.Context, id string) (*types.Investigation, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM investigations WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading investigation %s: %w", id, err)
	}
	var inv types.Investigation
	if err := json.Unmarshal([]byte(data), &inv); err != nil {
		return nil, fmt.Errorf("decoding investigation %s: %w", id, err)
	}
	return &inv, nil
}

// Summary is one row of List.
type Summary struct {
	ID        string                    `json:"id" yaml:"id"`
	Prompt    string                    `json:"prompt" yaml:"prompt"`
	Status    types.InvestigationStatus `json:"status" yaml:"status"`
	Phase     types.Phase               `json:"phase" yaml:"phase"`
	CostUSD   float64                   `json:"cost_usd" yaml:"cost_usd"`
	CreatedAt time.Time                 `json:"created_at" yaml:"created_at"`
}

// List returns the most recent investigations first. A non-positive limit
// returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt, status, phase, cost_usd, created_at FROM investigations
		 ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing investigations: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			phase   sql.NullString
			cost    sql.NullFloat64
			created string
		)
		if err := rows.Scan(&sum.ID, &sum.Prompt, &sum.Status, &phase, &cost, &created); err != nil {
			return nil, fmt.Errorf("scanning investigation: %w", err)
		}
		sum.Phase = types.Phase(phase.String)
		sum.CostUSD = cost.Float64
		sum.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// AppendEvents stores events. Events already stored under the same
// investigation and sequence number are ignored, so replays are safe.
func (s *Store) AppendEvents(ctx context.Context, evs ...events.Event) error {
	if len(evs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO events (investigation_id, seq, id, type, timestamp, data)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range evs {
		_, err := stmt.ExecContext(ctx,
			ev.InvestigationID, ev.Seq, ev.ID, string(ev.Type), formatTime(ev.Timestamp), string(ev.Data))
		if err != nil {
			return fmt.Errorf("inserting event %d: %w", ev.Seq, err)
		}
	}
	return tx.Commit()
}

// Events returns the stored events of an investigation with Seq greater
// than after, in order.
func (s *Store) Events(ctx context.Context, investigationID string, after int64) ([]events.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, type, timestamp, data FROM events
		 WHERE investigation_id = ? AND seq > ? ORDER BY seq`, investigationID, after)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		ev := events.Event{InvestigationID: investigationID}
		var (
			ts   string
			data sql.NullString
		)
		if err := rows.Scan(&ev.Seq, &ev.ID, &ev.Type, &ts, &data); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		ev.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		if data.Valid && data.String != "" {
			ev.Data = json.RawMessage(data.String)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Follow persists every event of log as it is appended, until the log is
// closed and drained or ctx is done. It returns the number of events
// stored.
func (s *Store) Follow(ctx context.Context, log *events.Log) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	n := 0
	for ev := range log.Stream(ctx, 0) {
		if err := s.AppendEvents(ctx, ev); err != nil {
			return n, err
		}
		n++
	}
	return n, ctx.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
