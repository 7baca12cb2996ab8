// Package audit persists the session decision log to SQLite. The
// workflow treats it as fire-and-forget: failures become alerts, never
// blocked cycles.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"tradedesk/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id              TEXT PRIMARY KEY,
	market          TEXT NOT NULL,
	instrument      TEXT NOT NULL,
	initial_balance REAL NOT NULL,
	started_at      TIMESTAMP NOT NULL,
	created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS agent_decisions (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL REFERENCES sessions(id),
	step          TEXT NOT NULL,
	phase         TEXT NOT NULL,
	input_summary TEXT NOT NULL DEFAULT '',
	output        TEXT NOT NULL DEFAULT '{}',
	status        TEXT NOT NULL,
	recorded_at   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_session ON agent_decisions(session_id, recorded_at);
`

// Store is a SQLite-backed core.AuditStore. The process entry point
// owns its lifecycle; steps receive it injected.
type Store struct {
	db *sql.DB
}

var _ core.AuditStore = (*Store)(nil)

// Open opens (creating if needed) the audit database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, core.ErrPersistence(core.CodeAuditOpenFailed, "creating audit directory").WithCause(err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, core.ErrPersistence(core.CodeAuditOpenFailed, "opening audit database").WithCause(err)
	}

	// The sqlite driver serializes writes; one connection avoids
	// SQLITE_BUSY churn under WAL.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, core.ErrPersistence(core.CodeAuditOpenFailed, "applying audit schema").WithCause(err)
	}

	return &Store{db: db}, nil
}

// EnsureSession creates the session record if it does not exist yet.
// Idempotent: repeated calls for the same id are no-ops.
func (s *Store) EnsureSession(ctx context.Context, sessionID string, meta core.SessionMeta) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, market, instrument, initial_balance, started_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		sessionID, meta.Market, meta.Instrument, meta.InitialBalance, meta.StartTime.UTC())
	if err != nil {
		return core.ErrPersistence(core.CodeAuditWriteFailed, "inserting session record").WithCause(err)
	}
	return nil
}

// AppendDecision appends one step's decision record.
func (s *Store) AppendDecision(ctx context.Context, rec core.DecisionRecord) error {
	output := "{}"
	if rec.Output != nil {
		buf, err := json.Marshal(rec.Output)
		if err != nil {
			return core.ErrPersistence(core.CodeAuditWriteFailed, "encoding decision output").WithCause(err)
		}
		output = string(buf)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_decisions (session_id, step, phase, input_summary, output, status, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.StepID.String(), rec.Phase.String(), rec.InputSummary, output, rec.Status, rec.Timestamp.UTC())
	if err != nil {
		return core.ErrPersistence(core.CodeAuditWriteFailed, "inserting decision record").WithCause(err)
	}
	return nil
}

// Decision is a persisted decision row, as read back.
type Decision struct {
	StepID       core.StepID
	Phase        core.Phase
	InputSummary string
	Output       map[string]any
	Status       string
}

// Decisions reads back the decision log for a session in record order.
func (s *Store) Decisions(ctx context.Context, sessionID string) ([]Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step, phase, input_summary, output, status
		FROM agent_decisions
		WHERE session_id = ?
		ORDER BY id`,
		sessionID)
	if err != nil {
		return nil, core.ErrPersistence(core.CodeAuditWriteFailed, "querying decisions").WithCause(err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		var step, phase, rawOutput string
		if err := rows.Scan(&step, &phase, &d.InputSummary, &rawOutput, &d.Status); err != nil {
			return nil, core.ErrPersistence(core.CodeAuditWriteFailed, "scanning decision row").WithCause(err)
		}
		d.StepID = core.StepID(step)
		d.Phase = core.Phase(phase)
		if err := json.Unmarshal([]byte(rawOutput), &d.Output); err != nil {
			return nil, core.ErrPersistence(core.CodeAuditWriteFailed,
				fmt.Sprintf("decoding output for step %s", step)).WithCause(err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SessionCount returns the number of recorded sessions.
func (s *Store) SessionCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n)
	if err != nil {
		return 0, core.ErrPersistence(core.CodeAuditWriteFailed, "counting sessions").WithCause(err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
