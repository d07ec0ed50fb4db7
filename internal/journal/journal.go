// Package journal records agent status transitions in a sqlite database.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/axondata/go-launchagent"
)

const schema = `
CREATE TABLE IF NOT EXISTS transitions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	label       TEXT    NOT NULL,
	from_state  TEXT    NOT NULL,
	to_state    TEXT    NOT NULL,
	pid         INTEGER NOT NULL DEFAULT 0,
	exit_code   INTEGER NOT NULL DEFAULT 0,
	observed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS transitions_label ON transitions(label, observed_at);
`

// Transition is one observed change of an agent's state
type Transition struct {
	Label      string    `json:"label" yaml:"label"`
	From       string    `json:"from" yaml:"from"`
	To         string    `json:"to" yaml:"to"`
	PID        int       `json:"pid,omitempty" yaml:"pid,omitempty"`
	ExitCode   int       `json:"exit_code,omitempty" yaml:"exit_code,omitempty"`
	ObservedAt time.Time `json:"observed_at" yaml:"observed_at"`
}

// Diff compares two agent lists and returns the transitions between them, sorted
// by label. A label that appears counts as coming from not_loaded, one that
// disappears as going to not_loaded. A pid change on a running agent is a
// transition (the process restarted).
func Diff(prev, next []launchagent.LaunchAgent, at time.Time) []Transition {
	before := make(map[string]launchagent.AgentStatus, len(prev))
	for _, a := range prev {
		before[a.Label] = a.Status
	}

	var out []Transition
	seen := make(map[string]bool, len(next))
	for _, a := range next {
		seen[a.Label] = true
		old, ok := before[a.Label]
		if !ok {
			old = launchagent.NotLoaded()
		}
		if old == a.Status {
			continue
		}
		out = append(out, Transition{
			Label:      a.Label,
			From:       old.State.String(),
			To:         a.Status.State.String(),
			PID:        a.Status.PID,
			ExitCode:   a.Status.ExitCode,
			ObservedAt: at,
		})
	}

	for _, a := range prev {
		if seen[a.Label] || a.Status.State == launchagent.StateNotLoaded {
			continue
		}
		out = append(out, Transition{
			Label:      a.Label,
			From:       a.Status.State.String(),
			To:         launchagent.StateNotLoaded.String(),
			ObservedAt: at,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Journal is a sqlite-backed transition log
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal at path
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores transitions in one transaction
func (j *Journal) Record(ctx context.Context, ts []Transition) error {
	if len(ts) == 0 {
		return nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transitions (label, from_state, to_state, pid, exit_code, observed_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare journal insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, t := range ts {
		if _, err := stmt.ExecContext(ctx, t.Label, t.From, t.To, t.PID, t.ExitCode, t.ObservedAt.UnixNano()); err != nil {
			return fmt.Errorf("insert transition for %s: %w", t.Label, err)
		}
	}

	return tx.Commit()
}

// Recent returns up to limit transitions, newest first. An empty label means all agents.
func (j *Journal) Recent(ctx context.Context, label string, limit int) ([]Transition, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT label, from_state, to_state, pid, exit_code, observed_at FROM transitions`
	args := []any{}
	if label != "" {
		query += ` WHERE label = ?`
		args = append(args, label)
	}
	query += ` ORDER BY observed_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Transition
	for rows.Next() {
		var t Transition
		var at int64
		if err := rows.Scan(&t.Label, &t.From, &t.To, &t.PID, &t.ExitCode, &at); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.ObservedAt = time.Unix(0, at)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Hook returns a launchagent.RefreshHook that records the diff of every refresh.
// Write failures are logged; they never fail the refresh.
func (j *Journal) Hook() launchagent.RefreshHook {
	return func(prev, next []launchagent.LaunchAgent) {
		// The first refresh has nothing to compare against.
		if prev == nil {
			return
		}
		ts := Diff(prev, next, time.Now())
		if err := j.Record(context.Background(), ts); err != nil {
			log.Warn().Err(err).Int("transitions", len(ts)).Msg("journal write failed")
		}
	}
}
