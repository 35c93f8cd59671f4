package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"moneymarket/core/events"
)

// Journal appends every market event to a sqlite table. It implements the
// events.Emitter interface so it can be fanned in next to other sinks; write
// failures are logged, never propagated into the operation that emitted the
// event.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Record is one journaled event.
type Record struct {
	ID        string
	Type      string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// NewJournal opens (or creates) the journal at path. Use ":memory:" for an
// ephemeral journal.
func NewJournal(path string, logger *slog.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	journal := &Journal{db: db, logger: logger}
	if err := journal.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return journal, nil
}

func (j *Journal) init() error {
	schema := `CREATE TABLE IF NOT EXISTS events (
        id TEXT PRIMARY KEY,
        type TEXT NOT NULL,
        payload BLOB NOT NULL,
        created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
    );`
	_, err := j.db.Exec(schema)
	return err
}

// Emit implements the events.Emitter interface.
func (j *Journal) Emit(event events.Event) {
	if j == nil || j.db == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		j.logger.Error("audit journal: marshal event", "type", event.EventType(), "error", err)
		return
	}
	_, err = j.db.Exec(
		`INSERT INTO events (id, type, payload, created_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), event.EventType(), payload, time.Now().UTC(),
	)
	if err != nil {
		j.logger.Error("audit journal: append event", "type", event.EventType(), "error", err)
	}
}

// Events returns the most recent records, newest first.
func (j *Journal) Events(ctx context.Context, limit int) ([]Record, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, type, payload, created_at FROM events ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var record Record
		if err := rows.Scan(&record.ID, &record.Type, &record.Payload, &record.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}
