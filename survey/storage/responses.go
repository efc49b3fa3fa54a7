// Package storage persists survey answers. Rows are append-only: nothing
// in the bot ever updates or deletes a recorded response.
package storage

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/surveybot/core/logger"
	"log/slog"
)

// TimeLayout is the second-precision timestamp format used in created_at.
const TimeLayout = "2006-01-02 15:04:05"

// Response is one persisted (user, question, answer, timestamp) tuple.
type Response struct {
	ID        int64  `db:"id"`
	UserID    int64  `db:"user_id"`
	CreatedAt string `db:"created_at"`
	Question  string `db:"question"`
	Answer    string `db:"response"`
}

// identPattern is the allow-list for the table name. The name is
// interpolated into query strings, so anything outside this set is
// rejected at construction, long before a write can happen.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Responses stores survey answers in a single configured table.
type Responses struct {
	db    *sqlx.DB
	table string
}

// NewResponses validates the table identifier and binds the store to db.
func NewResponses(db *sqlx.DB, table string) (*Responses, error) {
	if db == nil {
		return nil, fmt.Errorf("storage: nil database handle")
	}
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("storage: table name %q is not a safe identifier", table)
	}
	return &Responses{db: db, table: table}, nil
}

// EnsureSchema creates the response table if it does not exist yet.
func (r *Responses) EnsureSchema(ctx context.Context) error {
	var ddl string
	switch r.db.DriverName() {
	case "postgres":
		ddl = fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s (id BIGSERIAL PRIMARY KEY, user_id BIGINT, created_at TEXT, question TEXT, response TEXT)",
			r.table,
		)
	default:
		ddl = fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY AUTOINCREMENT, user_id INTEGER, created_at TEXT, question TEXT, response TEXT)",
			r.table,
		)
	}
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("storage: ensure schema for %s: %w", r.table, err)
	}
	logger.STORE.Info("schema ready",
		slog.String("event", "store.schema"),
		slog.String("table", r.table),
	)
	return nil
}

// Store appends one answer row. It never updates existing rows.
func (r *Responses) Store(ctx context.Context, userID int64, question, answer string) error {
	createdAt := time.Now().Format(TimeLayout)
	query := r.db.Rebind(fmt.Sprintf(
		"INSERT INTO %s (user_id, created_at, question, response) VALUES (?, ?, ?, ?)",
		r.table,
	))

	start := time.Now()
	_, err := r.db.ExecContext(ctx, query, userID, createdAt, question, answer)
	if err != nil {
		logger.STORE.Error("store failed",
			slog.String("event", "store.insert"),
			slog.Int64("user_id", userID),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("storage: insert response: %w", err)
	}
	logger.STORE.Debug("response stored",
		slog.String("event", "store.insert"),
		slog.Int64("user_id", userID),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// ByUser returns every response recorded for the user, in insertion order.
func (r *Responses) ByUser(ctx context.Context, userID int64) ([]Response, error) {
	query := r.db.Rebind(fmt.Sprintf(
		"SELECT id, user_id, created_at, question, response FROM %s WHERE user_id = ? ORDER BY id",
		r.table,
	))

	var out []Response
	if err := r.db.SelectContext(ctx, &out, query, userID); err != nil {
		return nil, fmt.Errorf("storage: select responses: %w", err)
	}
	return out, nil
}
