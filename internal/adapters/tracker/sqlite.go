package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteTracker is a SQLite implementation of the ProcessedTracker interface.
// It is the default: a single local file survives restarts without any
// external service.
type SQLiteTracker struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteTracker creates a new SQLite tracker
func NewSQLiteTracker(dbPath string, logger *zap.Logger) (*SQLiteTracker, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS processed_messages (
			message_id TEXT PRIMARY KEY,
			record_id TEXT,
			processed_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteTracker{db: db, logger: logger}, nil
}

// IsProcessed reports whether the message id has already been handled.
func (t *SQLiteTracker) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	var one int
	err := t.db.QueryRowContext(ctx, `
		SELECT 1 FROM processed_messages WHERE message_id = ?
	`, messageID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query processed messages: %w", err)
	}
	return true, nil
}

// MarkProcessed records a handled message id and the record its note landed on.
// Re-marking an already-recorded id updates the row rather than failing.
func (t *SQLiteTracker) MarkProcessed(ctx context.Context, messageID, recordID string, processedAt time.Time) error {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO processed_messages (message_id, record_id, processed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET record_id = excluded.record_id, processed_at = excluded.processed_at
	`, messageID, recordID, processedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record processed message: %w", err)
	}

	t.logger.Debug("Recorded processed message",
		zap.String("message_id", messageID),
		zap.String("record_id", recordID))
	return nil
}

// Close closes the database connection.
func (t *SQLiteTracker) Close() error {
	return t.db.Close()
}
