package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLTracker is a MySQL implementation of the ProcessedTracker interface,
// for deployments where several sync instances share one ledger.
type MySQLTracker struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLTracker creates a new MySQL tracker
func NewMySQLTracker(dsn string, logger *zap.Logger) (*MySQLTracker, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS processed_messages (
			message_id VARCHAR(255) PRIMARY KEY,
			record_id VARCHAR(64),
			processed_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLTracker{db: db, logger: logger}, nil
}

// IsProcessed reports whether the message id has already been handled.
func (t *MySQLTracker) IsProcessed(ctx context.Context, messageID string) (bool, error) {
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
func (t *MySQLTracker) MarkProcessed(ctx context.Context, messageID, recordID string, processedAt time.Time) error {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO processed_messages (message_id, record_id, processed_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE record_id = VALUES(record_id), processed_at = VALUES(processed_at)
	`, messageID, recordID, processedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record processed message: %w", err)
	}

	t.logger.Debug("Recorded processed message",
		zap.String("message_id", messageID),
		zap.String("record_id", recordID))
	return nil
}

// Close closes the database connection.
func (t *MySQLTracker) Close() error {
	return t.db.Close()
}
