package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/email-crm-sync/internal/adapters/tracker"
	"github.com/mikey/email-crm-sync/internal/config"
	"github.com/mikey/email-crm-sync/internal/core"
)

// TrackerFactory creates processed-message trackers based on configuration
type TrackerFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTrackerFactory creates a new tracker factory
func NewTrackerFactory(cfg *config.Config, logger *zap.Logger) *TrackerFactory {
	return &TrackerFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTracker creates a processed-message tracker based on the configuration
func (f *TrackerFactory) CreateTracker() (core.ProcessedTracker, error) {
	trackerType := f.cfg.GetString("tracker.type")

	switch trackerType {
	case "memory":
		return tracker.NewMemoryTracker(f.logger), nil
	case "sqlite":
		sqlitePath := f.cfg.GetString("tracker.sqlite_path")
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return tracker.NewSQLiteTracker(sqlitePath, f.logger)
	case "mysql":
		mysqlDSN := f.cfg.GetString("tracker.mysql_dsn")
		return tracker.NewMySQLTracker(mysqlDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported tracker type: %s", trackerType)
	}
}
