package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/email-crm-sync/internal/core"
	"github.com/mikey/email-crm-sync/internal/di"
	"github.com/mikey/email-crm-sync/internal/logging"
)

func main() {
	mode := flag.String("mode", "once", "Processing mode: once or monitor")
	interval := flag.Int("interval", 300, "Polling interval in seconds (monitor mode)")
	healthCheck := flag.Bool("health-check", false, "Verify connectivity and exit")
	verbose := flag.Bool("verbose", false, "Debug-level console output for the health check")
	flag.Parse()

	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	err = container.Invoke(func(
		logger *zap.Logger,
		processor *core.EmailProcessor,
		mailbox core.Mailbox,
		tracker core.ProcessedTracker,
	) error {
		defer logger.Sync()
		defer closeQuietly(logger, mailbox, tracker)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if *healthCheck {
			// Operator-facing run: readable console output instead of the
			// configured pipeline format.
			console, err := logging.InitConsoleLogger(*verbose, false)
			if err != nil {
				return err
			}
			defer console.Sync()

			if err := processor.HealthCheck(ctx); err != nil {
				console.Error("Health check failed", zap.Error(err))
				return err
			}
			console.Info("Health check passed")
			return nil
		}

		switch *mode {
		case "once":
			return runOnce(ctx, processor, logger)
		case "monitor":
			return runMonitor(ctx, processor, logger, time.Duration(*interval)*time.Second)
		default:
			return fmt.Errorf("unknown mode: %s", *mode)
		}
	})
	if err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// runOnce processes the current batch and exits non-zero when any email
// failed, so cron-style schedulers notice.
func runOnce(ctx context.Context, processor *core.EmailProcessor, logger *zap.Logger) error {
	report, err := processor.ProcessBatch(ctx)
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d emails failed", report.Failed, report.Failed+report.Processed)
	}
	return nil
}

// runMonitor polls the mailbox until interrupted. Per-run failures are
// logged, not fatal; the next poll retries the unfinished emails.
func runMonitor(ctx context.Context, processor *core.EmailProcessor, logger *zap.Logger, interval time.Duration) error {
	if err := processor.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check before monitoring failed: %w", err)
	}
	logger.Info("Monitoring mailbox", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := processor.ProcessBatch(ctx); err != nil {
			logger.Error("Processing run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			logger.Info("Shutting down")
			return nil
		case <-ticker.C:
		}
	}
}

func closeQuietly(logger *zap.Logger, closers ...interface{}) {
	for _, c := range closers {
		if closer, ok := c.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Warn("Failed to close resource", zap.Error(err))
			}
		}
	}
}
