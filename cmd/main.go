package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pkgsort/catalog"
	"pkgsort/config"
	"pkgsort/logger"
	"pkgsort/output"
	"pkgsort/pipeline"
	"pkgsort/tracing"
	"pkgsort/transfer"
	"pkgsort/update"
	"pkgsort/version"
)

func main() {
	if err := tracing.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start trace: %v\n", err)
	} else {
		defer tracing.Stop()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel)

	if latest, notes, newer, err := update.CheckForUpdate(version.Version); err == nil && newer {
		if strings.Contains(strings.ToLower(notes), "security") {
			logger.Warnf("Update available: %s -> %s (security fixes included)", version.Version, latest)
		} else {
			logger.Infof("Update available: %s -> %s", version.Version, latest)
		}
	}

	if err := run(cfg); err != nil {
		logger.Fatalf("%v", err)
	}

	logger.Info("Done.")
}

// run executes the whole batch. The report writer is closed on every return
// path so even a failed run leaves a flushed, readable report behind.
func run(cfg *config.Config) error {
	startTime := time.Now()

	writer, err := output.New(cfg.ReportFile, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize report: %w", err)
	}
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go handleSignalEvent(cancel, sigChan)

	records, err := catalog.Load(cfg.TSVDir)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	logger.Infof("Loaded %d catalog record(s) from %s", len(records), cfg.TSVDir)

	res, err := pipeline.Run(ctx, cfg, records, writer)
	if err != nil {
		return fmt.Errorf("matching failed: %w", err)
	}

	stats, err := transfer.Run(ctx, cfg, res.Plans, writer)
	if err != nil {
		return fmt.Errorf("transfer failed: %w", err)
	}

	verb := "move"
	if cfg.Copying() {
		verb = "copy"
	}
	for _, path := range res.Unhandled {
		logger.Warnf("Couldn't %s %s because it was not found in the catalog", verb, path)
	}

	writer.WriteMetrics(output.Metrics{
		StartTime:        startTime.UTC().Format(time.RFC3339),
		EndTime:          time.Now().UTC().Format(time.RFC3339),
		FilesFound:       res.FilesFound,
		FilesMatched:     len(res.Plans),
		FilesUnhandled:   len(res.Unhandled),
		FilesSkipped:     res.Skipped,
		Transferred:      stats.Transferred,
		SkippedExisting:  stats.SkippedExisting,
		BytesTransferred: stats.BytesTransferred,
	})

	return nil
}

func handleSignalEvent(cancelFunc context.CancelFunc, sigChan chan os.Signal) {
	<-sigChan
	logger.Info("Interrupt signal received. Shutting down...")
	cancelFunc()
}
