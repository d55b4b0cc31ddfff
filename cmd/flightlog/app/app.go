package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/rc-telemetry-bridge/internal/storage"
)

func Run(ctx context.Context, config *Config, out io.Writer, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	if config.SessionID == 0 {
		sessions, err := store.Sessions(ctx)
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		return WriteSessions(out, sessions)
	}

	report, err := readSession(ctx, store, config.SessionID, logger)
	if err != nil {
		return err
	}
	return report.Write(out, config.Verbose)
}

func readSession(ctx context.Context, store storage.Store, sessionID int64, logger *slog.Logger) (*Report, error) {
	iter, err := store.ReadFrames(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("reading session %d: %w", sessionID, err)
	}
	defer iter.Close()

	logger.Info("reading frames", slog.Int64("session", sessionID), slog.String("protocol", iter.Session().Protocol))

	report := NewReport(iter.Session())
	for iter.Next(ctx) {
		report.Add(&iter.Current().Frame)
	}
	if err = iter.Error(); err != nil {
		return nil, err
	}

	logger.Info("finished reading frames",
		slog.String("frames", humanize.Comma(int64(report.Frames))),
		slog.String("violations", humanize.Comma(int64(len(report.Violations)))))

	return report, nil
}
