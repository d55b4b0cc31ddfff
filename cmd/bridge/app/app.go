package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roman-kulish/rc-telemetry-bridge/internal/boot"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/sensors/sim"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/storage"
	"github.com/roman-kulish/rc-telemetry-bridge/internal/timebase"
)

const (
	storageDir = "data"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	clock := timebase.NewSystem()

	set, err := sim.New(&config.Sensors, clock)
	if err != nil {
		return fmt.Errorf("failed to create sensors: %w", err)
	}

	var options []func(*Orchestrator)
	if config.Storage.Enabled {
		store, dbPath, err := createStorage(&config.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}
		defer store.Close()

		sessionID, err := store.CreateSession(ctx, config.Link.Protocol.String(), config)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}

		logger.Info("recording flight log", slog.String("path", dbPath), slog.Int64("session", sessionID))
		options = append(options, WithRecorder(store, sessionID))
	}

	o, err := NewOrchestrator(config, set, clock, boot.NewFileFlag(config.Boot.FlagFile), logger, options...)
	if err != nil {
		return fmt.Errorf("failed to create bridge: %w", err)
	}

	return o.Run(ctx)
}

func createStorage(config *StorageConfig) (*storage.SqliteStore, string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	var dbPath string
	switch {
	case filepath.IsAbs(config.DataDirectory):
		dbPath = config.DataDirectory
	case config.DataDirectory != "":
		dbPath = filepath.Join(wd, config.DataDirectory)
	default:
		dbPath = filepath.Join(wd, storageDir)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
		}
		return nil, "", fmt.Errorf("checking storage directory '%s': %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, "", fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("flight_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.NewSqliteStore(dbPath), dbPath, nil
}
