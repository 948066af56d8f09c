package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"remod/internal/config"
	"remod/internal/engine"
	"remod/internal/index"
	"remod/internal/logging"
)

var (
	setupOnce    sync.Once
	sharedConfig *config.Config
	sharedLogger *logging.Logger
	sharedLedger *index.Store
	sharedEngine *engine.Engine
	setupErr     error
)

// getEngine returns a shared Engine instance, lazily initialized on first
// use. Config load failures fall back to defaults; storage failures are
// fatal.
func getEngine() (*engine.Engine, *config.Config, *logging.Logger, error) {
	setupOnce.Do(func() {
		cfg, err := config.LoadConfig(rootFlag)
		if err != nil {
			cfg = config.DefaultConfig()
			cfg.Root = rootFlag
		}
		// Subcommand flag overrides, applied before the engine snapshots
		// its settings.
		if transformMode != "" {
			cfg.Transform.Mode = transformMode
		}
		if transformCacheDir != "" {
			cfg.Transform.CacheDir = transformCacheDir
		}
		sharedConfig = cfg

		level := cfg.Logging.Level
		if logLevelFlag != "" {
			level = logLevelFlag
		}
		format := cfg.Logging.Format
		if logFormatFlag != "" {
			format = logFormatFlag
		}
		sharedLogger = logging.NewLogger(logging.Config{
			Format: logging.Format(format),
			Level:  logging.LogLevel(level),
		})

		if err != nil {
			sharedLogger.Warn("Failed to load config, using defaults", map[string]interface{}{
				"error": err.Error(),
			})
		}

		if err := cfg.Validate(); err != nil {
			setupErr = fmt.Errorf("invalid configuration: %w", err)
			return
		}

		var ledger *index.Store
		if cfg.Index.Enabled {
			ledger, err = index.Open(configDir(cfg), sharedLogger)
			if err != nil {
				setupErr = fmt.Errorf("failed to open cache index: %w", err)
				return
			}
		}
		sharedLedger = ledger

		eng, err := engine.New(cfg, sharedLogger, engine.Options{Ledger: ledger})
		if err != nil {
			setupErr = fmt.Errorf("failed to create engine: %w", err)
			return
		}
		sharedEngine = eng
	})

	return sharedEngine, sharedConfig, sharedLogger, setupErr
}

// mustGetEngine returns the shared Engine or exits on error.
func mustGetEngine() (*engine.Engine, *config.Config, *logging.Logger) {
	eng, cfg, logger, err := getEngine()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing engine: %v\n", err)
		os.Exit(1)
	}
	return eng, cfg, logger
}

// getLedger returns the shared index store, initializing shared state if
// needed. Nil when the index is disabled.
func getLedger() (*index.Store, *config.Config, *logging.Logger, error) {
	_, cfg, logger, err := getEngine()
	return sharedLedger, cfg, logger, err
}

func configDir(cfg *config.Config) string {
	return filepath.Join(cfg.Root, config.ConfigDir)
}
