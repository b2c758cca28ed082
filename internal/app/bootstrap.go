package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/storage"
)

// snapshotKeep is the number of post-mortem dumps retained.
const snapshotKeep = 5

// Options are the command-line overrides applied over the config file.
type Options struct {
	ConfigPath string
	Workspace  string
	Listen     string
	LogLevel   string
}

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config    *infra.Config
	DB        *storage.Store
	Snapshots *storage.SnapshotManager
	WorkDir   string

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads config, installs the logger, takes the instance lock and opens the database.
func (b *Bootstrap) Initialize(opts Options) error {
	infra.LoadDotEnv(".env")

	// 1. Load Config (Dynamic Path Resolution)
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath(opts.ConfigPath))
	if err != nil {
		return err
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	b.Config = cfg
	infra.SetUserAgent(infra.UserAgentFor(cfg.App.Name, cfg.App.Version))

	// 2. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("🚀 Bootstrapping crypto dashboard...")

	// 3. Workspace + singleton lock
	workDir := infra.ResolveWorkspaceDir(opts.Workspace)
	dataDir := filepath.Join(workDir, "data")
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	b.WorkDir = workDir

	if secrets, err := infra.LoadSecretConfig(filepath.Join(workDir, "secrets", "keys.yaml")); err == nil {
		secrets.ApplyTo(cfg)
		slog.Info("🔑 Secret keys loaded")
	}

	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	// 4. Favorites database
	dbPath := filepath.Join(dataDir, cfg.Storage.DBFile)
	db, err := storage.NewStore(dbPath)
	if err != nil {
		b.Close()
		return err
	}
	b.DB = db
	b.Snapshots = storage.NewSnapshotManager(filepath.Join(workDir, "snapshots"), snapshotKeep)
	if snap, err := b.Snapshots.LoadLatest(); err != nil {
		slog.Warn("Failed to read post-mortem snapshots", slog.Any("error", err))
	} else if snap != nil {
		slog.Warn("⚠️  Previous run left a post-mortem snapshot",
			slog.Uint64("seq", snap.Seq),
			slog.String("reason", snap.Reason),
			slog.Time("at", time.Unix(snap.TsUnix, 0)))
	}
	slog.Info("✅ Store initialized (WAL-mode)", slog.String("path", dbPath))
	return nil
}

// LoadPreferences reads the persisted favorites. A corrupt value is logged
// and treated as absent, so the defaults apply.
func (b *Bootstrap) LoadPreferences(ctx context.Context) domain.PersistedPreferences {
	prefs, err := b.DB.LoadPreferences(ctx)
	switch {
	case errors.Is(err, storage.ErrCorruptPreferences):
		slog.Warn("Stored preferences are corrupt, using defaults", slog.Any("error", err))
		return domain.PersistedPreferences{}
	case err != nil:
		slog.Error("Failed to load preferences", slog.Any("error", err))
		return domain.PersistedPreferences{}
	}
	return prefs
}

// Close releases the database and the instance lock.
func (b *Bootstrap) Close() {
	if b.DB != nil {
		if err := b.DB.Close(); err != nil {
			slog.Error("Failed to close store", slog.Any("error", err))
		}
		b.DB = nil
	}
	if b.unlock != nil {
		b.unlock()
		b.unlock = nil
	}
}
