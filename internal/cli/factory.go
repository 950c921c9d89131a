package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/vine"
	"github.com/aretw0/vine/pkg/adapters/catalog"
	"github.com/aretw0/vine/pkg/adapters/file"
	"github.com/aretw0/vine/pkg/adapters/memory"
	"github.com/aretw0/vine/pkg/adapters/project"
	"github.com/aretw0/vine/pkg/adapters/redis"
	"github.com/aretw0/vine/pkg/adapters/sqlite"
	"github.com/aretw0/vine/pkg/domain"
	"github.com/aretw0/vine/pkg/persistence/middleware"
	"github.com/aretw0/vine/pkg/ports"
)

// manifestNames are the asset manifest files the factory looks for next to
// a story.
var manifestNames = []string{"assets.yaml", "assets.yml", "assets.json"}

// createEngine initializes a vine engine with standard CLI conventions:
// single-document paths get the project loader, directories the loam
// library, and an asset manifest next to the story is picked up
// automatically.
func createEngine(opts RunOptions, logger *slog.Logger, extra ...vine.Option) (*vine.Engine, error) {
	engineOpts := []vine.Option{vine.WithLogger(logger)}

	if opts.Debug {
		engineOpts = append(engineOpts, vine.WithHooks(createDebugHooks(logger)))
	}

	info, err := os.Stat(opts.LibraryPath)
	if err != nil {
		return nil, fmt.Errorf("story path %s: %w", opts.LibraryPath, err)
	}
	if !info.IsDir() {
		loader := project.NewLoader(opts.LibraryPath, project.WithLogger(logger))
		engineOpts = append(engineOpts, vine.WithLoader(loader))
	}

	if resolver := findManifest(opts.LibraryPath, info.IsDir(), logger); resolver != nil {
		engineOpts = append(engineOpts, vine.WithAssetResolver(resolver))
	}

	engineOpts = append(engineOpts, extra...)

	engine, err := vine.New(opts.LibraryPath, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// StoryEngine builds an engine for read-only tooling: standard path
// conventions, no slot store.
func StoryEngine(storyPath string, logger *slog.Logger) (*vine.Engine, error) {
	return createEngine(RunOptions{LibraryPath: storyPath}, logger)
}

// ServerEngine builds an engine wired to the configured slot store. The
// serving and slot-management commands use it instead of the interactive
// session path.
func ServerEngine(storyPath string, cfg Config, logger *slog.Logger, extra ...vine.Option) (*vine.Engine, error) {
	store, err := createStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	opts := append([]vine.Option{vine.WithSlotStore(store)}, extra...)
	return createEngine(RunOptions{LibraryPath: storyPath}, logger, opts...)
}

// findManifest loads assets.yaml (or a sibling spelling) next to the
// story, if one exists. A manifest that exists but does not parse is
// reported and skipped rather than blocking play.
func findManifest(storyPath string, isDir bool, logger *slog.Logger) ports.AssetResolver {
	dir := storyPath
	if !isDir {
		dir = filepath.Dir(storyPath)
	}
	for _, name := range manifestNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		resolver, err := catalog.Open(path)
		if err != nil {
			logger.Warn("Asset manifest is unreadable, continuing without it", "path", path, "err", err)
			return nil
		}
		logger.Debug("Asset manifest loaded", "path", path)
		return resolver
	}
	return nil
}

// createStore builds the save-slot backend named by the config, wrapped in
// the encryption middleware when a save key is configured.
func createStore(cfg Config, logger *slog.Logger) (ports.SlotStore, error) {
	var store ports.SlotStore

	switch cfg.Store {
	case "file", "":
		store = file.New(cfg.SaveDir)
	case "memory":
		store = memory.NewStore()
	case "redis":
		store = redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case "sqlite":
		var err error
		store, err = sqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q (want file, memory, redis or sqlite)", cfg.Store)
	}

	if cfg.SaveKey != "" {
		logger.Debug("Save-slot encryption enabled", "backend", cfg.Store)
		encrypt := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey: middleware.DeriveKey(cfg.SaveKey),
		})
		store = encrypt(store)
	}

	return store, nil
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatch: func(ctx context.Context, e *domain.StepEvent) {
			logger.Debug("Dispatch", "scene", e.SceneID, "index", e.Index, "command", e.CommandID, "type", e.CommandType)
		},
		OnSceneEnter: func(ctx context.Context, e *domain.SceneEvent) {
			logger.Debug("Enter Scene", "scene", e.SceneID, "reason", e.Reason)
		},
		OnSceneLeave: func(ctx context.Context, e *domain.SceneEvent) {
			logger.Debug("Leave Scene", "scene", e.SceneID)
		},
		OnHandlerError: func(ctx context.Context, e *domain.ErrorEvent) {
			logger.Debug("Handler Error (Recovered)", "scene", e.SceneID, "command", e.CommandID, "err", e.Err)
		},
		OnBranchAnomaly: func(ctx context.Context, e *domain.StepEvent) {
			logger.Debug("Branch Anomaly", "scene", e.SceneID, "command", e.CommandID)
		},
		OnSave: func(ctx context.Context, e *domain.SlotEvent) {
			logger.Debug("Save", "slot", e.Slot, "scene", e.SceneID, "is_error", e.IsError)
		},
		OnLoad: func(ctx context.Context, e *domain.SlotEvent) {
			logger.Debug("Load", "slot", e.Slot, "scene", e.SceneID, "is_error", e.IsError)
		},
	}
}
