// Package app provides the application context and dependency wiring for
// the synchub CLI. It centralizes configuration, logging, and the lazily
// built Hub instance.
package app

import (
	"context"
	"os"
	"sync"

	"github.com/rs/zerolog"

	synchub "github.com/artificialadnaan/trocksynchubv3-sub001"
	"github.com/artificialadnaan/trocksynchubv3-sub001/internal/stores/files"
	"github.com/artificialadnaan/trocksynchubv3-sub001/internal/stores/memory"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/batch"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/errors"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/remote"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/stages"
)

// App holds the CLI's dependencies: configuration, logger, the file-backed
// state store, and the Hub built on top of them.
type App struct {
	version string
	commit  string
	date    string

	config *Config
	logger *zerolog.Logger

	mu    sync.Mutex
	store *files.Store
	hub   synchub.Hub
}

// New creates an App with the given version information.
func New(version, commit, date string) (*App, error) {
	a := &App{
		version: version,
		commit:  commit,
		date:    date,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	a.config = config

	logger := NewLogger(config)
	a.logger = &logger
	return a, nil
}

// Version returns the version string.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Store returns the file-backed state store, loading it on first use.
func (a *App) Store(ctx context.Context) (*files.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.storeLocked(ctx)
}

func (a *App) storeLocked(ctx context.Context) (*files.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	store := files.New(a.config.StateDir)
	if err := store.Load(ctx); err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

// Hub returns the Hub instance, building it lazily from the loaded state.
// The CLI runs against offline fake clients seeded from the persisted
// entity mirrors; real vendor clients are injected by programs embedding
// the library.
func (a *App) Hub(ctx context.Context) (synchub.Hub, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.hub != nil {
		return a.hub, nil
	}

	store, err := a.storeLocked(ctx)
	if err != nil {
		return nil, err
	}

	translator, err := a.translator()
	if err != nil {
		return nil, err
	}

	source, err := seededClient(ctx, a.config.SourceSystem, store.Source, remote.EntityKind(a.config.SourceKind))
	if err != nil {
		return nil, err
	}
	target, err := seededClient(ctx, a.config.TargetSystem, store.Target, remote.EntityKind(a.config.TargetKind))
	if err != nil {
		return nil, err
	}

	hub, err := synchub.New(
		synchub.WithPair(a.config.Pair),
		synchub.WithClients(source, target),
		synchub.WithEntityKinds(remote.EntityKind(a.config.SourceKind), remote.EntityKind(a.config.TargetKind)),
		synchub.WithSnapshotStores(store.Source, store.Target),
		synchub.WithMappingStore(store.Mappings),
		synchub.WithHistoryLog(store.History),
		synchub.WithPersister(store),
		synchub.WithTranslator(translator),
		synchub.WithBatchWriter(batch.New(batch.WithSize(a.config.BatchSize))),
		synchub.WithCreateOnUnmatched(a.config.CreateMissing),
		synchub.WithRetention(a.config.Retention),
	)
	if err != nil {
		return nil, err
	}
	a.hub = hub
	return hub, nil
}

// translator builds the stage translator, applying the operator override
// file when configured.
func (a *App) translator() (*stages.Translator, error) {
	if a.config.StageTable == "" {
		return stages.New(), nil
	}
	data, err := os.ReadFile(a.config.StageTable)
	if err != nil {
		return nil, errors.WrapIO("read", a.config.StageTable, err)
	}
	return stages.FromYAML(data)
}

// seededClient builds an offline client from a persisted entity mirror.
func seededClient(ctx context.Context, systemID string, mirror *memory.SnapshotStore, kind remote.EntityKind) (*remote.FakeClient, error) {
	list, err := mirror.List(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]remote.Record, 0, len(list))
	for _, e := range list {
		records = append(records, remote.Record{
			ID:         e.ExternalID,
			Name:       e.DisplayName,
			Properties: e.IdentifyingFields,
		})
	}
	return remote.NewFakeClient(systemID, map[remote.EntityKind][]remote.Record{kind: records}), nil
}
