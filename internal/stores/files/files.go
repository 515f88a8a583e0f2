// Package files persists the sync hub's local state as YAML documents in
// a directory: the two entity mirrors, the mapping table, and the change
// history. It wraps the in-memory stores and serializes them on Save, so
// a dry run that never calls Save leaves nothing behind.
package files

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/artificialadnaan/trocksynchubv3-sub001/internal/stores/memory"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/entities"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/errors"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/history"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/mappings"
)

// State file names inside the store directory.
const (
	SourceEntitiesFile = "entities_source.yaml"
	TargetEntitiesFile = "entities_target.yaml"
	MappingsFile       = "sync_mappings.yaml"
	HistoryFile        = "change_history.yaml"
)

// Store is the file-backed persistence layer.
type Store struct {
	dir string

	Source   *memory.SnapshotStore
	Target   *memory.SnapshotStore
	Mappings *memory.MappingStore
	History  *memory.HistoryLog
}

// New creates a Store rooted at dir. Call Load to read existing state.
func New(dir string) *Store {
	return &Store{
		dir:      dir,
		Source:   memory.NewSnapshotStore(),
		Target:   memory.NewSnapshotStore(),
		Mappings: memory.NewMappingStore(),
		History:  memory.NewHistoryLog(),
	}
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Load reads any existing state files. Missing files are not an error;
// a fresh directory simply starts empty.
func (s *Store) Load(ctx context.Context) error {
	var sourceEntities, targetEntities []entities.Entity
	if err := s.loadFile(SourceEntitiesFile, &sourceEntities); err != nil {
		return err
	}
	if err := s.loadFile(TargetEntitiesFile, &targetEntities); err != nil {
		return err
	}
	for _, e := range sourceEntities {
		if err := s.Source.Upsert(ctx, e); err != nil {
			return err
		}
	}
	for _, e := range targetEntities {
		if err := s.Target.Upsert(ctx, e); err != nil {
			return err
		}
	}

	var maps []mappings.Mapping
	if err := s.loadFile(MappingsFile, &maps); err != nil {
		return err
	}
	for _, m := range maps {
		if err := s.Mappings.Upsert(ctx, m); err != nil {
			return err
		}
	}

	var records []history.Record
	if err := s.loadFile(HistoryFile, &records); err != nil {
		return err
	}
	for _, r := range records {
		if err := s.History.Append(ctx, r); err != nil {
			return err
		}
	}

	return nil
}

// Save writes all state files. Each file is written to a temp file and
// renamed into place so a crash never leaves a truncated document.
func (s *Store) Save(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.WrapIO("create", s.dir, err)
	}

	sourceEntities, err := s.Source.List(ctx)
	if err != nil {
		return err
	}
	if err := s.saveFile(SourceEntitiesFile, sourceEntities); err != nil {
		return err
	}

	targetEntities, err := s.Target.List(ctx)
	if err != nil {
		return err
	}
	if err := s.saveFile(TargetEntitiesFile, targetEntities); err != nil {
		return err
	}

	maps, err := s.Mappings.List(ctx, mappings.Filter{})
	if err != nil {
		return err
	}
	if err := s.saveFile(MappingsFile, maps); err != nil {
		return err
	}

	records, err := s.History.List(ctx, 0)
	if err != nil {
		return err
	}
	return s.saveFile(HistoryFile, records)
}

// loadFile reads one YAML document into out; a missing file is skipped.
func (s *Store) loadFile(name string, out any) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WrapIO("read", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	return nil
}

// saveFile writes one YAML document atomically.
func (s *Store) saveFile(name string, in any) error {
	path := filepath.Join(s.dir, name)
	data, err := yaml.Marshal(in)
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.WrapIO("write", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
