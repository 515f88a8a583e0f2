package synchub

import (
	"context"
	"time"

	"github.com/artificialadnaan/trocksynchubv3-sub001/internal/stores/memory"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/batch"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/entities"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/errors"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/history"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/mappings"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/matching"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/remote"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/resolve"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/stages"
)

// Persister saves local state after a run. The file-backed store
// satisfies this; in-memory setups leave it nil.
type Persister interface {
	Save(ctx context.Context) error
}

// config collects everything a Hub needs. Options fill it in; New
// applies defaults for whatever is left unset.
type config struct {
	pair string

	sourceClient remote.Client
	targetClient remote.Client
	sourceKind   remote.EntityKind
	targetKind   remote.EntityKind

	sourceSnapshots entities.SnapshotStore
	targetSnapshots entities.SnapshotStore
	mappingStore    mappings.Store
	historyLog      history.Log
	persister       Persister

	matcher    *matching.Matcher
	resolver   *resolve.Resolver
	translator *stages.Translator
	writer     *batch.Writer

	createOnUnmatched bool
	retention         time.Duration
}

// Option configures a Hub.
type Option func(*config)

// WithPair sets the system-pair label used by the re-entrancy guard and
// all logging, e.g. "pm:crm".
func WithPair(pair string) Option {
	return func(c *config) {
		c.pair = pair
	}
}

// WithClients sets the two remote system clients.
func WithClients(source, target remote.Client) Option {
	return func(c *config) {
		c.sourceClient = source
		c.targetClient = target
	}
}

// WithEntityKinds sets the record kinds listed from each system.
func WithEntityKinds(source, target remote.EntityKind) Option {
	return func(c *config) {
		c.sourceKind = source
		c.targetKind = target
	}
}

// WithSnapshotStores sets the two entity mirrors.
func WithSnapshotStores(source, target entities.SnapshotStore) Option {
	return func(c *config) {
		c.sourceSnapshots = source
		c.targetSnapshots = target
	}
}

// WithMappingStore sets the persistent mapping store.
func WithMappingStore(store mappings.Store) Option {
	return func(c *config) {
		c.mappingStore = store
	}
}

// WithHistoryLog sets the change history log.
func WithHistoryLog(log history.Log) Option {
	return func(c *config) {
		c.historyLog = log
	}
}

// WithPersister sets the Save hook invoked after runs that persist
// local state.
func WithPersister(p Persister) Option {
	return func(c *config) {
		c.persister = p
	}
}

// WithMatcher replaces the default matcher.
func WithMatcher(m *matching.Matcher) Option {
	return func(c *config) {
		c.matcher = m
	}
}

// WithResolver replaces the default conflict resolver.
func WithResolver(r *resolve.Resolver) Option {
	return func(c *config) {
		c.resolver = r
	}
}

// WithTranslator replaces the default stage translator.
func WithTranslator(t *stages.Translator) Option {
	return func(c *config) {
		c.translator = t
	}
}

// WithBatchWriter replaces the default batch writer.
func WithBatchWriter(w *batch.Writer) Option {
	return func(c *config) {
		c.writer = w
	}
}

// WithCreateOnUnmatched controls whether unmatched source entities get a
// counterpart created on the target system. Off, the run only reports
// them.
func WithCreateOnUnmatched(create bool) Option {
	return func(c *config) {
		c.createOnUnmatched = create
	}
}

// WithRetention overrides the change-history retention window.
func WithRetention(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.retention = d
		}
	}
}

// newConfig builds the config with defaults applied.
func newConfig(opts ...Option) (*config, error) {
	c := &config{
		pair:       "pm:crm",
		sourceKind: "project",
		targetKind: "company",
		retention:  history.DefaultRetention,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.sourceClient == nil || c.targetClient == nil {
		return nil, errors.NewValidationError("clients", nil, "source and target clients are required")
	}
	if c.sourceSnapshots == nil {
		c.sourceSnapshots = memory.NewSnapshotStore()
	}
	if c.targetSnapshots == nil {
		c.targetSnapshots = memory.NewSnapshotStore()
	}
	if c.mappingStore == nil {
		c.mappingStore = memory.NewMappingStore()
	}
	if c.historyLog == nil {
		c.historyLog = memory.NewHistoryLog()
	}
	if c.matcher == nil {
		c.matcher = matching.New()
	}
	if c.resolver == nil {
		c.resolver = resolve.New()
	}
	if c.translator == nil {
		c.translator = stages.New()
	}
	if c.writer == nil {
		c.writer = batch.New()
	}
	return c, nil
}
