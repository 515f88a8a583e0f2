package stages

import (
	"github.com/goccy/go-yaml"

	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/errors"
)

// DefaultTargetStage is used for brand-new counterpart records with no
// observed stage on the source side.
const DefaultTargetStage = "lead"

// Translator maps source stage labels to target stage labels and flags
// creation triggers. It performs no I/O; the table is fixed at
// construction (optionally operator-overridden from YAML).
type Translator struct {
	table    map[SourceStage]string
	triggers map[SourceStage]bool
	fallback string
}

// Option configures a Translator.
type Option func(*Translator)

// WithTable replaces the stage translation table.
func WithTable(table map[SourceStage]string) Option {
	return func(t *Translator) {
		t.table = table
	}
}

// WithTriggers replaces the creation-trigger set.
func WithTriggers(triggers ...SourceStage) Option {
	return func(t *Translator) {
		t.triggers = make(map[SourceStage]bool, len(triggers))
		for _, s := range triggers {
			t.triggers[s] = true
		}
	}
}

// WithDefaultStage replaces the stage applied to brand-new counterparts.
func WithDefaultStage(stage string) Option {
	return func(t *Translator) {
		t.fallback = stage
	}
}

// New creates a Translator with the built-in vocabulary, applying any
// operator overrides.
func New(opts ...Option) *Translator {
	t := &Translator{
		table: map[SourceStage]string{
			Inquiry:    "lead",
			Quoting:    "proposal_sent",
			Confirmed:  "closed_won",
			InProgress: "closed_won",
			Complete:   "closed_won",
			Cancelled:  "closed_lost",
		},
		triggers: map[SourceStage]bool{
			Confirmed:  true,
			InProgress: true,
		},
		fallback: DefaultTargetStage,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Translate maps a source stage label to the target vocabulary. Labels
// outside the vocabulary pass through unchanged (fail open), so an
// unrecognized vendor label reaches the target verbatim rather than
// vanishing.
func (t *Translator) Translate(label string) string {
	stage := Parse(label)
	if !stage.Known() {
		return label
	}
	if mapped, ok := t.table[stage]; ok {
		return mapped
	}
	return label
}

// DefaultStage returns the target stage for brand-new counterparts with
// no observed source stage.
func (t *Translator) DefaultStage() string {
	return t.fallback
}

// IsCreationTrigger reports whether first observing an entity in (or
// transitioning into) this source stage should create its counterpart
// immediately instead of waiting for the next scheduled full pass.
func (t *Translator) IsCreationTrigger(label string) bool {
	return t.triggers[Parse(label)]
}

// tableFile is the YAML shape operators use to override the vocabulary.
type tableFile struct {
	Stages   map[string]string `yaml:"stages"`
	Triggers []string          `yaml:"triggers"`
	Default  string            `yaml:"default"`
}

// FromYAML builds a Translator from an operator-supplied table. Labels in
// the file that are not part of the known vocabulary are rejected, since
// a typo here would silently never fire.
func FromYAML(data []byte) (*Translator, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.WrapParse("yaml", "stage table", err)
	}

	opts := make([]Option, 0, 3)
	if len(file.Stages) > 0 {
		table := make(map[SourceStage]string, len(file.Stages))
		for label, mapped := range file.Stages {
			stage := Parse(label)
			if !stage.Known() {
				return nil, errors.NewValidationError("stages", label, "unknown source stage label")
			}
			table[stage] = mapped
		}
		opts = append(opts, WithTable(table))
	}
	if len(file.Triggers) > 0 {
		triggers := make([]SourceStage, 0, len(file.Triggers))
		for _, label := range file.Triggers {
			stage := Parse(label)
			if !stage.Known() {
				return nil, errors.NewValidationError("triggers", label, "unknown source stage label")
			}
			triggers = append(triggers, stage)
		}
		opts = append(opts, WithTriggers(triggers...))
	}
	if file.Default != "" {
		opts = append(opts, WithDefaultStage(file.Default))
	}

	return New(opts...), nil
}
