package synchub

import (
	"fmt"
	"strings"
	"time"

	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/errors"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/mappings"
)

// Mode selects how much of a sync run's side effects are committed.
// Modes nest strictly: dry-run writes nothing anywhere, read-only
// persists local state but skips remote writes, write commits everything.
type Mode string

const (
	// ModeDryRun computes the full pipeline and writes nothing, locally
	// or remotely.
	ModeDryRun Mode = "dry-run"
	// ModeReadOnly persists mappings and change history locally but
	// skips all remote writes.
	ModeReadOnly Mode = "read-only"
	// ModeWrite persists local state and performs remote writes.
	ModeWrite Mode = "write"
)

// ParseMode validates a mode label.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDryRun, ModeReadOnly, ModeWrite:
		return Mode(s), nil
	default:
		return "", errors.NewValidationError("mode", s, "must be dry-run, read-only, or write")
	}
}

// PersistsLocal reports whether the mode writes the mapping store and
// change history.
func (m Mode) PersistsLocal() bool {
	return m == ModeReadOnly || m == ModeWrite
}

// WritesRemote reports whether the mode performs remote writes.
func (m Mode) WritesRemote() bool {
	return m == ModeWrite
}

// PairStatus is the per-pair outcome within one run.
type PairStatus string

const (
	// PairMatched means the pair was matched and its writes staged.
	PairMatched PairStatus = "matched"
	// PairCreated means a counterpart was created for the source.
	PairCreated PairStatus = "created"
	// PairSkipped means the create was abandoned after the one-shot
	// retry-without-field attempt also failed.
	PairSkipped PairStatus = "skipped"
	// PairUnmatched means no counterpart was found and creation was
	// disabled or not applicable.
	PairUnmatched PairStatus = "unmatched"
)

// PairDetail is one source entity's outcome, used to seed reporting.
type PairDetail struct {
	SourceID     string
	SourceName   string
	TargetID     string
	TargetName   string
	MatchType    mappings.MatchType
	Score        int
	Sticky       bool
	Status       PairStatus
	StagedWrites map[string]string
	Conflicts    []mappings.FieldConflict
}

// Summary is the result of one sync run.
type Summary struct {
	Pair string
	Mode Mode

	Matched          int
	NewMappings      int
	UpdatedMappings  int
	WritesStaged     int
	WritesSucceeded  int
	WritesFailed     int
	CreatesStaged    int
	CreatesSucceeded int
	CreatesSkipped   int
	Conflicts        int
	UnmatchedSource  int
	UnmatchedTarget  int

	Duration time.Duration
	Details  []PairDetail

	// WriteErrors carries the batch-scoped failures for reporting; they
	// never abort a run.
	WriteErrors []error
}

// HasChanges reports whether the run staged or committed anything.
func (s *Summary) HasChanges() bool {
	return s.WritesStaged > 0 || s.CreatesStaged > 0 || s.NewMappings > 0 || s.UpdatedMappings > 0
}

// Counts returns the audit snapshot persisted with the run's history
// entry.
func (s *Summary) Counts() map[string]string {
	return map[string]string{
		"mode":              string(s.Mode),
		"matched":           fmt.Sprintf("%d", s.Matched),
		"new_mappings":      fmt.Sprintf("%d", s.NewMappings),
		"updated_mappings":  fmt.Sprintf("%d", s.UpdatedMappings),
		"writes_succeeded":  fmt.Sprintf("%d", s.WritesSucceeded),
		"writes_failed":     fmt.Sprintf("%d", s.WritesFailed),
		"creates_succeeded": fmt.Sprintf("%d", s.CreatesSucceeded),
		"creates_skipped":   fmt.Sprintf("%d", s.CreatesSkipped),
		"conflicts":         fmt.Sprintf("%d", s.Conflicts),
		"unmatched_source":  fmt.Sprintf("%d", s.UnmatchedSource),
		"unmatched_target":  fmt.Sprintf("%d", s.UnmatchedTarget),
		"duration_ms":       fmt.Sprintf("%d", s.Duration.Milliseconds()),
	}
}

// String returns a human-readable one-line summary.
func (s *Summary) String() string {
	var parts []string
	if s.Mode == ModeDryRun {
		parts = append(parts, "(dry run)")
	}
	parts = append(parts, fmt.Sprintf(
		"%d matched, %d created, %d conflicts, %d/%d writes ok, %d unmatched source, %d unmatched target",
		s.Matched, s.CreatesSucceeded, s.Conflicts,
		s.WritesSucceeded, s.WritesStaged, s.UnmatchedSource, s.UnmatchedTarget))
	return strings.Join(parts, " ")
}

// Overview is the point-in-time stats surface for the admin caller.
type Overview struct {
	SourceEntities  int
	TargetEntities  int
	Mappings        int
	ByMatchType     map[mappings.MatchType]int
	Conflicted      int
	UnmatchedSource int
	UnmatchedTarget int
	HistoryRecords  int
}

// UnmatchedReport lists entities with no counterpart on the other side.
type UnmatchedReport struct {
	UnmatchedSource []string
	UnmatchedTarget []string
}
