// Package stages translates lifecycle-stage vocabulary between the two
// systems of a pair and flags the stages that trigger immediate counterpart
// creation. Translation is a pure lookup over labels: no I/O, no state.
package stages

// SourceStage is a lifecycle label as the source system spells it. The
// zero value Unknown is the explicit passthrough variant: labels the
// vocabulary does not recognize keep their raw spelling instead of being
// silently dropped on a typo or vendor rename.
type SourceStage string

// Known source-system stages.
const (
	Unknown    SourceStage = ""
	Inquiry    SourceStage = "inquiry"
	Quoting    SourceStage = "quoting"
	Confirmed  SourceStage = "confirmed"
	InProgress SourceStage = "in_progress"
	Complete   SourceStage = "complete"
	Cancelled  SourceStage = "cancelled"
)

// Parse returns the known stage for a raw label, or Unknown when the
// label is not part of the vocabulary.
func Parse(label string) SourceStage {
	switch SourceStage(label) {
	case Inquiry, Quoting, Confirmed, InProgress, Complete, Cancelled:
		return SourceStage(label)
	default:
		return Unknown
	}
}

// Known reports whether the stage is part of the recognized vocabulary.
func (s SourceStage) Known() bool {
	return s != Unknown
}

// String returns the label as the source system spells it.
func (s SourceStage) String() string {
	return string(s)
}
