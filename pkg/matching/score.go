package matching

import (
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/entities"
)

// Composite signal scores. Each rule sets the score outright; rules do
// not stack. The highest-priority rule that fires wins.
const (
	// ScoreEmail: exact contact-level identifier match.
	ScoreEmail = 100
	// ScoreOrgName: exact normalized organization-name match.
	ScoreOrgName = 90
	// ScoreDomain: organization web domain match.
	ScoreDomain = 80
	// ScoreLegalName: registered legal or trade name match.
	ScoreLegalName = 70
	// ScorePartialName: one normalized name contained in the other.
	ScorePartialName = 60
	// ScorePersonInText: the source contact's name appears in the
	// target's free-text fields.
	ScorePersonInText = 40

	// Threshold accepts a composite score at or above this value.
	Threshold = 60
)

// score computes the composite signal score between a source entity and
// one target candidate.
func score(source, target entities.Entity) int {
	if v := source.Field(entities.FieldEmail); v != "" &&
		entities.NormalizeName(v) == entities.NormalizeName(target.Field(entities.FieldEmail)) &&
		target.HasField(entities.FieldEmail) {
		return ScoreEmail
	}

	if source.NormalizedNameKey != "" && source.NormalizedNameKey == target.NormalizedNameKey {
		return ScoreOrgName
	}

	if v := source.Field(entities.FieldDomain); v != "" &&
		entities.NormalizeName(v) == entities.NormalizeName(target.Field(entities.FieldDomain)) &&
		target.HasField(entities.FieldDomain) {
		return ScoreDomain
	}

	if legalNamesMatch(source, target) {
		return ScoreLegalName
	}

	if partialNameMatch(source, target) {
		return ScorePartialName
	}

	if person := source.Field(entities.FieldContactName); person != "" &&
		entities.ContainsName(target.Field(entities.FieldNotes), person) {
		return ScorePersonInText
	}

	return 0
}

// legalNamesMatch compares registered names against each other and
// against the display names, since vendors disagree on which field a
// trade name lands in.
func legalNamesMatch(source, target entities.Entity) bool {
	srcLegal := source.Field(entities.FieldLegalName)
	tgtLegal := target.Field(entities.FieldLegalName)

	if srcLegal != "" && tgtLegal != "" && entities.NamesEqual(srcLegal, tgtLegal) {
		return true
	}
	if srcLegal != "" && entities.NamesEqual(srcLegal, target.DisplayName) {
		return true
	}
	if tgtLegal != "" && entities.NamesEqual(source.DisplayName, tgtLegal) {
		return true
	}
	return false
}

// partialNameMatch reports whether one normalized display name contains
// the other.
func partialNameMatch(source, target entities.Entity) bool {
	return entities.ContainsName(target.DisplayName, source.DisplayName) ||
		entities.ContainsName(source.DisplayName, target.DisplayName)
}
