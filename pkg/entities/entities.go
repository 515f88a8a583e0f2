// Package entities defines the per-system snapshot records that the sync
// engine reconciles, together with the snapshot store interface and the
// name normalization used for matching.
package entities

import (
	"github.com/agentstation/utc"
)

// Side identifies which half of a system pair an entity mirror belongs to.
type Side string

const (
	// SideSource is the system the sync run reads authoritative data from.
	SideSource Side = "source"
	// SideTarget is the system the sync run writes toward.
	SideTarget Side = "target"
)

// Well-known identifying field keys. Extractors populate whichever of
// these the remote system exposes; the matcher scores on what is present.
const (
	// FieldNumber is the shared business identifier (e.g. a project number).
	FieldNumber = "number"
	// FieldEmail is a contact-level identifier.
	FieldEmail = "email"
	// FieldDomain is an organization web domain.
	FieldDomain = "domain"
	// FieldLegalName is a registered legal or trade name.
	FieldLegalName = "legal_name"
	// FieldContactName is the primary person's name on the record.
	FieldContactName = "contact_name"
	// FieldNotes is unstructured free text carried on the record.
	FieldNotes = "notes"
	// FieldStage is the lifecycle-stage label on the record.
	FieldStage = "stage"
	// FieldAmount is a monetary value attached to the record.
	FieldAmount = "amount"
)

// Entity is the local mirror of one remote record. Mirrors are refreshed
// by upsert-by-ExternalID on every extraction and never deleted here.
type Entity struct {
	SystemID          string            `json:"system_id" yaml:"system_id"`
	ExternalID        string            `json:"external_id" yaml:"external_id"`
	DisplayName       string            `json:"display_name" yaml:"display_name"`
	NormalizedNameKey string            `json:"normalized_name_key" yaml:"normalized_name_key"`
	IdentifyingFields map[string]string `json:"identifying_fields,omitempty" yaml:"identifying_fields,omitempty"`
	LastSeenAt        utc.Time          `json:"last_seen_at" yaml:"last_seen_at"`
}

// New creates an entity mirror with its normalized name key derived from
// the display name.
func New(systemID, externalID, displayName string, fields map[string]string) Entity {
	if fields == nil {
		fields = make(map[string]string)
	}
	return Entity{
		SystemID:          systemID,
		ExternalID:        externalID,
		DisplayName:       displayName,
		NormalizedNameKey: NormalizeName(displayName),
		IdentifyingFields: fields,
		LastSeenAt:        utc.Now(),
	}
}

// Field returns the identifying field value for key, or "" when absent.
func (e Entity) Field(key string) string {
	if e.IdentifyingFields == nil {
		return ""
	}
	return e.IdentifyingFields[key]
}

// HasField reports whether the identifying field is present and non-empty.
func (e Entity) HasField(key string) bool {
	return e.Field(key) != ""
}

// Copy returns a deep copy of the entity.
func (e Entity) Copy() Entity {
	fields := make(map[string]string, len(e.IdentifyingFields))
	for k, v := range e.IdentifyingFields {
		fields[k] = v
	}
	out := e
	out.IdentifyingFields = fields
	return out
}
