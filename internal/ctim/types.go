// Package ctim defines the threat-intelligence entities produced by the relay.
package ctim

import (
	"fmt"

	"github.com/google/uuid"

	"c1fapp/internal/common"
)

// SchemaVersion is stamped on every generated entity.
const SchemaVersion = "1.0.17"

const (
	// Source names the feed on sightings.
	Source = "C1fApp"
	// Producer names the feed on indicators.
	Producer = "C1fApp"
	// RelationOrigin tags every relation edge built by this module.
	RelationOrigin = "C1fApp Enrichment Module"
	// SightingDescription is the fixed description carried by sightings.
	SightingDescription = "Seen on C1fApp feed"
)

// Entity types.
const (
	TypeSighting     = "sighting"
	TypeIndicator    = "indicator"
	TypeRelationship = "relationship"
)

// Relation kinds used on RelationEdge.
const (
	RelationResolvedTo = "Resolved_to"
	RelationContains   = "Contains"
	RelationHostedBy   = "Hosted_By"
)

// RelationshipMemberOf links a sighting to its feed indicator.
const RelationshipMemberOf = "member-of"

// TLPWhite is the sharing marker attached to indicators.
const TLPWhite = "white"

// Observable is a typed value supplied by the caller.
type Observable struct {
	Type  common.ObservableKind `json:"type" validate:"required"`
	Value string                `json:"value" validate:"required"`
}

// RelationEdge is a derived assertion between two observables.
type RelationEdge struct {
	Origin   string     `json:"origin"`
	Relation string     `json:"relation"`
	Source   Observable `json:"source"`
	Related  Observable `json:"related"`
}

// ObservedTime is the window in which a sighting was observed.
type ObservedTime struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Sighting asserts an observable was seen on the feed.
type Sighting struct {
	ID            string                 `json:"id"`
	Type          string                 `json:"type"`
	Source        string                 `json:"source"`
	SourceURI     string                 `json:"source_uri"`
	Description   string                 `json:"description"`
	Title         string                 `json:"title,omitempty"`
	Confidence    common.ConfidenceLevel `json:"confidence"`
	Count         int                    `json:"count"`
	Observables   []Observable           `json:"observables"`
	ObservedTime  ObservedTime           `json:"observed_time"`
	Relations     []RelationEdge         `json:"relations"`
	SchemaVersion string                 `json:"schema_version"`
}

// ValidTime is always empty for feed indicators.
type ValidTime struct{}

// Indicator represents one feed signal for an observable.
type Indicator struct {
	ID               string                 `json:"id"`
	Type             string                 `json:"type"`
	Confidence       common.ConfidenceLevel `json:"confidence"`
	TLP              string                 `json:"tlp"`
	Tags             []string               `json:"tags"`
	ShortDescription string                 `json:"short_description"`
	Title            string                 `json:"title"`
	Producer         string                 `json:"producer"`
	ValidTime        ValidTime              `json:"valid_time"`
	SchemaVersion    string                 `json:"schema_version"`
}

// Relationship links a sighting to an indicator.
type Relationship struct {
	ID               string `json:"id"`
	Type             string `json:"type"`
	SourceRef        string `json:"source_ref"`
	TargetRef        string `json:"target_ref"`
	RelationshipType string `json:"relationship_type"`
	SchemaVersion    string `json:"schema_version"`
}

// NewID returns a transient id for an entity of the given type.
// Ids are random, so entities built in one call never collide.
func NewID(entityType string) string {
	return fmt.Sprintf("transient:%s-%s", entityType, uuid.NewString())
}
