package ctim

// Docs is the `{count, docs}` collection shape of the response envelope.
type Docs[T any] struct {
	Count int `json:"count"`
	Docs  []T `json:"docs"`
}

// Bundle is the data part of the observe response. Empty collections are omitted.
type Bundle struct {
	Sightings     *Docs[Sighting]     `json:"sightings,omitempty"`
	Indicators    *Docs[Indicator]    `json:"indicators,omitempty"`
	Relationships *Docs[Relationship] `json:"relationships,omitempty"`
}

// NewBundle formats the collections, leaving out empty ones.
func NewBundle(sightings []Sighting, indicators []Indicator, relationships []Relationship) Bundle {
	return Bundle{
		Sightings:     docs(sightings),
		Indicators:    docs(indicators),
		Relationships: docs(relationships),
	}
}

func docs[T any](items []T) *Docs[T] {
	if len(items) == 0 {
		return nil
	}
	return &Docs[T]{Count: len(items), Docs: items}
}
