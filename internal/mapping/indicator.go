package mapping

import (
	"c1fapp/internal/ctim"
)

// feedEntry tracks what one feed label produced during a single observable pass.
type feedEntry struct {
	indicatorID string
	sightingIDs []string
}

// FeedAccumulator groups sightings by feed label for one observable.
// It is owned by a single Mapper and never shared.
type FeedAccumulator struct {
	labels  []string
	entries map[string]*feedEntry
}

// NewFeedAccumulator returns an empty accumulator.
func NewFeedAccumulator() *FeedAccumulator {
	return &FeedAccumulator{entries: make(map[string]*feedEntry)}
}

func (a *FeedAccumulator) entry(label string) (*feedEntry, bool) {
	e, ok := a.entries[label]
	if !ok {
		e = &feedEntry{}
		a.entries[label] = e
		a.labels = append(a.labels, label)
	}
	return e, ok
}

// Labels returns the feed labels in first-seen order.
func (a *FeedAccumulator) Labels() []string {
	return append([]string(nil), a.labels...)
}

// SightingIDs returns the sighting ids recorded under label.
func (a *FeedAccumulator) SightingIDs(label string) []string {
	if e, ok := a.entries[label]; ok {
		return append([]string(nil), e.sightingIDs...)
	}
	return nil
}

// IndicatorID returns the indicator id recorded for label, if any.
func (a *FeedAccumulator) IndicatorID(label string) (string, bool) {
	e, ok := a.entries[label]
	if !ok || e.indicatorID == "" {
		return "", false
	}
	return e.indicatorID, true
}

// dedupeIndicator registers sightingID under the record's feed label. The
// first record of a label creates its indicator; later ones only register.
func (m *Mapper) dedupeIndicator(rec Record, sightingID string) (*ctim.Indicator, error) {
	label, err := rec.First(FieldFeedLabel)
	if err != nil {
		return nil, err
	}

	e, seen := m.acc.entry(label)
	var created *ctim.Indicator
	if !seen {
		confidence, err := m.classifier.ClassifyRecord(rec)
		if err != nil {
			return nil, err
		}
		tags := append([]string{}, rec.Values(FieldAssessment)...)
		created = &ctim.Indicator{
			ID:               ctim.NewID(ctim.TypeIndicator),
			Type:             ctim.TypeIndicator,
			Confidence:       confidence,
			TLP:              ctim.TLPWhite,
			Tags:             tags,
			ShortDescription: label,
			Title:            label,
			Producer:         ctim.Producer,
			ValidTime:        ctim.ValidTime{},
			SchemaVersion:    ctim.SchemaVersion,
		}
		e.indicatorID = created.ID
	}
	e.sightingIDs = append(e.sightingIDs, sightingID)
	return created, nil
}

// linkRelationships emits one member-of relationship per sighting recorded
// under a label that has an indicator.
func (m *Mapper) linkRelationships() []ctim.Relationship {
	var out []ctim.Relationship
	for _, label := range m.acc.labels {
		e := m.acc.entries[label]
		if e.indicatorID == "" {
			continue
		}
		for _, sid := range e.sightingIDs {
			out = append(out, ctim.Relationship{
				ID:               ctim.NewID(ctim.TypeRelationship),
				Type:             ctim.TypeRelationship,
				SourceRef:        sid,
				TargetRef:        e.indicatorID,
				RelationshipType: ctim.RelationshipMemberOf,
				SchemaVersion:    ctim.SchemaVersion,
			})
		}
	}
	return out
}
