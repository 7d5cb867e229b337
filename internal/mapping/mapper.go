// Package mapping translates raw C1fApp records into CTIM entities.
//
// A Mapper handles exactly one observable: it builds one sighting per record,
// one indicator per distinct feed label, and links them with relationships.
// Deduplication never crosses observables.
package mapping

import (
	"fmt"

	"c1fapp/internal/ctim"
)

// Output holds the entities produced for one observable.
type Output struct {
	Sightings     []ctim.Sighting
	Indicators    []ctim.Indicator
	Relationships []ctim.Relationship
}

// Mapper runs a single extraction pass for one observable.
type Mapper struct {
	subject    ctim.Observable
	extractor  RelationExtractor
	classifier *Classifier
	acc        *FeedAccumulator
}

// NewMapper returns a Mapper for subject, or false when its kind is unsupported.
func NewMapper(subject ctim.Observable, classifier *Classifier) (*Mapper, bool) {
	extractor, ok := ExtractorFor(subject.Type)
	if !ok {
		return nil, false
	}
	return &Mapper{
		subject:    subject,
		extractor:  extractor,
		classifier: classifier,
		acc:        NewFeedAccumulator(),
	}, true
}

// Map converts records into entities. Any malformed record fails the whole
// pass, so a caller never sees a partial result for the observable.
func (m *Mapper) Map(records []Record) (*Output, error) {
	out := &Output{}
	for i, rec := range records {
		sighting, err := m.buildSighting(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		indicator, err := m.dedupeIndicator(rec, sighting.ID)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out.Sightings = append(out.Sightings, sighting)
		if indicator != nil {
			out.Indicators = append(out.Indicators, *indicator)
		}
	}
	out.Relationships = m.linkRelationships()
	return out, nil
}

// Accumulator exposes the per-observable feed grouping built by Map.
func (m *Mapper) Accumulator() *FeedAccumulator { return m.acc }
