package mapping

import (
	"strings"

	"c1fapp/internal/ctim"
)

// observedTime normalizes a date-only feed timestamp to UTC midnight.
func observedTime(reportTime string) ctim.ObservedTime {
	ts := strings.TrimSpace(reportTime) + "T00:00:00Z"
	return ctim.ObservedTime{StartTime: ts, EndTime: ts}
}

// sourceURI picks the longest comma-separated token of source, preferring the
// most specific URL. The first token wins ties.
func sourceURI(source string) string {
	best := ""
	for _, tok := range strings.Split(source, ",") {
		tok = strings.TrimSpace(tok)
		if len(tok) > len(best) {
			best = tok
		}
	}
	return best
}

// buildSighting turns one record into one sighting for subject.
func (m *Mapper) buildSighting(rec Record) (ctim.Sighting, error) {
	reportTime, err := rec.First(FieldReportTime)
	if err != nil {
		return ctim.Sighting{}, err
	}
	source, err := rec.First(FieldSource)
	if err != nil {
		return ctim.Sighting{}, err
	}
	confidence, err := m.classifier.ClassifyRecord(rec)
	if err != nil {
		return ctim.Sighting{}, err
	}
	relations, err := m.extractor.Relations(m.subject, rec)
	if err != nil {
		return ctim.Sighting{}, err
	}
	if relations == nil {
		relations = []ctim.RelationEdge{}
	}
	var title string
	if desc := rec.Values(FieldDescription); len(desc) > 0 {
		title = desc[0]
	}

	return ctim.Sighting{
		ID:            ctim.NewID(ctim.TypeSighting),
		Type:          ctim.TypeSighting,
		Source:        ctim.Source,
		SourceURI:     sourceURI(source),
		Description:   ctim.SightingDescription,
		Title:         title,
		Confidence:    confidence,
		Count:         1,
		Observables:   []ctim.Observable{m.subject},
		ObservedTime:  observedTime(reportTime),
		Relations:     relations,
		SchemaVersion: ctim.SchemaVersion,
	}, nil
}
