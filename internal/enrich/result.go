package enrich

import (
	"c1fapp/internal/apierr"
	"c1fapp/internal/ctim"
	"c1fapp/internal/mapping"
)

// Result is the merged output of one Enrich call.
type Result struct {
	Sightings     []ctim.Sighting
	Indicators    []ctim.Indicator
	Relationships []ctim.Relationship
	Errors        []apierr.Entry
}

func (r *Result) merge(out *mapping.Output) {
	r.Sightings = append(r.Sightings, out.Sightings...)
	r.Indicators = append(r.Indicators, out.Indicators...)
	r.Relationships = append(r.Relationships, out.Relationships...)
}

// Bundle formats the entities for the response data.
func (r *Result) Bundle() ctim.Bundle {
	return ctim.NewBundle(r.Sightings, r.Indicators, r.Relationships)
}

// Envelope renders the result as a response body; errors sit next to any data.
func (r *Result) Envelope() apierr.Envelope {
	return apierr.Envelope{Data: r.Bundle(), Errors: r.Errors}
}
