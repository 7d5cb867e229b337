package mapping

import (
	"strings"

	"c1fapp/internal/common"
	"c1fapp/internal/ctim"
)

// RelationExtractor derives relation edges between the subject observable and
// values found in a feed record.
type RelationExtractor interface {
	Kind() common.ObservableKind
	Relations(subject ctim.Observable, rec Record) ([]ctim.RelationEdge, error)
}

// extractors is the closed kind → extractor table.
var extractors = map[common.ObservableKind]RelationExtractor{
	common.KindDomain: domainExtractor{},
	common.KindIP:     ipExtractor{},
	common.KindURL:    urlExtractor{},
}

// ExtractorFor returns the extractor for kind, or false if the kind is unsupported.
func ExtractorFor(kind common.ObservableKind) (RelationExtractor, bool) {
	e, ok := extractors[kind]
	return e, ok
}

func edge(relation string, source, related ctim.Observable) ctim.RelationEdge {
	return ctim.RelationEdge{
		Origin:   ctim.RelationOrigin,
		Relation: relation,
		Source:   source,
		Related:  related,
	}
}

func isURLAddress(address string) bool {
	return strings.Contains(address, "http")
}

type domainExtractor struct{}

func (domainExtractor) Kind() common.ObservableKind { return common.KindDomain }

func (domainExtractor) Relations(subject ctim.Observable, rec Record) ([]ctim.RelationEdge, error) {
	var out []ctim.RelationEdge
	for _, ip := range rec.Values(FieldIPAddress) {
		if ip == "" {
			continue
		}
		out = append(out, edge(ctim.RelationResolvedTo, subject,
			ctim.Observable{Type: common.KindIP, Value: ip}))
	}

	// A URL record whose domain is the subject also tells us the URL contains it.
	if rec.Has(FieldAddress) && rec.Has(FieldDomain) {
		address := rec[FieldAddress][0]
		if isURLAddress(address) && rec[FieldDomain][0] == subject.Value {
			out = append(out, edge(ctim.RelationContains,
				ctim.Observable{Type: common.KindURL, Value: address},
				ctim.Observable{Type: common.KindDomain, Value: subject.Value}))
		}
	}
	return out, nil
}

type ipExtractor struct{}

func (ipExtractor) Kind() common.ObservableKind { return common.KindIP }

func (ipExtractor) Relations(subject ctim.Observable, rec Record) ([]ctim.RelationEdge, error) {
	var out []ctim.RelationEdge
	for _, domain := range rec.Values(FieldDomain) {
		if domain == "" || domain == subject.Value {
			continue
		}
		out = append(out, edge(ctim.RelationResolvedTo,
			ctim.Observable{Type: common.KindDomain, Value: domain}, subject))
	}
	return out, nil
}

type urlExtractor struct{}

func (urlExtractor) Kind() common.ObservableKind { return common.KindURL }

func (urlExtractor) Relations(subject ctim.Observable, rec Record) ([]ctim.RelationEdge, error) {
	address, err := rec.First(FieldAddress)
	if err != nil {
		return nil, err
	}
	if !isURLAddress(address) {
		return nil, nil
	}

	var out []ctim.RelationEdge
	for _, ip := range rec.Values(FieldIPAddress) {
		if ip == "" {
			continue
		}
		out = append(out, edge(ctim.RelationHostedBy, subject,
			ctim.Observable{Type: common.KindIP, Value: ip}))
	}
	// Plain substring match on the raw URL, no parsing.
	for _, domain := range rec.Values(FieldDomain) {
		if domain == "" || !strings.Contains(subject.Value, domain) {
			continue
		}
		out = append(out, edge(ctim.RelationContains, subject,
			ctim.Observable{Type: common.KindDomain, Value: domain}))
	}
	return out, nil
}
