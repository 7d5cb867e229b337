package common

// ObservableKind represents the observable types the relay understands.
type ObservableKind string

const (
	KindDomain ObservableKind = "domain"
	KindIP     ObservableKind = "ip"
	KindURL    ObservableKind = "url"
)

// SupportedKinds lists every kind with a relation extractor, in a stable order.
var SupportedKinds = []ObservableKind{KindDomain, KindIP, KindURL}

// Supported reports whether k is one of the closed set of kinds.
func (k ObservableKind) Supported() bool {
	for _, s := range SupportedKinds {
		if s == k {
			return true
		}
	}
	return false
}

// ConfidenceLevel is the CTIM confidence category attached to entities.
type ConfidenceLevel string

const (
	ConfidenceNone    ConfidenceLevel = "None"
	ConfidenceLow     ConfidenceLevel = "Low"
	ConfidenceMedium  ConfidenceLevel = "Medium"
	ConfidenceHigh    ConfidenceLevel = "High"
	ConfidenceUnknown ConfidenceLevel = "Unknown"
)

// Valid reports whether l is a CTIM confidence value.
func (l ConfidenceLevel) Valid() bool {
	switch l {
	case ConfidenceNone, ConfidenceLow, ConfidenceMedium, ConfidenceHigh, ConfidenceUnknown:
		return true
	}
	return false
}
