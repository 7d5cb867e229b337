package mapping

import (
	"fmt"
	"strconv"
	"strings"

	"c1fapp/internal/common"
)

// Confidence scores live in [MinConfidence, MaxConfidence].
const (
	MinConfidence = 0
	MaxConfidence = 100
)

// ConfidenceRange maps the half-open score range [Min, Max) to a level.
type ConfidenceRange struct {
	Min   int                    `yaml:"min"`
	Max   int                    `yaml:"max"`
	Level common.ConfidenceLevel `yaml:"level"`
}

// DefaultConfidenceTable is the bucketing used when no table is configured.
func DefaultConfidenceTable() []ConfidenceRange {
	return []ConfidenceRange{
		{Min: 0, Max: 26, Level: common.ConfidenceLow},
		{Min: 26, Max: 80, Level: common.ConfidenceMedium},
		{Min: 80, Max: 101, Level: common.ConfidenceHigh},
	}
}

// Classifier buckets numeric feed confidence into levels.
type Classifier struct {
	table []ConfidenceRange
}

// NewClassifier validates that table covers [0,100] with contiguous,
// non-overlapping ranges. A table that fails this is a configuration error.
func NewClassifier(table []ConfidenceRange) (*Classifier, error) {
	if err := ValidateConfidenceTable(table); err != nil {
		return nil, err
	}
	return &Classifier{table: append([]ConfidenceRange(nil), table...)}, nil
}

// ValidateConfidenceTable checks the invariants NewClassifier relies on.
func ValidateConfidenceTable(table []ConfidenceRange) error {
	if len(table) == 0 {
		return fmt.Errorf("confidence table is empty")
	}
	next := MinConfidence
	for i, r := range table {
		if !r.Level.Valid() {
			return fmt.Errorf("confidence range %d: unknown level %q", i, r.Level)
		}
		if r.Min != next {
			return fmt.Errorf("confidence range %d starts at %d, want %d", i, r.Min, next)
		}
		if r.Max <= r.Min {
			return fmt.Errorf("confidence range %d is empty: [%d,%d)", i, r.Min, r.Max)
		}
		next = r.Max
	}
	if next != MaxConfidence+1 {
		return fmt.Errorf("confidence table ends at %d, want %d", next, MaxConfidence+1)
	}
	return nil
}

// Classify parses raw as an integer score and returns its level. Scores
// outside [MinConfidence, MaxConfidence] are clamped before the lookup.
func (c *Classifier) Classify(raw string) (common.ConfidenceLevel, error) {
	score, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return "", &DataShapeError{Field: FieldConfidence, Reason: fmt.Sprintf("is not an integer: %q", raw)}
	}
	score = min(max(score, MinConfidence), MaxConfidence)
	for _, r := range c.table {
		if score >= r.Min && score < r.Max {
			return r.Level, nil
		}
	}
	// Unreachable for a table accepted by ValidateConfidenceTable.
	return common.ConfidenceUnknown, nil
}

// ClassifyRecord classifies the first confidence value of rec.
func (c *Classifier) ClassifyRecord(rec Record) (common.ConfidenceLevel, error) {
	raw, err := rec.First(FieldConfidence)
	if err != nil {
		return "", err
	}
	return c.Classify(raw)
}
