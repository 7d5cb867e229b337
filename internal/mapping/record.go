package mapping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"c1fapp/internal/apierr"
)

// Record field names used by the mapping rules.
const (
	FieldFeedLabel   = "feed_label"
	FieldDomain      = "domain"
	FieldAddress     = "address"
	FieldIPAddress   = "ip_address"
	FieldConfidence  = "confidence"
	FieldReportTime  = "reportime"
	FieldSource      = "source"
	FieldAssessment  = "assessment"
	FieldDescription = "description"
)

var knownFields = map[string]bool{
	FieldFeedLabel: true, FieldDomain: true, FieldAddress: true, FieldIPAddress: true,
	FieldConfidence: true, FieldReportTime: true, FieldSource: true, FieldAssessment: true,
	FieldDescription: true,
}

// Record is one raw C1fApp match. Every field maps to an ordered sequence of strings.
type Record map[string][]string

// First returns the first value of field, failing if the field is missing or empty.
func (r Record) First(field string) (string, error) {
	vals, ok := r[field]
	if !ok {
		return "", &DataShapeError{Field: field, Reason: "is missing"}
	}
	if len(vals) == 0 {
		return "", &DataShapeError{Field: field, Reason: "is empty"}
	}
	return vals[0], nil
}

// Values returns all values of a list-valued field; a missing field yields nil.
func (r Record) Values(field string) []string {
	return r[field]
}

// Has reports whether field is present with at least one value.
func (r Record) Has(field string) bool {
	return len(r[field]) > 0
}

// UnmarshalJSON accepts arrays of strings or numbers and wraps bare scalars
// into a one-element sequence. Fields the mapping does not read are dropped
// when their values are not scalars; known fields fail with DataShapeError.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Record, len(raw))
	for field, msg := range raw {
		vals, err := decodeValues(msg)
		if err != nil {
			if !knownFields[field] {
				continue
			}
			return &DataShapeError{Field: field, Reason: err.Error()}
		}
		out[field] = vals
	}
	*r = out
	return nil
}

func decodeValues(msg json.RawMessage) ([]string, error) {
	msg = bytes.TrimSpace(msg)
	if len(msg) > 0 && msg[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(msg, &items); err != nil {
			return nil, err
		}
		vals := make([]string, 0, len(items))
		for _, item := range items {
			v, err := decodeScalar(item)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		return vals, nil
	}
	v, err := decodeScalar(msg)
	if err != nil {
		return nil, err
	}
	return []string{v}, nil
}

func decodeScalar(msg json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("unsupported value %s", string(msg))
	}
}

// DataShapeError reports a record field that is missing or malformed.
type DataShapeError struct {
	Field  string
	Reason string
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("field %q %s", e.Field, e.Reason)
}

// Entry renders the error for the response errors array.
func (e *DataShapeError) Entry() apierr.Entry {
	return apierr.NewEntry(apierr.CodeUnknown, "Malformed C1fApp record: "+e.Error())
}

// IsDataShape reports whether err is a DataShapeError.
func IsDataShape(err error) bool {
	var dse *DataShapeError
	return errors.As(err, &dse)
}
