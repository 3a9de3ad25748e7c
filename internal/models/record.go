package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is one element of a dataset. The core only ever inspects the
// id; every other field belongs to the UI domain and is carried opaquely
// so that JSON round-trips preserve it byte-for-byte in meaning.
type Record struct {
	// ID is the canonical string form of the record identifier.
	// Producers may emit it as a JSON string or number; both map to
	// the same canonical key for de-duplication.
	ID string

	// Fields holds the full decoded object, including the original
	// "id" value in its original JSON type.
	Fields map[string]any
}

// Dataset is an ordered sequence of records. Order is significant and
// preserved by every reconciliation strategy.
type Dataset []Record

// UnmarshalJSON decodes a record object, requiring a stable "id" field
// of string or number type.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	raw, ok := fields["id"]
	if !ok {
		return fmt.Errorf("record has no id field")
	}
	id, err := canonicalID(raw)
	if err != nil {
		return err
	}

	r.ID = id
	r.Fields = fields
	return nil
}

// MarshalJSON emits the record exactly as it was decoded, original id
// representation included.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields)
}

// NewRecord builds a record from explicit fields, stamping the given id.
// Intended for tests and for callers constructing datasets in Go code.
func NewRecord(id string, fields map[string]any) Record {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["id"] = id
	return Record{ID: id, Fields: fields}
}

// Clone returns a copy whose Fields tree shares no memory with the
// original, maps and slices included.
func (r Record) Clone() Record {
	return Record{ID: r.ID, Fields: cloneValue(r.Fields).(map[string]any)}
}

// Clone deep-copies the dataset. A nil dataset stays nil.
func (d Dataset) Clone() Dataset {
	if d == nil {
		return nil
	}
	c := make(Dataset, len(d))
	for i, r := range d {
		c[i] = r.Clone()
	}
	return c
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(x))
		for i, e := range x {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return x
	}
}

func canonicalID(v any) (string, error) {
	switch x := v.(type) {
	case string:
		if x == "" {
			return "", fmt.Errorf("record id is empty")
		}
		return x, nil
	case float64:
		// encoding/json decodes all numbers as float64; integral ids
		// must not pick up a trailing ".0" or exponent.
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case json.Number:
		return x.String(), nil
	default:
		return "", fmt.Errorf("record id has unsupported type %T", v)
	}
}
