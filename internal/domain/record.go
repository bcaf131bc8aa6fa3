// Package domain defines the core data types shared across the cleaning pipeline.
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotObject is returned when a JSON line does not contain an object.
var ErrNotObject = errors.New("JSON value is not an object")

// Field is a single named value inside a record.
type Field struct {
	Name  string
	Value json.RawMessage
}

// Record is one JSON object from the input stream. Field order is preserved
// from the input, and values of fields the processor never touches are kept
// as their original raw bytes so they round-trip unchanged.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{index: make(map[string]int)}
}

// ParseRecord decodes a single JSON object from data.
func ParseRecord(data []byte) (*Record, error) {
	r := NewRecord()
	if err := r.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return r, nil
}

// UnmarshalJSON decodes a JSON object while preserving field order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read object start: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return ErrNotObject
	}

	r.fields = r.fields[:0]
	r.index = make(map[string]int)

	for dec.More() {
		keyTok, keyErr := dec.Token()
		if keyErr != nil {
			return fmt.Errorf("read field name: %w", keyErr)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected field name token %v", keyTok)
		}

		var raw json.RawMessage
		if decErr := dec.Decode(&raw); decErr != nil {
			return fmt.Errorf("read value of field %q: %w", key, decErr)
		}
		r.Set(key, raw)
	}

	// Consume the closing brace.
	if _, err = dec.Token(); err != nil {
		return fmt.Errorf("read object end: %w", err)
	}
	return nil
}

// MarshalJSON encodes the record with its fields in original order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, fmt.Errorf("encode field name %q: %w", f.Name, err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(f.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the raw value of the named field.
func (r *Record) Get(name string) (json.RawMessage, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.fields[i].Value, true
}

// Has reports whether the named field is present.
func (r *Record) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Set replaces the named field's value, or appends the field if absent.
func (r *Record) Set(name string, value json.RawMessage) {
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// SetString sets the named field to a JSON string.
func (r *Record) SetString(name, value string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode string value: %w", err)
	}
	r.Set(name, raw)
	return nil
}

// SetStringList sets the named field to a JSON array of strings.
func (r *Record) SetStringList(name string, values []string) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode string list: %w", err)
	}
	r.Set(name, raw)
	return nil
}

// Delete removes the named field, keeping the order of the remaining fields.
func (r *Record) Delete(name string) {
	i, ok := r.index[name]
	if !ok {
		return
	}
	r.fields = append(r.fields[:i], r.fields[i+1:]...)
	delete(r.index, name)
	for j := i; j < len(r.fields); j++ {
		r.index[r.fields[j].Name] = j
	}
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.fields)
}

// Fields returns the record's fields in order. The returned slice is shared;
// callers must not mutate it.
func (r *Record) Fields() []Field {
	return r.fields
}
