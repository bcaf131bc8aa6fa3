package domain

import "encoding/json"

// ValueKind classifies the shape of a URL-bearing field value.
type ValueKind int

const (
	// KindScalar is a single JSON string.
	KindScalar ValueKind = iota

	// KindList is a JSON array; only its string elements are considered.
	KindList

	// KindOther is any other JSON value (number, object, bool, null).
	KindOther
)

// String returns the string representation of a value kind.
func (k ValueKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// FieldValue is the resolved shape of a configured field's value. The shape is
// resolved once per field access so the processor can dispatch on Kind with an
// exhaustive switch instead of re-sniffing the raw bytes.
type FieldValue struct {
	Kind ValueKind

	// Scalar holds the string for KindScalar.
	Scalar string

	// List holds the string elements for KindList, in input order.
	List []string

	// DroppedElements counts non-string array elements that were discarded
	// while resolving a KindList value.
	DroppedElements int
}

// ResolveValue classifies a raw field value as scalar, list, or other.
func ResolveValue(raw json.RawMessage) FieldValue {
	// JSON null unmarshals into a slice without error, so reject it up front.
	if string(raw) == "null" {
		return FieldValue{Kind: KindOther}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return FieldValue{Kind: KindScalar, Scalar: s}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		fv := FieldValue{Kind: KindList, List: make([]string, 0, len(items))}
		for _, item := range items {
			var elem string
			if err := json.Unmarshal(item, &elem); err != nil {
				fv.DroppedElements++
				continue
			}
			fv.List = append(fv.List, elem)
		}
		return fv
	}

	return FieldValue{Kind: KindOther}
}
