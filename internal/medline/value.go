// Package medline transforms MEDLINE/PubMed citation XML into nested
// key-value records suitable for a schema-less document store.
//
// The transform is a pure, element-name-driven recursive descent over one
// citation subtree at a time. Output shapes are stable: downstream consumers
// pattern-match on the Value kinds below instead of probing structures at
// runtime.
package medline

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies the shape of a Value.
type Kind int

// The closed set of output shapes produced by the transform.
const (
	KindScalar Kind = iota
	KindDate
	KindIdentifier
	KindTypedID
	KindMeshTerm
	KindList
	KindMapping
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindDate:
		return "date"
	case KindIdentifier:
		return "identifier"
	case KindTypedID:
		return "typed-id"
	case KindMeshTerm:
		return "mesh-term"
	case KindList:
		return "list"
	case KindMapping:
		return "mapping"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is one node of a transformed citation record. The concrete types are
// Scalar, Date, Identifier, TypedID, MeshTerm, List and Mapping; nothing else
// implements it.
type Value interface {
	Kind() Kind
}

// Scalar is a plain string leaf.
type Scalar string

// Kind implements Value.
func (Scalar) Kind() Kind { return KindScalar }

// MarshalJSON implements json.Marshaler.
func (s Scalar) MarshalJSON() ([]byte, error) { return json.Marshal(string(s)) }

// Date is a resolved calendar date. Month and Day are always valid; a date
// element whose day is absent carries Day==1.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Kind implements Value.
func (Date) Kind() Kind { return KindDate }

// Time returns the date at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// MarshalJSON implements json.Marshaler, emitting an ISO-8601 date.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time().Format("2006-01-02"))
}

// Identifier is the (value, version) pair produced for the PMID element.
// Version defaults to 1 when the source attribute is absent.
type Identifier struct {
	Value   string
	Version int
}

// Kind implements Value.
func (Identifier) Kind() Kind { return KindIdentifier }

// MarshalJSON implements json.Marshaler, emitting a two-element array.
func (id Identifier) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{id.Value, id.Version})
}

// TypedID is the (type, value) pair produced for ISSN-like elements.
type TypedID struct {
	Type  string
	Value string
}

// Kind implements Value.
func (TypedID) Kind() Kind { return KindTypedID }

// MarshalJSON implements json.Marshaler, emitting a two-element array.
func (t TypedID) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{t.Type, t.Value})
}

// MeshTerm is one MeshHeading entry: the major-topic flag, the descriptor
// name, and the qualifier names mapped to their own major-topic flags.
type MeshTerm struct {
	Major      bool
	Descriptor string
	Qualifiers map[string]bool
}

// Kind implements Value.
func (MeshTerm) Kind() Kind { return KindMeshTerm }

// MarshalJSON implements json.Marshaler, emitting a three-element array.
func (m MeshTerm) MarshalJSON() ([]byte, error) {
	qualifiers := m.Qualifiers
	if qualifiers == nil {
		qualifiers = map[string]bool{}
	}
	return json.Marshal([3]any{m.Major, m.Descriptor, qualifiers})
}

// List is the ordered sequence produced for *List-suffixed elements.
type List []Value

// Kind implements Value.
func (List) Kind() Kind { return KindList }

// Mapping is a nested record: field name to value. Branch elements and
// whole citation records share this shape.
type Mapping map[string]Value

// Kind implements Value.
func (Mapping) Kind() Kind { return KindMapping }

// Record is the output of transforming one top-level citation element.
type Record = Mapping

// Scalar returns the string under key if it holds a Scalar value.
func (m Mapping) Scalar(key string) (string, bool) {
	s, ok := m[key].(Scalar)
	return string(s), ok
}

// Mapping returns the nested mapping under key if it holds a Mapping value.
func (m Mapping) Mapping(key string) (Mapping, bool) {
	v, ok := m[key].(Mapping)
	return v, ok
}
