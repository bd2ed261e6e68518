package coerce

import (
	"strings"

	"graphjson/internal/graph"
)

// Field is one entry of a record schema.
type Field struct {
	Name   string
	Kind   Kind
	Policy Policy
}

func StringField(name string) Field { return Field{Name: name, Kind: KindString} }

func IntField(name string, p Policy) Field { return Field{Name: name, Kind: KindInt, Policy: p} }

// Schema is the fixed, ordered field set of one pipeline's records.
type Schema []Field

// Names lists field names in schema order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.Name
	}
	return out
}

func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// WithPolicy returns a copy where every integer field uses p.
func (s Schema) WithPolicy(p Policy) Schema {
	out := make(Schema, len(s))
	copy(out, s)
	for i := range out {
		if out[i].Kind == KindInt {
			out[i].Policy = p
		}
	}
	return out
}

// Normalize produces one typed value per schema field, in schema order.
// Keys of raw that the schema does not name are dropped.
func (s Schema) Normalize(raw Raw) graph.Attrs {
	out := make(graph.Attrs, 0, len(s))
	for _, f := range s {
		out = append(out, graph.Attr{Key: f.Name, Value: f.Coerce(raw[f.Name])})
	}
	return out
}

// Coerce converts a single cell according to the field's kind and policy.
func (f Field) Coerce(cell string) graph.Value {
	if f.Kind == KindInt {
		return Int(cell, f.Policy)
	}
	return graph.StringValue(strings.TrimSpace(cell))
}
