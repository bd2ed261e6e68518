// Package coerce turns untyped source rows into typed attribute bags.
//
// Every conversion is best-effort: a value that cannot be parsed degrades to
// null (or to a field's documented default) and never produces an error.
// How an empty integer cell is read is an explicit per-field Policy chosen by
// the pipeline preset.
package coerce

import (
	"math/big"
	"strconv"
	"strings"

	"graphjson/internal/graph"
)

// Raw is one untyped source record (a CSV row, a GML attribute bag).
type Raw map[string]string

// Kind is the declared type of a schema field.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
)

// Policy decides what an empty integer cell becomes.
type Policy uint8

const (
	// NullOnMissing reads "" as null.
	NullOnMissing Policy = iota
	// ZeroOnMissing reads "" as 0.
	ZeroOnMissing
)

func (p Policy) String() string {
	if p == ZeroOnMissing {
		return "zero"
	}
	return "null"
}

// ParsePolicy accepts "zero"/"zero_on_missing" and "null"/"null_on_missing".
func ParsePolicy(s string) (Policy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "zero", "zero_on_missing", "zeroonmissing":
		return ZeroOnMissing, true
	case "null", "null_on_missing", "nullonmissing", "":
		return NullOnMissing, true
	}
	return NullOnMissing, false
}

func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "integer":
		return KindInt, true
	case "string", "str", "":
		return KindString, true
	}
	return KindString, false
}

// TryParseInt parses a base-10 integer after trimming surrounding whitespace.
// It reports false for empty input, non-numeric content and int64 overflow.
func TryParseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseInteger is TryParseInt widened to arbitrary precision.
func parseInteger(s string) (graph.Value, bool) {
	if n, ok := TryParseInt(s); ok {
		return graph.IntValue(n), true
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return graph.NullValue(), false
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return graph.NullValue(), false
	}
	return graph.BigValue(b), true
}

// Int coerces one integer cell under the given policy.
func Int(raw string, p Policy) graph.Value {
	if strings.TrimSpace(raw) == "" {
		if p == ZeroOnMissing {
			return graph.IntValue(0)
		}
		return graph.NullValue()
	}
	v, ok := parseInteger(raw)
	if !ok {
		return graph.NullValue()
	}
	return v
}

// WeightOr is the edge weight rule: absent or unparseable becomes def, never null.
func WeightOr(raw string, def int64) graph.Value {
	v, ok := parseInteger(raw)
	if !ok {
		return graph.IntValue(def)
	}
	return v
}
