package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	default:
		return "null"
	}
}

// Value is one of integer, string or null. The zero Value is null.
// Integers that do not fit in int64 are kept exactly in big.
type Value struct {
	kind Kind
	n    int64
	big  *big.Int
	s    string
}

func NullValue() Value { return Value{} }

func IntValue(n int64) Value { return Value{kind: KindInt, n: n} }

// BigValue stores b as an integer, collapsing to the int64 form when it fits.
func BigValue(b *big.Int) Value {
	if b == nil {
		return Value{}
	}
	if b.IsInt64() {
		return IntValue(b.Int64())
	}
	return Value{kind: KindInt, big: new(big.Int).Set(b)}
}

func StringValue(s string) Value { return Value{kind: KindString, s: s} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsInt returns the integer when it is held and fits in int64.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt || v.big != nil {
		return 0, false
	}
	return v.n, true
}

// AsBig returns any held integer, including ones beyond int64.
func (v Value) AsBig() (*big.Int, bool) {
	if v.kind != KindInt {
		return nil, false
	}
	if v.big != nil {
		return new(big.Int).Set(v.big), true
	}
	return big.NewInt(v.n), true
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		a, _ := v.AsBig()
		b, _ := o.AsBig()
		return a.Cmp(b) == 0
	case KindString:
		return v.s == o.s
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		if v.big != nil {
			return v.big.String()
		}
		return strconv.FormatInt(v.n, 10)
	case KindString:
		return v.s
	default:
		return "null"
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return []byte(v.String()), nil
	case KindString:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v.s); err != nil {
			return nil, err
		}
		return bytes.TrimRight(buf.Bytes(), "\n"), nil
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*v = NullValue()
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	}
	b, ok := new(big.Int).SetString(string(raw), 10)
	if !ok {
		return fmt.Errorf("graph: value %s is not an integer, string or null", raw)
	}
	*v = BigValue(b)
	return nil
}
