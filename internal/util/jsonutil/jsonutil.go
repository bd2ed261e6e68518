package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalNoEscape encodes v without escaping <, > and & into \u003c etc.
// Function signatures in call-graph exports are full of them.
func MarshalNoEscape(v any) ([]byte, error) {
	return encode(v, "", "")
}

// MarshalNoEscapeIndent is MarshalNoEscape with indentation.
func MarshalNoEscapeIndent(v any, prefix, indent string) ([]byte, error) {
	return encode(v, prefix, indent)
}

func encode(v any, prefix, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if prefix != "" || indent != "" {
		enc.SetIndent(prefix, indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// json.Encoder.Encode always appends a newline.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Unmarshal decodes a single JSON value and rejects trailing data.
func Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("jsonutil: trailing data after JSON value at offset %d", dec.InputOffset())
	}
	return nil
}
