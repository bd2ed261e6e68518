package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"graphjson/internal/util/jsonutil"
)

// Reserved keys always come from the struct fields; attributes carrying the
// same key are dropped on output.
var (
	nodeReserved = map[string]struct{}{"id": {}, "name": {}}
	edgeReserved = map[string]struct{}{"source": {}, "target": {}}
)

func (n Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"id":`)
	buf.WriteString(strconv.FormatInt(n.ID, 10))
	buf.WriteString(`,"name":`)
	name, err := StringValue(n.Name).MarshalJSON()
	if err != nil {
		return nil, err
	}
	buf.Write(name)
	if err := writeAttrs(&buf, n.Attrs, nodeReserved); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (e Edge) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"source":`)
	buf.WriteString(strconv.FormatInt(e.Source, 10))
	buf.WriteString(`,"target":`)
	buf.WriteString(strconv.FormatInt(e.Target, 10))
	if err := writeAttrs(&buf, e.Attrs, edgeReserved); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeAttrs(buf *bytes.Buffer, attrs Attrs, reserved map[string]struct{}) error {
	for _, at := range attrs {
		if _, skip := reserved[at.Key]; skip {
			continue
		}
		key, err := StringValue(at.Key).MarshalJSON()
		if err != nil {
			return err
		}
		val, err := at.Value.MarshalJSON()
		if err != nil {
			return err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	return nil
}

type documentJSON struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

func (d Document) MarshalJSON() ([]byte, error) {
	out := documentJSON{Nodes: d.Nodes, Edges: d.Edges}
	if out.Nodes == nil {
		out.Nodes = []Node{}
	}
	if out.Edges == nil {
		out.Edges = []Edge{}
	}
	return jsonutil.MarshalNoEscape(out)
}

func (d *Document) UnmarshalJSON(raw []byte) error {
	var in documentJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return err
	}
	d.Nodes = in.Nodes
	d.Edges = in.Edges
	return nil
}

func (n *Node) UnmarshalJSON(raw []byte) error {
	fields, err := decodeOrdered(raw)
	if err != nil {
		return fmt.Errorf("graph: node: %w", err)
	}
	out := Node{}
	for _, f := range fields {
		switch f.Key {
		case "id":
			id, ok := f.Value.AsInt()
			if !ok {
				return fmt.Errorf("graph: node id %s is not an integer", f.Value)
			}
			out.ID = id
		case "name":
			out.Name = f.Value.String()
			if f.Value.IsNull() {
				out.Name = ""
			}
		default:
			out.Attrs = append(out.Attrs, f)
		}
	}
	*n = out
	return nil
}

func (e *Edge) UnmarshalJSON(raw []byte) error {
	fields, err := decodeOrdered(raw)
	if err != nil {
		return fmt.Errorf("graph: edge: %w", err)
	}
	out := Edge{}
	for _, f := range fields {
		switch f.Key {
		case "source", "target":
			id, ok := f.Value.AsInt()
			if !ok {
				return fmt.Errorf("graph: edge %s %s is not an integer", f.Key, f.Value)
			}
			if f.Key == "source" {
				out.Source = id
			} else {
				out.Target = id
			}
		default:
			out.Attrs = append(out.Attrs, f)
		}
	}
	*e = out
	return nil
}

// decodeOrdered reads a flat JSON object keeping key order.
func decodeOrdered(raw []byte) (Attrs, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object")
	}
	var out Attrs
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key")
		}
		var rv json.RawMessage
		if err := dec.Decode(&rv); err != nil {
			return nil, err
		}
		var v Value
		if err := v.UnmarshalJSON(rv); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out = append(out, Attr{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}

// DecodeDocument parses a document previously produced by MarshalJSON.
// Anything after the document is an error.
func DecodeDocument(raw []byte) (*Document, error) {
	var doc Document
	if err := jsonutil.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}
