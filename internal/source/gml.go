package source

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"unicode"

	"graphjson/internal/coerce"
	"graphjson/internal/safeio"
)

// ScalarKind is the lexical type of a GML scalar.
type ScalarKind uint8

const (
	ScalarString ScalarKind = iota
	ScalarInt
	ScalarReal
)

// DeclaredNode is one `node [ ... ]` block. Blocks are never merged: two
// nodes with the same label or id stay two nodes.
type DeclaredNode struct {
	ID    string
	HasID bool
	Label string
	// HasLabel is false when the block carries no label attribute.
	HasLabel bool
	Attrs    coerce.Raw
	Kinds    map[string]ScalarKind
}

// DeclaredEdge carries its endpoint references as written in the source.
type DeclaredEdge struct {
	Source string
	Target string
	Attrs  coerce.Raw
	Kinds  map[string]ScalarKind
}

// DeclaredGraph is the parsed content of the first `graph [ ... ]` block.
type DeclaredGraph struct {
	Directed bool
	Nodes    []DeclaredNode
	Edges    []DeclaredEdge
}

// GMLFile opens path under root and parses it with GML.
func GMLFile(root *safeio.Root, path string) (*DeclaredGraph, error) {
	f, err := root.Open(path)
	if err != nil {
		return nil, unavailable("open", path, err)
	}
	defer f.Close()
	g, err := GML(f)
	if err != nil {
		return nil, unavailable("parse", path, err)
	}
	return g, nil
}

// GML parses a Graph Modelling Language document. Nested lists inside node
// and edge blocks (graphics, LabelGraphics, ...) are skipped; only scalar
// attributes reach the attribute bags.
func GML(r io.Reader) (*DeclaredGraph, error) {
	lx := &gmlLexer{r: bufio.NewReader(r), line: 1}
	top, err := parseGMLList(lx, false)
	if err != nil {
		return nil, err
	}
	for _, kv := range top {
		if kv.key == "graph" && kv.list != nil {
			return buildDeclaredGraph(kv.list), nil
		}
	}
	return nil, fmt.Errorf("gml: no graph block")
}

type gmlPair struct {
	key  string
	text string
	kind ScalarKind
	list []gmlPair
}

func buildDeclaredGraph(items []gmlPair) *DeclaredGraph {
	g := &DeclaredGraph{}

	for _, it := range items {
		switch {
		case it.key == "directed" && it.list == nil:
			g.Directed = strings.TrimSpace(it.text) == "1"
		case it.key == "node" && it.list != nil:
			n := DeclaredNode{Attrs: coerce.Raw{}, Kinds: map[string]ScalarKind{}}
			for _, a := range it.list {
				if a.list != nil {
					continue
				}
				if _, dup := n.Attrs[a.key]; dup {
					continue
				}
				n.Attrs[a.key] = a.text
				n.Kinds[a.key] = a.kind
			}
			n.ID, n.HasID = n.Attrs["id"]
			n.Label, n.HasLabel = n.Attrs["label"]
			g.Nodes = append(g.Nodes, n)
		case it.key == "edge" && it.list != nil:
			e := DeclaredEdge{Attrs: coerce.Raw{}, Kinds: map[string]ScalarKind{}}
			for _, a := range it.list {
				if a.list != nil {
					continue
				}
				if _, dup := e.Attrs[a.key]; dup {
					continue
				}
				e.Attrs[a.key] = a.text
				e.Kinds[a.key] = a.kind
			}
			e.Source = e.Attrs["source"]
			e.Target = e.Attrs["target"]
			g.Edges = append(g.Edges, e)
		}
	}
	return g
}

func parseGMLList(lx *gmlLexer, nested bool) ([]gmlPair, error) {
	var out []gmlPair
	for {
		tok, err := lx.next()
		if err == io.EOF {
			if nested {
				return nil, lx.errorf("unexpected end of input, missing ]")
			}
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if tok.kind == tokClose {
			if !nested {
				return nil, lx.errorf("unexpected ]")
			}
			return out, nil
		}
		if tok.kind != tokKey {
			return nil, lx.errorf("expected key, got %q", tok.text)
		}
		val, err := lx.next()
		if err == io.EOF {
			return nil, lx.errorf("key %q has no value", tok.text)
		}
		if err != nil {
			return nil, err
		}
		pair := gmlPair{key: tok.text}
		switch val.kind {
		case tokOpen:
			list, err := parseGMLList(lx, true)
			if err != nil {
				return nil, err
			}
			if list == nil {
				list = []gmlPair{}
			}
			pair.list = list
		case tokString:
			pair.text, pair.kind = val.text, ScalarString
		case tokInt:
			pair.text, pair.kind = val.text, ScalarInt
		case tokReal:
			pair.text, pair.kind = val.text, ScalarReal
		default:
			return nil, lx.errorf("key %q: unexpected %q", tok.text, val.text)
		}
		out = append(out, pair)
	}
}

type tokKind uint8

const (
	tokKey tokKind = iota
	tokString
	tokInt
	tokReal
	tokOpen
	tokClose
)

type gmlToken struct {
	kind tokKind
	text string
}

type gmlLexer struct {
	r    *bufio.Reader
	line int
}

func (lx *gmlLexer) errorf(format string, args ...any) error {
	return fmt.Errorf("gml line %d: %s", lx.line, fmt.Sprintf(format, args...))
}

func (lx *gmlLexer) read() (rune, error) {
	c, _, err := lx.r.ReadRune()
	if err == nil && c == '\n' {
		lx.line++
	}
	return c, err
}

func (lx *gmlLexer) unread(c rune) {
	_ = lx.r.UnreadRune()
	if c == '\n' {
		lx.line--
	}
}

func (lx *gmlLexer) next() (gmlToken, error) {
	for {
		c, err := lx.read()
		if err != nil {
			return gmlToken{}, err
		}
		switch {
		case unicode.IsSpace(c):
			continue
		case c == '#':
			if err := lx.skipLine(); err != nil {
				return gmlToken{}, err
			}
			continue
		case c == '[':
			return gmlToken{kind: tokOpen, text: "["}, nil
		case c == ']':
			return gmlToken{kind: tokClose, text: "]"}, nil
		case c == '"':
			return lx.readString()
		case c == '+' || c == '-' || c == '.' || unicode.IsDigit(c):
			lx.unread(c)
			return lx.readNumber()
		case c == '_' || unicode.IsLetter(c):
			lx.unread(c)
			return lx.readKey()
		default:
			return gmlToken{}, lx.errorf("unexpected character %q", c)
		}
	}
}

func (lx *gmlLexer) skipLine() error {
	for {
		c, err := lx.read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if c == '\n' {
			return nil
		}
	}
}

func (lx *gmlLexer) readString() (gmlToken, error) {
	var b strings.Builder
	for {
		c, err := lx.read()
		if err == io.EOF {
			return gmlToken{}, lx.errorf("unterminated string")
		}
		if err != nil {
			return gmlToken{}, err
		}
		if c == '"' {
			return gmlToken{kind: tokString, text: html.UnescapeString(b.String())}, nil
		}
		b.WriteRune(c)
	}
}

func (lx *gmlLexer) readWhile(keep func(rune) bool) (string, error) {
	var b strings.Builder
	for {
		c, err := lx.read()
		if err == io.EOF {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
		if !keep(c) {
			lx.unread(c)
			return b.String(), nil
		}
		b.WriteRune(c)
	}
}

func (lx *gmlLexer) readKey() (gmlToken, error) {
	text, err := lx.readWhile(func(c rune) bool {
		return c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c)
	})
	if err != nil {
		return gmlToken{}, err
	}
	// Bare INF/NAN are reals in GML.
	switch strings.ToUpper(text) {
	case "INF", "NAN":
		return gmlToken{kind: tokReal, text: text}, nil
	}
	return gmlToken{kind: tokKey, text: text}, nil
}

func (lx *gmlLexer) readNumber() (gmlToken, error) {
	text, err := lx.readWhile(func(c rune) bool {
		return c == '+' || c == '-' || c == '.' || c == 'e' || c == 'E' || unicode.IsDigit(c) ||
			c == 'I' || c == 'N' || c == 'F'
	})
	if err != nil {
		return gmlToken{}, err
	}
	if _, err := strconv.ParseInt(text, 10, 64); err == nil {
		return gmlToken{kind: tokInt, text: text}, nil
	}
	if isDigits(text) {
		return gmlToken{kind: tokInt, text: text}, nil
	}
	if _, err := strconv.ParseFloat(text, 64); err == nil {
		return gmlToken{kind: tokReal, text: text}, nil
	}
	return gmlToken{}, lx.errorf("malformed number %q", text)
}

// isDigits accepts signed integers too wide for int64.
func isDigits(text string) bool {
	text = strings.TrimLeft(text, "+-")
	if text == "" {
		return false
	}
	for _, c := range text {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
