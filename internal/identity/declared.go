package identity

import "graphjson/internal/coerce"

type declaration struct {
	rawID string
	hasID bool
}

// Declared collects explicitly declared nodes before any id is assigned.
// Every declaration is its own node, addressed by declaration index, so two
// nodes never merge because their labels or ids happen to coincide.
// Resolution is two-phase: every parseable declared id is claimed first and
// only then are ids minted, so a minted id never collides with a declared id
// that appears later in the source.
type Declared struct {
	decls []declaration
}

func NewDeclared() *Declared { return &Declared{} }

// Declare registers one node with its optional raw id and returns its index.
func (d *Declared) Declare(rawID string, hasID bool) int {
	d.decls = append(d.decls, declaration{rawID: rawID, hasID: hasID})
	return len(d.decls) - 1
}

// Resolve assigns an id to every declaration.
func (d *Declared) Resolve() *Table {
	t := &Table{
		declared: make([]int64, len(d.decls)),
		owner:    make(map[int64]struct{}, len(d.decls)),
		refs:     make(map[string]int64),
	}

	var unresolved []int
	for i, decl := range d.decls {
		if !decl.hasID {
			unresolved = append(unresolved, i)
			continue
		}
		n, ok := coerce.TryParseInt(decl.rawID)
		if !ok {
			unresolved = append(unresolved, i)
			continue
		}
		if _, taken := t.owner[n]; taken {
			t.ambiguities++
			unresolved = append(unresolved, i)
			continue
		}
		t.own(n)
		t.declared[i] = n
	}
	for _, i := range unresolved {
		t.declared[i] = t.mint()
	}
	return t
}

// Injected is a node materialized for an edge reference no declaration owns.
type Injected struct {
	Ref string
	ID  int64
}

// Table is the resolved id space of a declared graph.
type Table struct {
	declared []int64
	owner    map[int64]struct{}
	// refs caches undeclared endpoint references.
	refs     map[string]int64
	injected []Injected
	next     int64

	ambiguities int
}

func (t *Table) own(id int64) { t.owner[id] = struct{}{} }

// mint returns the smallest non-negative id not yet owned, at or above the
// previous mint.
func (t *Table) mint() int64 {
	for {
		if _, taken := t.owner[t.next]; !taken {
			id := t.next
			t.next++
			t.own(id)
			return id
		}
		t.next++
	}
}

// ID returns the id of the declaration at index.
func (t *Table) ID(index int) (int64, bool) {
	if index < 0 || index >= len(t.declared) {
		return 0, false
	}
	return t.declared[index], true
}

// Endpoint resolves an edge reference that matches no declaration. It never
// fails: an integer naming an owned id refers to that node, an unused
// integer is taken verbatim, anything else is minted. New ids are injected
// as nodes so edges always reference a present node. Each distinct ref
// counts as one ambiguity however often it is referenced.
func (t *Table) Endpoint(ref string) int64 {
	if id, ok := t.refs[ref]; ok {
		return id
	}
	t.ambiguities++
	if n, ok := coerce.TryParseInt(ref); ok {
		t.refs[ref] = n
		if _, taken := t.owner[n]; taken {
			return n
		}
		t.own(n)
		t.injected = append(t.injected, Injected{Ref: ref, ID: n})
		return n
	}
	id := t.mint()
	t.refs[ref] = id
	t.injected = append(t.injected, Injected{Ref: ref, ID: id})
	return id
}

func (t *Table) Len() int { return len(t.declared) }

// Injected returns nodes materialized by Endpoint, in first-reference order.
func (t *Table) Injected() []Injected {
	out := make([]Injected, len(t.injected))
	copy(out, t.injected)
	return out
}

// Ambiguities counts substitutions: duplicate declared ids and distinct
// undeclared endpoint references.
func (t *Table) Ambiguities() int { return t.ambiguities }
