package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"graphjson/internal/coerce"
)

// Kind selects how node identities are obtained.
type Kind uint8

const (
	// KindEdgeDerived discovers nodes from edge endpoints.
	KindEdgeDerived Kind = iota
	// KindGraphDeclared reads nodes declared in a graph file.
	KindGraphDeclared
)

func (k Kind) String() string {
	switch k {
	case KindEdgeDerived:
		return "edge-derived"
	case KindGraphDeclared:
		return "graph-declared"
	}
	return fmt.Sprintf("kind(%d)", k)
}

// NodeTable describes an optional per-node attribute table joined onto
// discovered nodes by key.
type NodeTable struct {
	KeyField string
	Schema   coerce.Schema
	// CategoryField falls back to DefaultCategory when empty or absent.
	CategoryField   string
	DefaultCategory string
}

type EdgeDerivedConfig struct {
	SourceField string
	TargetField string
	Schema      coerce.Schema
	// NodeAux names record fields copied onto both endpoint nodes at their
	// first sighting.
	NodeAux   []string
	NodeTable *NodeTable
}

type GraphDeclaredConfig struct {
	IDAttr        string
	LabelAttr     string
	WeightAttr    string
	DefaultWeight int64
	// EdgeSchema carries extra edge attributes beyond the weight.
	EdgeSchema coerce.Schema
}

// Spec is one runnable normalization job.
type Spec struct {
	Name      string
	Kind      Kind
	Input     string
	NodeInput string
	Output    string

	EdgeDerived   EdgeDerivedConfig
	GraphDeclared GraphDeclaredConfig
}

const DefaultCategory = "unknown"

func FuncallSchema() coerce.Schema {
	return coerce.Schema{
		coerce.IntField("Index", coerce.ZeroOnMissing),
		coerce.IntField("UuidFileMd5", coerce.ZeroOnMissing),
		coerce.StringField("Caller"),
		coerce.StringField("Callee"),
		coerce.IntField("Argc", coerce.ZeroOnMissing),
		coerce.StringField("Argv"),
		coerce.StringField("Return"),
		coerce.StringField("Type"),
		coerce.IntField("EdgeNum", coerce.ZeroOnMissing),
	}
}

func TransactionSchema() coerce.Schema {
	return coerce.Schema{
		coerce.StringField("from"),
		coerce.StringField("to"),
		coerce.StringField("hash"),
		coerce.IntField("value", coerce.NullOnMissing),
		coerce.IntField("timeStamp", coerce.NullOnMissing),
		coerce.IntField("blockNumber", coerce.NullOnMissing),
		coerce.StringField("tokenSymbol"),
		coerce.StringField("contractAddress"),
		coerce.IntField("isError", coerce.NullOnMissing),
		coerce.IntField("gasPrice", coerce.NullOnMissing),
		coerce.IntField("gasUsed", coerce.NullOnMissing),
	}
}

func AddressSchema() coerce.Schema {
	return coerce.Schema{
		coerce.StringField("address"),
		coerce.StringField("name_tag"),
		coerce.StringField("label"),
	}
}

var presets = map[string]func() Spec{
	"funcall": func() Spec {
		return Spec{
			Name:   "funcall",
			Kind:   KindEdgeDerived,
			Input:  "funcall.csv",
			Output: "funcall.json",
			EdgeDerived: EdgeDerivedConfig{
				SourceField: "Caller",
				TargetField: "Callee",
				Schema:      FuncallSchema(),
				NodeAux:     []string{"UuidFileMd5"},
			},
		}
	},
	"txn": func() Spec {
		return Spec{
			Name:      "txn",
			Kind:      KindEdgeDerived,
			Input:     "all-tx.csv",
			NodeInput: "all-address.csv",
			Output:    "moneylaundering.json",
			EdgeDerived: EdgeDerivedConfig{
				SourceField: "from",
				TargetField: "to",
				Schema:      TransactionSchema(),
				NodeTable: &NodeTable{
					KeyField:        "address",
					Schema:          AddressSchema(),
					CategoryField:   "label",
					DefaultCategory: DefaultCategory,
				},
			},
		}
	},
	"gml": func() Spec {
		return Spec{
			Name:   "gml",
			Kind:   KindGraphDeclared,
			Input:  "lesmiserables.gml",
			Output: "lesmiserables.json",
			GraphDeclared: GraphDeclaredConfig{
				IDAttr:        "id",
				LabelAttr:     "label",
				WeightAttr:    "value",
				DefaultWeight: 1,
			},
		}
	},
}

// Preset returns a fresh copy of a named preset.
func Preset(name string) (Spec, error) {
	build, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Spec{}, fmt.Errorf("unknown pipeline %q (want one of %s)", name, strings.Join(PresetNames(), ", "))
	}
	return build(), nil
}

func PresetNames() []string {
	out := make([]string, 0, len(presets))
	for name := range presets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Validate checks that the spec names everything its kind needs.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Input) == "" {
		return fmt.Errorf("pipeline %s: input is required", s.Name)
	}
	if strings.TrimSpace(s.Output) == "" {
		return fmt.Errorf("pipeline %s: output is required", s.Name)
	}
	switch s.Kind {
	case KindEdgeDerived:
		c := s.EdgeDerived
		if c.SourceField == "" || c.TargetField == "" {
			return fmt.Errorf("pipeline %s: source and target fields are required", s.Name)
		}
		if c.NodeTable != nil && c.NodeTable.KeyField == "" {
			return fmt.Errorf("pipeline %s: node table key field is required", s.Name)
		}
	case KindGraphDeclared:
	default:
		return fmt.Errorf("pipeline %s: unsupported kind %s", s.Name, s.Kind)
	}
	return nil
}
