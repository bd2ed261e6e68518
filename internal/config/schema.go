package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"graphjson/internal/coerce"
	"graphjson/internal/pipeline"
)

// SchemaFile overrides parts of a pipeline preset. Omitted keys keep the
// preset's value.
type SchemaFile struct {
	SourceField string      `yaml:"source_field,omitempty"`
	TargetField string      `yaml:"target_field,omitempty"`
	Policy      string      `yaml:"policy,omitempty"`
	Fields      []FieldSpec `yaml:"fields,omitempty"`
	NodeAux     []string    `yaml:"node_aux,omitempty"`

	NodeTable *NodeTableSpec `yaml:"node_table,omitempty"`
	Graph     *GraphSpec     `yaml:"graph,omitempty"`
}

type FieldSpec struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind,omitempty"`
	Policy string `yaml:"policy,omitempty"`
}

type NodeTableSpec struct {
	Key             string      `yaml:"key"`
	Category        string      `yaml:"category,omitempty"`
	DefaultCategory string      `yaml:"default_category,omitempty"`
	Fields          []FieldSpec `yaml:"fields,omitempty"`
}

type GraphSpec struct {
	IDAttr        string      `yaml:"id_attr,omitempty"`
	LabelAttr     string      `yaml:"label_attr,omitempty"`
	WeightAttr    string      `yaml:"weight_attr,omitempty"`
	DefaultWeight *int64      `yaml:"default_weight,omitempty"`
	EdgeFields    []FieldSpec `yaml:"edge_fields,omitempty"`
}

func LoadSchemaFile(path string) (*SchemaFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return ParseSchema(data)
}

func ParseSchema(data []byte) (*SchemaFile, error) {
	var sf SchemaFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}
	return &sf, nil
}

// ApplyTo merges the overrides into spec.
func (sf *SchemaFile) ApplyTo(spec *pipeline.Spec) error {
	if sf == nil || spec == nil {
		return nil
	}
	ed := &spec.EdgeDerived
	if sf.SourceField != "" {
		ed.SourceField = sf.SourceField
	}
	if sf.TargetField != "" {
		ed.TargetField = sf.TargetField
	}
	var policy *coerce.Policy
	if sf.Policy != "" {
		p, ok := coerce.ParsePolicy(sf.Policy)
		if !ok {
			return fmt.Errorf("unknown policy %q", sf.Policy)
		}
		policy = &p
	}
	switch {
	case len(sf.Fields) > 0:
		// The top-level policy is the default for fields that name none.
		schema, err := buildSchema(sf.Fields, policy)
		if err != nil {
			return err
		}
		ed.Schema = schema
	case policy != nil:
		ed.Schema = ed.Schema.WithPolicy(*policy)
	}
	if sf.NodeAux != nil {
		ed.NodeAux = append([]string(nil), sf.NodeAux...)
	}
	if t := sf.NodeTable; t != nil {
		table := &pipeline.NodeTable{
			KeyField:        t.Key,
			CategoryField:   t.Category,
			DefaultCategory: firstNonEmpty(t.DefaultCategory, pipeline.DefaultCategory),
		}
		if ed.NodeTable != nil && len(t.Fields) == 0 {
			table.Schema = ed.NodeTable.Schema
		}
		if len(t.Fields) > 0 {
			schema, err := buildSchema(t.Fields, nil)
			if err != nil {
				return err
			}
			table.Schema = schema
		}
		ed.NodeTable = table
	}
	if g := sf.Graph; g != nil {
		gd := &spec.GraphDeclared
		if g.IDAttr != "" {
			gd.IDAttr = g.IDAttr
		}
		if g.LabelAttr != "" {
			gd.LabelAttr = g.LabelAttr
		}
		if g.WeightAttr != "" {
			gd.WeightAttr = g.WeightAttr
		}
		if g.DefaultWeight != nil {
			gd.DefaultWeight = *g.DefaultWeight
		}
		if len(g.EdgeFields) > 0 {
			schema, err := buildSchema(g.EdgeFields, nil)
			if err != nil {
				return err
			}
			gd.EdgeSchema = schema
		}
	}
	return nil
}

func buildSchema(specs []FieldSpec, def *coerce.Policy) (coerce.Schema, error) {
	out := make(coerce.Schema, 0, len(specs))
	for _, fs := range specs {
		name := strings.TrimSpace(fs.Name)
		if name == "" {
			return nil, fmt.Errorf("schema field without a name")
		}
		kind, ok := coerce.ParseKind(fs.Kind)
		if !ok {
			return nil, fmt.Errorf("field %s: unknown kind %q", name, fs.Kind)
		}
		policy, ok := coerce.ParsePolicy(fs.Policy)
		if !ok {
			return nil, fmt.Errorf("field %s: unknown policy %q", name, fs.Policy)
		}
		if strings.TrimSpace(fs.Policy) == "" && def != nil {
			policy = *def
		}
		out = append(out, coerce.Field{Name: name, Kind: kind, Policy: policy})
	}
	return out, nil
}
