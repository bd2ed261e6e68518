package source

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphjson/internal/safeio"
)

func TestCSVDictReaderSemantics(t *testing.T) {
	in := "\ufeffCaller,Callee,Index\n" +
		"main,foo,3\n" +
		"\n" +
		"foo,bar\n" +
		"bar,baz,1,extra\n"
	rows, err := CSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "main", rows[0]["Caller"])
	assert.Equal(t, "3", rows[0]["Index"])

	_, ok := rows[1]["Index"]
	assert.False(t, ok, "short row leaves trailing key absent")

	assert.Len(t, rows[2], 3, "extra cells are ignored")
}

func TestCSVEmptyInput(t *testing.T) {
	rows, err := CSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCSVQuotedFields(t *testing.T) {
	rows, err := CSV(strings.NewReader("Caller,Argv\nf,\"int a, char **b\"\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "int a, char **b", rows[0]["Argv"])
}

const miserables = `Creator "test"
graph
[
  directed 0
  # characters
  node
  [
    id 0
    label "Myriel"
    graphics [ x 1.5 y 2 ]
  ]
  node
  [
    id 1
    label "Napoleon"
  ]
  node
  [
    label "Mlle &amp; Baptistine"
  ]
  edge
  [
    source 1
    target 0
    value 1
  ]
  edge
  [
    source 0
    target 7
    value 2.5
  ]
]
`

func TestGMLParsesNodesAndEdges(t *testing.T) {
	g, err := GML(strings.NewReader(miserables))
	require.NoError(t, err)
	assert.False(t, g.Directed)
	require.Len(t, g.Nodes, 3)
	require.Len(t, g.Edges, 2)

	assert.Equal(t, "Myriel", g.Nodes[0].Label)
	assert.True(t, g.Nodes[0].HasID)
	assert.Equal(t, "0", g.Nodes[0].ID)
	_, hasGraphics := g.Nodes[0].Attrs["graphics"]
	assert.False(t, hasGraphics)

	assert.Equal(t, "Mlle & Baptistine", g.Nodes[2].Label)
	assert.False(t, g.Nodes[2].HasID)

	// Endpoints stay raw id references.
	assert.Equal(t, "1", g.Edges[0].Source)
	assert.Equal(t, "0", g.Edges[0].Target)
	assert.Equal(t, ScalarInt, g.Edges[0].Kinds["value"])

	assert.Equal(t, "7", g.Edges[1].Target)
	assert.Equal(t, ScalarReal, g.Edges[1].Kinds["value"])
	assert.Equal(t, "2.5", g.Edges[1].Attrs["value"])
}

func TestGMLNodeWithoutLabel(t *testing.T) {
	g, err := GML(strings.NewReader(`graph [ directed 1 node [ id 42 ] edge [ source 42 target 42 ] ]`))
	require.NoError(t, err)
	assert.True(t, g.Directed)
	assert.False(t, g.Nodes[0].HasLabel)
	assert.Equal(t, "42", g.Nodes[0].ID)
	assert.Equal(t, "42", g.Edges[0].Source)
}

func TestGMLKeepsEveryNodeBlock(t *testing.T) {
	// A label that reads like another node's id, and blocks without any
	// identifying attribute, still yield one node per block.
	g, err := GML(strings.NewReader(`graph [
  node [ id 1 label "2" ]
  node [ id 2 ]
  node [ label "node 1" ]
  node [ ]
  node [ ]
  edge [ source 1 target 2 ]
]`))
	require.NoError(t, err)
	if len(g.Nodes) != 5 {
		t.Fatalf("nodes: got=%d want=5", len(g.Nodes))
	}
	assert.Equal(t, "1", g.Edges[0].Source)
	assert.Equal(t, "2", g.Edges[0].Target)
}

func TestGMLMalformed(t *testing.T) {
	for name, in := range map[string]string{
		"unclosed":   `graph [ node [ id 1 ]`,
		"no graph":   `Creator "x"`,
		"stray":      `graph [ ] ]`,
		"bad string": `graph [ node [ label "oops ] ]`,
		"no value":   `graph [ node [ id`,
	} {
		if _, err := GML(strings.NewReader(in)); err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
	}
}

func TestFileReadersWrapSourceUnavailable(t *testing.T) {
	dir := t.TempDir()
	root, err := safeio.NewRoot(dir)
	require.NoError(t, err)

	_, err = CSVFile(root, "missing.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.gml"), []byte("graph ["), 0o644))
	_, err = GMLFile(root, "bad.gml")
	var se *SourceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "parse", se.Op)
	assert.Equal(t, "bad.gml", se.Path)
}
