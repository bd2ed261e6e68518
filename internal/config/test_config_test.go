package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphjson/internal/coerce"
	"graphjson/internal/pipeline"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GRAPHJSON_PIPELINE", "GRAPHJSON_IN_DIR", "GRAPHJSON_RUN_ID", "GRAPHJSON_SCHEMA",
		"GRAPHJSON_SINK", "GRAPHJSON_OUT_DIR", "GRAPHJSON_CACHE_ENTRIES", "GRAPHJSON_PG_DSN",
		"DATABASE_URL", "GRAPHJSON_REDIS_URL", "REDIS_URL", "GRAPHJSON_REDIS_PREFIX", "GRAPHJSON_REDIS_TTL",
		"ARTIFACT_S3_ENDPOINT", "ARTIFACT_MINIO_ENDPOINT", "ARTIFACT_S3_ACCESS_KEY", "ARTIFACT_S3_SECRET_KEY",
		"MINIO_ROOT_USER", "MINIO_ROOT_PASSWORD", "ARTIFACT_S3_BUCKET", "ARTIFACT_S3_USE_SSL",
		"ARTIFACT_S3_PREFIX", "ARTIFACT_S3_URL_EXPIRY",
	} {
		t.Setenv(k, "")
	}
}

func TestParseDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := parse(nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "funcall", cfg.Pipeline)
	assert.Equal(t, SinkFile, cfg.Sink.Kind)
	assert.Equal(t, ".", cfg.Sink.OutDir)
	assert.Empty(t, cfg.RunID, "file sink writes at the output root")
	assert.False(t, cfg.Sink.Artifact.CanUseS3())
}

func TestParseFlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GRAPHJSON_PIPELINE", "txn")
	t.Setenv("GRAPHJSON_SINK", "redis")
	t.Setenv("GRAPHJSON_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("GRAPHJSON_REDIS_TTL", "90s")
	t.Setenv("GRAPHJSON_CACHE_ENTRIES", "16")

	cfg, err := parse([]string{"-pipeline", "GML", "-in", "graph.gml"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "gml", cfg.Pipeline)
	assert.Equal(t, "graph.gml", cfg.Input)
	assert.Equal(t, SinkRedis, cfg.Sink.Kind)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Sink.Redis.URL)
	assert.Equal(t, "1m30s", cfg.Sink.Redis.TTL.String())
	assert.Equal(t, 16, cfg.Sink.CacheEntries)
	assert.NotEmpty(t, cfg.RunID, "remote sinks get a generated run id")
}

func TestParseRejectsUnknownSink(t *testing.T) {
	clearEnv(t)
	_, err := parse([]string{"-sink", "ftp"}, io.Discard)
	require.Error(t, err)
}

func TestArtifactConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARTIFACT_MINIO_ENDPOINT", "minio:9000")
	t.Setenv("MINIO_ROOT_USER", "user")
	t.Setenv("MINIO_ROOT_PASSWORD", "secret")
	t.Setenv("ARTIFACT_S3_PREFIX", "graphs")
	t.Setenv("ARTIFACT_S3_URL_EXPIRY", "15m")

	a := loadArtifactConfig()
	assert.True(t, a.CanUseS3())
	assert.Equal(t, "graphjson-documents", a.Bucket)
	assert.False(t, a.UseSSL)
	assert.Equal(t, "graphs", a.Prefix)
	assert.Equal(t, 15*time.Minute, a.URLExpiry)
}

const schemaYAML = `
source_field: src
target_field: dst
policy: zero
fields:
  - name: src
  - name: dst
  - name: calls
    kind: int
    policy: null_on_missing
  - name: depth
    kind: int
node_aux: []
node_table:
  key: name
  category: kind
  fields:
    - name: name
    - name: kind
graph:
  default_weight: 3
`

func TestSchemaFileApplyTo(t *testing.T) {
	sf, err := ParseSchema([]byte(schemaYAML))
	require.NoError(t, err)

	spec, err := pipeline.Preset("funcall")
	require.NoError(t, err)
	require.NoError(t, sf.ApplyTo(&spec))

	ed := spec.EdgeDerived
	assert.Equal(t, "src", ed.SourceField)
	assert.Equal(t, []string{"src", "dst", "calls", "depth"}, ed.Schema.Names())
	calls, ok := ed.Schema.Field("calls")
	require.True(t, ok)
	if calls.Policy != coerce.NullOnMissing {
		t.Fatalf("explicit field policy: got=%v want=%v", calls.Policy, coerce.NullOnMissing)
	}
	depth, ok := ed.Schema.Field("depth")
	require.True(t, ok)
	assert.Equal(t, coerce.ZeroOnMissing, depth.Policy, "fields without a policy take the top-level one")
	assert.Empty(t, ed.NodeAux)
	require.NotNil(t, ed.NodeTable)
	assert.Equal(t, "unknown", ed.NodeTable.DefaultCategory)
	assert.Equal(t, int64(3), spec.GraphDeclared.DefaultWeight)
}

func TestSchemaFileRejectsBadKind(t *testing.T) {
	sf, err := ParseSchema([]byte("fields:\n  - name: x\n    kind: float\n"))
	require.NoError(t, err)
	spec, _ := pipeline.Preset("funcall")
	require.Error(t, sf.ApplyTo(&spec))
}

func TestPipelineSpecOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte("policy: zero\n"), 0o644))

	cfg, err := parse([]string{"-pipeline", "txn", "-out", "ml.json", "-schema", schemaPath}, io.Discard)
	require.NoError(t, err)
	spec, err := cfg.PipelineSpec()
	require.NoError(t, err)

	assert.Equal(t, "all-tx.csv", spec.Input)
	assert.Equal(t, "all-address.csv", spec.NodeInput)
	assert.Equal(t, "ml.json", spec.Output)
	f, _ := spec.EdgeDerived.Schema.Field("gasUsed")
	assert.Equal(t, coerce.ZeroOnMissing, f.Policy)
}

func TestPipelineSpecUnknownPreset(t *testing.T) {
	cfg := &Config{Pipeline: "names"}
	_, err := cfg.PipelineSpec()
	require.Error(t, err)
}
