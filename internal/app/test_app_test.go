package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphjson/internal/config"
	"graphjson/internal/sink"
	"graphjson/internal/source"
)

const miserablesGML = `graph [
  node [ id 0 label "Myriel" ]
  node [ id 1 label "Napoleon" ]
  node [ id 2 label "Mlle.Baptistine" ]
  edge [ source 1 target 0 value 1 ]
  edge [ source 2 target 0 value 8 ]
]`

func newApp(t *testing.T, cfg *config.Config) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	a, err := New(context.Background(), cfg, &out)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, &out
}

func TestRunGMLThenNamesOnFileSink(t *testing.T) {
	inDir, outDir := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "lesmiserables.gml"), []byte(miserablesGML), 0o644))

	cfg := &config.Config{
		Pipeline: "gml",
		InputDir: inDir,
		Sink:     config.SinkConfig{Kind: config.SinkFile, OutDir: outDir},
	}
	a, _ := newApp(t, cfg)
	require.NoError(t, a.Run(context.Background()))
	_, err := os.Stat(filepath.Join(outDir, "lesmiserables.json"))
	require.NoError(t, err)

	cfg.Pipeline = NamesPipeline
	names, out := newApp(t, cfg)
	require.NoError(t, names.Run(context.Background()))
	assert.Equal(t, `["Mlle.Baptistine","Myriel","Napoleon"]`+"\n", out.String())
}

func TestRunMissingInputLeavesSinkEmpty(t *testing.T) {
	cfg := &config.Config{
		Pipeline: "funcall",
		InputDir: t.TempDir(),
		RunID:    "r1",
		Sink:     config.SinkConfig{Kind: config.SinkMemory},
	}
	a, _ := newApp(t, cfg)
	err := a.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, source.ErrSourceUnavailable))

	paths, err := a.store.List(context.Background(), "r1")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestInputPathIsUnderInputDir(t *testing.T) {
	inDir := t.TempDir()
	a, _ := newApp(t, &config.Config{InputDir: inDir, Sink: config.SinkConfig{Kind: config.SinkMemory}})

	resolved, err := filepath.EvalSymlinks(inDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(resolved, "funcall.csv"), a.inputPath("funcall.csv"))
	abs := filepath.Join(resolved, "elsewhere", "x.gml")
	assert.Equal(t, abs, a.inputPath(abs))
}

func TestOpenStoreSelection(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cases := []struct {
		name string
		cfg  config.SinkConfig
		want any
	}{
		{"memory", config.SinkConfig{Kind: config.SinkMemory}, &sink.MemoryStore{}},
		{"file", config.SinkConfig{Kind: config.SinkFile, OutDir: t.TempDir()}, &sink.FileStore{}},
		{"s3 fallback", config.SinkConfig{Kind: config.SinkS3, OutDir: t.TempDir()}, &sink.FileStore{}},
		{"s3", config.SinkConfig{Kind: config.SinkS3, Artifact: config.ArtifactConfig{
			Endpoint: "127.0.0.1:9000", AccessKey: "minio", SecretKey: "minio-secret", Bucket: "docs", Prefix: "graphs",
		}}, &sink.S3Store{}},
		{"redis", config.SinkConfig{Kind: config.SinkRedis, Redis: config.RedisConfig{URL: "redis://" + mr.Addr()}}, &sink.RedisStore{}},
		{"cached", config.SinkConfig{Kind: config.SinkMemory, CacheEntries: 8}, &sink.CachedStore{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, closeFn, err := openStore(ctx, tc.cfg)
			require.NoError(t, err)
			defer closeFn()
			assert.IsType(t, tc.want, store)
		})
	}
}

func TestOpenStoreErrors(t *testing.T) {
	ctx := context.Background()
	_, _, err := openStore(ctx, config.SinkConfig{Kind: config.SinkPostgres})
	require.Error(t, err)
	_, _, err = openStore(ctx, config.SinkConfig{Kind: "ftp"})
	require.Error(t, err)
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(context.Background(), nil, nil)
	require.Error(t, err)
}
