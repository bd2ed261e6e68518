package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	Pipeline   string
	InputDir   string
	Input      string
	NodeInput  string
	Output     string
	RunID      string
	SchemaFile string
	Sink       SinkConfig
}

type SinkConfig struct {
	Kind         string
	OutDir       string
	CacheEntries int
	Artifact     ArtifactConfig
	PostgresDSN  string
	Redis        RedisConfig
}

type ArtifactConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Prefix    string
	URLExpiry time.Duration
}

type RedisConfig struct {
	URL    string
	Prefix string
	TTL    time.Duration
}

const (
	SinkFile     = "file"
	SinkMemory   = "memory"
	SinkS3       = "s3"
	SinkPostgres = "postgres"
	SinkRedis    = "redis"
)

// CanUseS3 reports whether enough of the artifact settings are present to
// build an S3 client.
func (a ArtifactConfig) CanUseS3() bool {
	return strings.TrimSpace(a.Endpoint) != "" &&
		strings.TrimSpace(a.AccessKey) != "" &&
		strings.TrimSpace(a.SecretKey) != "" &&
		strings.TrimSpace(a.Bucket) != ""
}

// Load reads .env, then environment, then command-line flags. Flags win.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()
	return parse(args, os.Stderr)
}

func parse(args []string, usage io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("graphjson", flag.ContinueOnError)
	fs.SetOutput(usage)

	pipeline := fs.String("pipeline", firstNonEmpty(env("GRAPHJSON_PIPELINE"), "funcall"), "funcall | txn | gml | names")
	inDir := fs.String("in-dir", firstNonEmpty(env("GRAPHJSON_IN_DIR"), "."), "directory input paths are resolved under")
	in := fs.String("in", "", "input file (default depends on pipeline)")
	nodes := fs.String("nodes", "", "node attribute table for the txn pipeline")
	out := fs.String("out", "", "output document path (default depends on pipeline)")
	runID := fs.String("run", env("GRAPHJSON_RUN_ID"), "run id that namespaces the output in the sink")
	schema := fs.String("schema", env("GRAPHJSON_SCHEMA"), "YAML file overriding the pipeline schema")
	sinkKind := fs.String("sink", firstNonEmpty(env("GRAPHJSON_SINK"), SinkFile), "file | memory | s3 | postgres | redis")
	outDir := fs.String("out-dir", firstNonEmpty(env("GRAPHJSON_OUT_DIR"), "."), "output directory for the file sink")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	kind := strings.ToLower(strings.TrimSpace(*sinkKind))
	switch kind {
	case SinkFile, SinkMemory, SinkS3, SinkPostgres, SinkRedis:
	default:
		return nil, fmt.Errorf("unknown sink %q", *sinkKind)
	}

	cfg := &Config{
		Pipeline:   strings.ToLower(strings.TrimSpace(*pipeline)),
		InputDir:   *inDir,
		Input:      strings.TrimSpace(*in),
		NodeInput:  strings.TrimSpace(*nodes),
		Output:     strings.TrimSpace(*out),
		RunID:      strings.TrimSpace(*runID),
		SchemaFile: strings.TrimSpace(*schema),
		Sink: SinkConfig{
			Kind:         kind,
			OutDir:       *outDir,
			CacheEntries: envInt("GRAPHJSON_CACHE_ENTRIES", 0),
			Artifact:     loadArtifactConfig(),
			PostgresDSN:  firstNonEmpty(env("GRAPHJSON_PG_DSN"), env("DATABASE_URL")),
			Redis: RedisConfig{
				URL:    firstNonEmpty(env("GRAPHJSON_REDIS_URL"), env("REDIS_URL")),
				Prefix: env("GRAPHJSON_REDIS_PREFIX"),
				TTL:    envDuration("GRAPHJSON_REDIS_TTL", 0),
			},
		},
	}
	// Remote sinks namespace every document by run.
	if cfg.RunID == "" && kind != SinkFile {
		cfg.RunID = uuid.NewString()
	}
	return cfg, nil
}

func loadArtifactConfig() ArtifactConfig {
	return ArtifactConfig{
		Endpoint:  firstNonEmpty(env("ARTIFACT_S3_ENDPOINT"), env("ARTIFACT_MINIO_ENDPOINT")),
		Region:    firstNonEmpty(env("ARTIFACT_S3_REGION"), "us-east-1"),
		AccessKey: firstNonEmpty(env("ARTIFACT_S3_ACCESS_KEY"), env("MINIO_ROOT_USER")),
		SecretKey: firstNonEmpty(env("ARTIFACT_S3_SECRET_KEY"), env("MINIO_ROOT_PASSWORD")),
		Bucket:    firstNonEmpty(env("ARTIFACT_S3_BUCKET"), "graphjson-documents"),
		UseSSL:    resolveArtifactUseSSL(),
		Prefix:    env("ARTIFACT_S3_PREFIX"),
		URLExpiry: envDuration("ARTIFACT_S3_URL_EXPIRY", 0),
	}
}

func resolveArtifactUseSSL() bool {
	raw := env("ARTIFACT_S3_USE_SSL")
	if raw == "" {
		// A local MinIO endpoint speaks plain HTTP.
		return env("ARTIFACT_MINIO_ENDPOINT") == ""
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envInt(key string, def int) int {
	raw := env(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := env(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
