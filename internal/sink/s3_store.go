package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// Prefix is prepended to every object key, e.g. "graphs/".
	Prefix string
	// URLExpiry bounds presigned links. Zero means one hour.
	URLExpiry time.Duration
}

// Object user metadata carrying a document's Meta.
const (
	metaDigest = "Graphjson-Digest"
	metaNodes  = "Graphjson-Nodes"
	metaEdges  = "Graphjson-Edges"
)

const defaultURLExpiry = time.Hour

// S3Store keeps each document as the object prefix/runID/path, with its
// digest and counts as user metadata so Stat never downloads the payload.
type S3Store struct {
	client    *minio.Client
	bucket    string
	region    string
	prefix    string
	urlExpiry time.Duration

	initOnce sync.Once
	initErr  error
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = defaultURLExpiry
	}
	prefix := strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	if prefix != "" {
		prefix += "/"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Store{
		client:    client,
		bucket:    bucket,
		region:    region,
		prefix:    prefix,
		urlExpiry: expiry,
	}, nil
}

func (s *S3Store) key(runID, path string) string { return s.prefix + objectKey(runID, path) }

func (s *S3Store) runPrefix(runID string) string { return s.prefix + runID + "/" }

func (s *S3Store) ensureBucket(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("store is nil")
	}
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

func (s *S3Store) Put(ctx context.Context, runID, path string, content []byte) error {
	return s.PutDocument(ctx, runID, path, content, describe(content))
}

func (s *S3Store) PutDocument(ctx context.Context, runID, path string, content []byte, meta Meta) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	runID, path, err := requireKey(runID, path)
	if err != nil {
		return err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	if content == nil {
		content = []byte{}
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.key(runID, path), bytes.NewReader(content), int64(len(content)), putOptions(meta))
	return err
}

func (s *S3Store) Get(ctx context.Context, runID, path string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	runID, path, err := requireKey(runID, path)
	if err != nil {
		return nil, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(runID, path), minio.GetObjectOptions{})
	if err != nil {
		return nil, notFound(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, notFound(err)
	}
	return data, nil
}

// Stat reads the document's Meta from object metadata. Objects written
// without it (by another tool) report only their size.
func (s *S3Store) Stat(ctx context.Context, runID, path string) (Meta, error) {
	if s == nil {
		return Meta{}, fmt.Errorf("store is nil")
	}
	runID, path, err := requireKey(runID, path)
	if err != nil {
		return Meta{}, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return Meta{}, fmt.Errorf("ensure bucket: %w", err)
	}
	info, err := s.client.StatObject(ctx, s.bucket, s.key(runID, path), minio.StatObjectOptions{})
	if err != nil {
		return Meta{}, notFound(err)
	}
	return metaFromObject(info), nil
}

func (s *S3Store) List(ctx context.Context, runID string) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	runID = strings.Trim(strings.TrimSpace(runID), "/")
	if runID == "" {
		return nil, fmt.Errorf("run_id is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	prefix := s.runPrefix(runID)
	var paths []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if obj.Key == "" {
			continue
		}
		paths = append(paths, strings.TrimPrefix(obj.Key, prefix))
	}
	sort.Strings(paths)
	return paths, nil
}

// GetURL presigns a download link valid for the configured expiry.
func (s *S3Store) GetURL(ctx context.Context, runID, path string) (string, error) {
	if s == nil || s.client == nil {
		return "", fmt.Errorf("store is nil")
	}
	runID, path, err := requireKey(runID, path)
	if err != nil {
		return "", err
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, s.key(runID, path), s.urlExpiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func putOptions(meta Meta) minio.PutObjectOptions {
	return minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			metaDigest: meta.Digest,
			metaNodes:  strconv.Itoa(meta.Nodes),
			metaEdges:  strconv.Itoa(meta.Edges),
		},
	}
}

// metaFromObject inverts putOptions. The S3 API hands user metadata back
// with the X-Amz-Meta- prefix stripped, in whatever case the server chose.
func metaFromObject(info minio.ObjectInfo) Meta {
	m := Meta{Bytes: int(info.Size)}
	for k, v := range info.UserMetadata {
		switch {
		case strings.EqualFold(k, metaDigest):
			m.Digest = v
		case strings.EqualFold(k, metaNodes):
			m.Nodes, _ = strconv.Atoi(v)
		case strings.EqualFold(k, metaEdges):
			m.Edges, _ = strconv.Atoi(v)
		}
	}
	return m
}

// notFound maps missing keys and buckets to ErrNotFound.
func notFound(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
