package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PresignExpiry is how long a presigned download URL stays valid.
const PresignExpiry = 7 * 24 * time.Hour

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	Bucket    string
	// PublicURL, when set, is used as base for download URLs instead of
	// presigning, e.g. a CDN in front of the bucket.
	PublicURL string
}

// S3Service stores upload objects in an S3-compatible bucket.
type S3Service struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewS3Service initializes and returns a new S3 storage service.
func NewS3Service(cfg S3Config) (*S3Service, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("missing one or more required settings: MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("missing bucket name")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	log.Println("[storage] using MinIO endpoint:", cfg.Endpoint)
	return &S3Service{
		client:    minioClient,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *S3Service) EnsureBucket(ctx context.Context, location string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("error checking bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: location}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
		log.Printf("[storage] created bucket %s", s.bucket)
	}
	return nil
}

// ProgressFunc receives the bytes sent so far and the object size.
type ProgressFunc func(transferred, total int64)

// progressReader is handed to minio as PutObjectOptions.Progress; minio
// reads every uploaded chunk through it.
type progressReader struct {
	total int64
	done  int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	p.done += int64(len(b))
	if p.done > p.total && p.total > 0 {
		p.done = p.total
	}
	p.fn(p.done, p.total)
	return len(b), nil
}

// Put uploads size bytes from r under key and reports progress to fn, which
// may be nil.
func (s *S3Service) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, fn ProgressFunc) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if fn != nil {
		opts.Progress = &progressReader{total: size, fn: fn}
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, opts)
	if err != nil {
		return fmt.Errorf("failed to store object in S3: %w", err)
	}
	log.Printf("[storage] stored %s (%d bytes) in bucket %s", key, info.Size, s.bucket)
	return nil
}

// Remove deletes key. An object that is already gone counts as removed.
func (s *S3Service) Remove(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err == nil {
		return nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		log.Printf("[storage] %s already removed", key)
		return nil
	}
	return fmt.Errorf("failed to remove object from S3: %w", err)
}

// URL returns a download URL for key: public when a public base is
// configured, presigned otherwise.
func (s *S3Service) URL(ctx context.Context, key string) (string, error) {
	if s.publicURL != "" {
		return s.publicURL + "/" + s.bucket + "/" + escapeKey(key), nil
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, PresignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
