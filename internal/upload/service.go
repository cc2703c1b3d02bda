// Package upload stores media files in S3-compatible object storage.
package upload

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base under which stored objects are reachable,
	// e.g. a CDN or the MinIO endpoint itself. No trailing slash.
	PublicURL string
}

type Service struct {
	client *minio.Client
	config Config
}

// UploadedFile describes a stored object.
type UploadedFile struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// New connects to object storage and makes sure the bucket exists.
func New(ctx context.Context, cfg Config) (*Service, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &Service{client: client, config: cfg}, nil
}

// Store writes the file under a timestamped key and returns its public
// URL. Keys never collide: the millisecond prefix orders them and keeps
// re-uploads of the same filename distinct.
func (s *Service) Store(ctx context.Context, filename, contentType string, size int64, r io.Reader) (UploadedFile, error) {
	key := fmt.Sprintf("uploads/%d_%s", time.Now().UnixMilli(), sanitizeFilename(filename))

	info, err := s.client.PutObject(ctx, s.config.Bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return UploadedFile{}, fmt.Errorf("put object %s: %w", key, err)
	}

	return UploadedFile{
		Key:  key,
		URL:  s.publicURL(key),
		Size: info.Size,
	}, nil
}

// Remove deletes a stored object by key.
func (s *Service) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.config.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

func (s *Service) publicURL(key string) string {
	if s.config.PublicURL != "" {
		return s.config.PublicURL + "/" + key
	}
	scheme := "http"
	if s.config.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.config.Endpoint, s.config.Bucket, key)
}

// sanitizeFilename keeps the base name and replaces anything outside
// [a-z0-9._-] so keys stay URL-safe.
func sanitizeFilename(name string) string {
	base := strings.ToLower(path.Base(name))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-.")
	if out == "" {
		return "file"
	}
	return out
}
