// Package storage keeps uploaded media such as event banners and blog covers
// in an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/impact-be/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// MaxUploadSize bounds a single media upload.
const MaxUploadSize = 5 << 20

// ErrUnsupportedType is returned for uploads that are not images.
var ErrUnsupportedType = errors.New("only jpeg, png, gif and webp images are accepted")

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// MediaStore stores objects and returns their public URL.
type MediaStore interface {
	Upload(ctx context.Context, prefix string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, url string) error
}

// MinioStore is a MediaStore backed by MinIO or any S3-compatible service.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMinioStore connects to the configured endpoint and creates the bucket
// when it does not exist yet.
func NewMinioStore(ctx context.Context, cfg config.StorageConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		log.Info().Str("bucket", cfg.Bucket).Msg("Created media bucket")
	}

	return &MinioStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: PublicBaseURL(cfg),
	}, nil
}

// PublicBaseURL returns the URL prefix under which objects of the bucket are served.
func PublicBaseURL(cfg config.StorageConfig) string {
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/", scheme, strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
}

// ObjectKey builds a unique key under prefix for contentType.
func ObjectKey(prefix, contentType string) (string, error) {
	ext, ok := extensions[strings.ToLower(contentType)]
	if !ok {
		return "", ErrUnsupportedType
	}
	return path.Join(prefix, uuid.New().String()+ext), nil
}

// Upload stores the object and returns its public URL.
func (s *MinioStore) Upload(ctx context.Context, prefix string, r io.Reader, size int64, contentType string) (string, error) {
	key, err := ObjectKey(prefix, contentType)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return s.baseURL + key, nil
}

// Remove deletes the object behind a URL returned by Upload. URLs of other
// hosts are ignored.
func (s *MinioStore) Remove(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.baseURL)
	if !ok || key == "" {
		return nil
	}
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}
