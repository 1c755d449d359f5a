package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/youdub-team/youdub-backend/pkg/config"
)

// ObjectStore is the storage surface the dubbing engine needs: durable
// uploads addressed by folder/filename, plus deletion for rollback paths.
type ObjectStore interface {
	Upload(ctx context.Context, data []byte, folder, filename, contentType string) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
}

// UploadResult describes a stored object.
type UploadResult struct {
	URL  string `json:"url"`
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

// MinIOClient wraps MinIO operations
type MinIOClient struct {
	client    *minio.Client
	bucket    string
	publicURL string // Public URL for generating accessible URLs (e.g., https://minio.example.com)
}

// NewMinIOClient creates a new MinIO client
func NewMinIOClient(cfg *config.StorageConfig) (*MinIOClient, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	client := &MinIOClient{
		client:    minioClient,
		bucket:    cfg.BucketName,
		publicURL: cfg.PublicURL,
	}

	// Initialize bucket with public read policy
	ctx := context.Background()
	if err := client.ensureBucketWithPolicy(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}

	return client, nil
}

// ensureBucketWithPolicy ensures bucket exists and has public read policy
func (m *MinIOClient) ensureBucketWithPolicy(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	// Mixed outputs and takes are served to players directly from the bucket
	policy := fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [
			{
				"Effect": "Allow",
				"Principal": {"AWS": ["*"]},
				"Action": ["s3:GetObject"],
				"Resource": ["arn:aws:s3:::%s/*"]
			}
		]
	}`, m.bucket)

	err = m.client.SetBucketPolicy(ctx, m.bucket, policy)
	if err != nil {
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}

	return nil
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Upload stores a payload under folder/<timestamp>-<sanitized filename> and
// returns its public URL
func (m *MinIOClient) Upload(ctx context.Context, data []byte, folder, filename, contentType string) (*UploadResult, error) {
	safe := unsafeKeyChars.ReplaceAllString(filename, "_")
	key := path.Join(folder, fmt.Sprintf("%d-%s", time.Now().UnixNano(), safe))

	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload object: %w", err)
	}

	return &UploadResult{
		URL:  m.objectURL(key),
		Key:  key,
		Size: int64(len(data)),
	}, nil
}

// Delete removes an object from the bucket
func (m *MinIOClient) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// objectURL builds the direct access URL for an object. When a public URL is
// configured (MinIO behind a reverse proxy) it replaces the internal
// endpoint.
func (m *MinIOClient) objectURL(key string) string {
	if m.publicURL != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(m.publicURL, "/"), m.bucket, key)
	}
	return fmt.Sprintf("%s/%s/%s", m.client.EndpointURL().String(), m.bucket, key)
}
