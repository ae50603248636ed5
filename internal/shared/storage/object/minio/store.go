package minio

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"papershare-backend/internal/shared/storage/object"
	"papershare-backend/internal/shared/telemetry"
)

// Store implements ObjectStore on a MinIO (or any S3-compatible) server.
type Store struct {
	client *minio.Client
	bucket string
}

// New connects to endpoint and makes sure bucket exists.
func New(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		telemetry.Info("minio.bucket_created", map[string]any{"bucket": bucket})
	}
	return &Store{client: client, bucket: bucket}, nil
}

// Save streams r to the bucket under the owner's namespace.
func (s *Store) Save(ctx context.Context, ownerID string, fileName string, r io.Reader) (string, int64, string, error) {
	key, mimeType, body, err := prepare(ownerID, fileName, r)
	if err != nil {
		return "", 0, "", err
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, body, -1, minio.PutObjectOptions{
		ContentType: mimeType,
	})
	if err != nil {
		return "", 0, "", fmt.Errorf("minio put object bucket=%s key=%s: %w", s.bucket, key, err)
	}
	return key, info.Size, mimeType, nil
}

// prepare builds the object key and sniffs the content type sent with the put.
func prepare(ownerID, fileName string, r io.Reader) (string, string, io.Reader, error) {
	key, err := object.NewKey(ownerID, fileName)
	if err != nil {
		return "", "", nil, err
	}
	mimeType, body, err := object.Sniff(r)
	if err != nil {
		return "", "", nil, err
	}
	return key, mimeType, body, nil
}

// Open returns a reader for a stored object.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, storageKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get object bucket=%s key=%s: %w", s.bucket, storageKey, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("minio stat object bucket=%s key=%s: %w", s.bucket, storageKey, err)
	}
	return obj, nil
}

// Delete removes a stored object.
func (s *Store) Delete(ctx context.Context, storageKey string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, storageKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio remove object bucket=%s key=%s: %w", s.bucket, storageKey, err)
	}
	return nil
}

var _ object.ObjectStore = (*Store)(nil)
