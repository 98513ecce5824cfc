package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/pdftotext/internal/config"
	"github.com/Lllllllleong/pdftotext/internal/store"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCSStore implements store.Store on Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore creates a Storage client, using the credentials file when one is configured.
func NewGCSStore(ctx context.Context, cfg config.GCSConfig) (*GCSStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

func (s *GCSStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	reader, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, classifyGCSError("get", bucket, key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, classifyGCSError("get", bucket, key, err)
	}
	return data, nil
}

// Put overwrites the object unconditionally; reprocessing a source replaces its output.
func (s *GCSStore) Put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	writer := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	writer.ContentType = contentType
	writer.Metadata = map[string]string{}

	if _, err := writer.Write(body); err != nil {
		_ = writer.Close()
		return classifyGCSError("put", bucket, key, err)
	}
	// The object only becomes visible once Close succeeds.
	if err := writer.Close(); err != nil {
		return classifyGCSError("put", bucket, key, err)
	}
	return nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func classifyGCSError(op, bucket, key string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("%s gs://%s/%s: %w: %v", op, bucket, key, store.ErrObjectNotFound, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%s gs://%s/%s: %w: %v", op, bucket, key, store.ErrObjectNotFound, err)
		case http.StatusForbidden, http.StatusUnauthorized:
			return fmt.Errorf("%s gs://%s/%s: %w: %v", op, bucket, key, store.ErrAccessDenied, err)
		}
	}
	return fmt.Errorf("%s gs://%s/%s: %w: %v", op, bucket, key, store.ErrStoreUnavailable, err)
}

var _ store.Store = (*GCSStore)(nil)
