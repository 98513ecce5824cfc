package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/Lllllllleong/pdftotext/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Store implements Store for Amazon S3 and S3-compatible services.
type S3Store struct {
	client *minio.Client
}

// NewS3Store builds an S3Store from an explicit region and credential source.
func NewS3Store(cfg config.S3Config) (*S3Store, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 region must be provided")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint must be provided")
	}

	creds, err := newCredentials(cfg)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	return &S3Store{client: client}, nil
}

func newCredentials(cfg config.S3Config) (*credentials.Credentials, error) {
	switch cfg.CredentialSource {
	case config.CredentialsEnv, "":
		return credentials.NewEnvAWS(), nil
	case config.CredentialsStatic:
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return nil, fmt.Errorf("static s3 credentials must be provided")
		}
		return credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken), nil
	case config.CredentialsIAM:
		return credentials.NewIAM(""), nil
	default:
		return nil, fmt.Errorf("unknown credential source %q", cfg.CredentialSource)
	}
}

func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyS3Error("get", bucket, key, err)
	}
	defer obj.Close()

	// Stat surfaces NoSuchKey and AccessDenied before any body is read.
	if _, err := obj.Stat(); err != nil {
		return nil, classifyS3Error("get", bucket, key, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classifyS3Error("get", bucket, key, err)
	}
	return data, nil
}

func (s *S3Store) Put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{},
	})
	if err != nil {
		return classifyS3Error("put", bucket, key, err)
	}
	return nil
}

// classifyS3Error maps an S3 error response onto the store sentinels.
func classifyS3Error(op, bucket, key string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s s3://%s/%s: %w: %v", op, bucket, key, ErrObjectNotFound, err)
	case resp.Code == "AccessDenied" || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s s3://%s/%s: %w: %v", op, bucket, key, ErrAccessDenied, err)
	default:
		return fmt.Errorf("%s s3://%s/%s: %w: %v", op, bucket, key, ErrStoreUnavailable, err)
	}
}

var _ Store = (*S3Store)(nil)
