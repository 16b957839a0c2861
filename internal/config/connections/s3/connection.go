package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type ConnectionInfo struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	UseSSL    bool
}

type S3 struct {
	Client *minio.Client
	Bucket string
	Region string
}

// endpoint strips a URL scheme from the configured endpoint, which minio
// expects as host[:port]. An https:// prefix turns TLS on.
func (info ConnectionInfo) endpoint() (host string, secure bool) {
	host, secure = info.Endpoint, info.UseSSL
	switch {
	case strings.HasPrefix(host, "https://"):
		host, secure = strings.TrimPrefix(host, "https://"), true
	case strings.HasPrefix(host, "http://"):
		host = strings.TrimPrefix(host, "http://")
	}
	return strings.TrimSuffix(host, "/"), secure
}

func NewConnection(info ConnectionInfo) (*S3, error) {
	if info.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	host, secure := info.endpoint()
	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(info.AccessKey, info.SecretKey, ""),
		Secure: secure,
		Region: info.Region,
	})
	if err != nil {
		return nil, err
	}

	return &S3{Client: client, Bucket: info.Bucket, Region: info.Region}, nil
}

// EnsureBucket creates the backup bucket on first use.
func (s *S3) EnsureBucket(ctx context.Context) error {
	exists, err := s.Client.BucketExists(ctx, s.Bucket)
	if err != nil {
		return fmt.Errorf("s3 bucket check failed: %w", err)
	}
	if !exists {
		return s.Client.MakeBucket(ctx, s.Bucket, minio.MakeBucketOptions{Region: s.Region})
	}
	return nil
}

// Ping checks that the configured bucket is reachable.
func (s *S3) Ping(ctx context.Context) error {
	if s == nil || s.Client == nil {
		return errors.New("s3 not initialized")
	}
	ok, err := s.Client.BucketExists(ctx, s.Bucket)
	if err != nil {
		return fmt.Errorf("s3 bucket check failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("s3 bucket %q not found", s.Bucket)
	}
	return nil
}
