// Package storage uploads avatar images to an S3-compatible bucket
// and hands back public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	appconfig "github.com/sparkylabs/sparky/internal/config"
)

// AvatarStore uploads avatar images. Construct once at startup; the
// client is safe to share across requests.
type AvatarStore struct {
	client   *s3.Client
	bucket   string
	endpoint string
	region   string
	enabled  bool
}

// NewAvatarStore builds the store. When no bucket is configured the
// store is disabled and uploads fail cleanly with an explanation.
func NewAvatarStore(ctx context.Context, cfg *appconfig.Config) (*AvatarStore, error) {
	if !cfg.StorageEnabled() {
		log.Printf("avatar storage disabled: no bucket configured")
		return &AvatarStore{enabled: false}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.StorageRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.StorageEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.StorageEndpoint)
			o.UsePathStyle = true // needed by most S3-compatible services
		}
	})

	log.Printf("avatar storage initialized: bucket %s", cfg.StorageBucket)
	return &AvatarStore{
		client:   client,
		bucket:   cfg.StorageBucket,
		endpoint: strings.TrimRight(cfg.StorageEndpoint, "/"),
		region:   cfg.StorageRegion,
		enabled:  true,
	}, nil
}

// Enabled reports whether uploads can succeed.
func (s *AvatarStore) Enabled() bool {
	return s != nil && s.enabled
}

// Upload stores the image under a fresh key and returns its public
// URL. The original filename contributes only its extension.
func (s *AvatarStore) Upload(ctx context.Context, filename string, body io.Reader, contentType string) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("avatar storage is not configured")
	}

	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
	default:
		return "", fmt.Errorf("unsupported avatar file type %q", ext)
	}
	key := "avatars/" + uuid.New().String() + ext

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}

	return s.publicURL(key), nil
}

// publicURL builds the browser-reachable object URL. Path-style for
// custom endpoints, virtual-hosted style for AWS proper.
func (s *AvatarStore) publicURL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
