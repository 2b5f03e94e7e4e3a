// Package artifacts is the S3-compatible object store (C1, §6) the browser
// runner uploads step screenshots and session video to, under
// executions/{executionId}/ keys.
package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/qaflow/qaflow/pkg/config"
	"github.com/qaflow/qaflow/pkg/qerrors"
)

// Store puts, gets, heads, and deletes execution artifacts in an
// S3-compatible bucket.
type Store struct {
	client *s3.Client
	bucket string
	base   string
}

// NewStore builds a Store from cfg, accessKey/secretKey read by the caller
// from the environment variables cfg names (§6 — DB never holds these).
func NewStore(ctx context.Context, cfg *config.ArtifactStoreConfig, accessKey, secretKey string) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("artifacts: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &Store{client: client, bucket: cfg.Bucket, base: cfg.PublicURLBase}, nil
}

// ScreenshotKey is the deterministic key §4.8 specifies for a step's
// post-stabilization screenshot.
func ScreenshotKey(executionID string, stepIndex int) string {
	return fmt.Sprintf("executions/%s/screenshot-%d.png", executionID, stepIndex)
}

// VideoKey is the deterministic key for an Execution's full-context video.
func VideoKey(executionID string) string {
	return fmt.Sprintf("executions/%s/video.webm", executionID)
}

// Put uploads data under key with contentType, returning the object's
// public URL when PublicURLBase is configured.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", qerrors.Classify(qerrors.ClassificationInfrastructure,
			fmt.Errorf("artifacts: put %s: %w", key, err))
	}
	return s.URL(key), nil
}

// Get downloads the object at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, qerrors.ErrNotFound
		}
		return nil, qerrors.Classify(qerrors.ClassificationInfrastructure,
			fmt.Errorf("artifacts: get %s: %w", key, err))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, qerrors.Classify(qerrors.ClassificationInfrastructure,
			fmt.Errorf("artifacts: read %s: %w", key, err))
	}
	return data, nil
}

// Head reports whether an object exists at key without downloading it.
func (s *Store) Head(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, qerrors.Classify(qerrors.ClassificationInfrastructure,
			fmt.Errorf("artifacts: head %s: %w", key, err))
	}
	return true, nil
}

// Delete removes the object at key.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return qerrors.Classify(qerrors.ClassificationInfrastructure,
			fmt.Errorf("artifacts: delete %s: %w", key, err))
	}
	return nil
}

// URL renders key's public URL when PublicURLBase is configured, else the
// bare key (the caller is expected to resolve it through the bucket
// directly).
func (s *Store) URL(key string) string {
	if s.base == "" {
		return key
	}
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(s.base, "/"), key)
}
