package storage

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config" // Alias config to avoid clash
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"studenthub/portal/internal/config"
)

// s3Storage implements the FileStorage interface using an
// S3-compatible backend. Object keys are the same relative paths the
// local driver uses, so the two drivers are interchangeable.
type s3Storage struct {
	client     *s3.Client
	bucketName string
	logger     *zap.Logger
}

// NewS3Storage creates a new S3 storage service instance.
func NewS3Storage(cfg config.S3Config, logger *zap.Logger) (FileStorage, error) {
	// Custom resolver for S3-compatible endpoints (like MinIO).
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.Endpoint != "" {
			return aws.Endpoint{
				PartitionID:   "aws",
				URL:           cfg.Endpoint,
				SigningRegion: cfg.Region,
			}, nil
		}
		// Fall back to default AWS endpoint resolution.
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsSDKConfig, err := awsCfg.LoadDefaultConfig(context.TODO(),
		awsCfg.WithRegion(cfg.Region),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		awsCfg.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		logger.Error("failed to load AWS SDK config for S3", zap.Error(err))
		return nil, err
	}

	// Path-style addressing is required by most S3-compatible services.
	s3Client := s3.NewFromConfig(awsSDKConfig, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	logger.Info("S3 storage initialized",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.BucketName))

	return &s3Storage{
		client:     s3Client,
		bucketName: cfg.BucketName,
		logger:     logger,
	}, nil
}

func (s *s3Storage) Save(ctx context.Context, objectKey string, r io.Reader) (int64, error) {
	// S3 has no path semantics, but keys still go through the same
	// safety check as the local driver so both reject traversal.
	if err := ValidateObjectKey(objectKey); err != nil {
		return 0, err
	}
	// PutObject wants a seekable body or a known length, so read fully.
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		s.logger.Error("failed to put object",
			zap.String("key", objectKey), zap.Error(err))
		return 0, err
	}
	return int64(len(data)), nil
}

func (s *s3Storage) Open(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return out.Body, nil
}

func (s *s3Storage) Delete(ctx context.Context, objectKey string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		s.logger.Error("failed to delete object",
			zap.String("key", objectKey), zap.Error(err))
		return err
	}
	return nil
}
