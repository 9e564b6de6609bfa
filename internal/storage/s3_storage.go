package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appconfig "github.com/ikkim/taxfiling-backend/config"
	"github.com/ikkim/taxfiling-backend/pkg/logger"
)

// S3Storage keeps rendered report documents in one bucket. Clients upload and
// download directly against presigned URLs.
type S3Storage struct {
	presigner   *s3.PresignClient
	bucket      string
	uploadTTL   time.Duration
	downloadTTL time.Duration
	now         func() time.Time
}

func NewS3Storage(cfg appconfig.S3Config) *S3Storage {
	var awsCfg aws.Config
	var err error

	// If credentials are provided, use them. Otherwise, use default credential chain
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg = aws.Config{
			Region: cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			),
		}
	} else {
		awsCfg, err = config.LoadDefaultConfig(context.Background(),
			config.WithRegion(cfg.Region),
		)
		if err != nil {
			logger.Warn("Falling back to region-only AWS config", map[string]interface{}{
				"region": cfg.Region,
				"error":  err.Error(),
			})
			awsCfg = aws.Config{
				Region: cfg.Region,
			}
		}
	}

	return newS3Storage(s3.NewFromConfig(awsCfg), cfg)
}

func newS3Storage(client *s3.Client, cfg appconfig.S3Config) *S3Storage {
	return &S3Storage{
		presigner:   s3.NewPresignClient(client),
		bucket:      cfg.Bucket,
		uploadTTL:   cfg.UploadURLTTL,
		downloadTTL: cfg.DownloadURLTTL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// PresignUpload returns a PUT URL for key, bound to contentType.
func (s *S3Storage) PresignUpload(ctx context.Context, key, contentType string) (string, time.Time, error) {
	issuedAt := s.now()
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.uploadTTL))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to presign upload for %s: %w", key, err)
	}

	logger.Debug("Presigned report upload", map[string]interface{}{
		"bucket": s.bucket,
		"key":    key,
	})
	return req.URL, issuedAt.Add(s.uploadTTL), nil
}

// PresignDownload returns a GET URL for key.
func (s *S3Storage) PresignDownload(ctx context.Context, key string) (string, time.Time, error) {
	issuedAt := s.now()
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.downloadTTL))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to presign download for %s: %w", key, err)
	}
	return req.URL, issuedAt.Add(s.downloadTTL), nil
}
