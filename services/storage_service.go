package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appConfig "github.com/carbridge/carbridge-api/config"
	"github.com/carbridge/carbridge-api/utils"
)

// StorageService uploads binary payloads and returns publicly resolvable
// URLs
type StorageService interface {
	UploadFile(ctx context.Context, fileHeader *multipart.FileHeader, folder string) (string, error)
}

// UploadError marks a blob storage failure. Controllers map it to a 5xx,
// distinct from validation and not-found errors.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// S3StorageService implements StorageService on AWS S3
type S3StorageService struct {
	client *s3.Client
	bucket string
	region string
}

// NewS3StorageService builds the S3 client from application configuration
func NewS3StorageService(cfg *appConfig.Config) (*S3StorageService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3StorageService{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.AWSS3Bucket,
		region: cfg.AWSRegion,
	}, nil
}

// UploadFile validates the file, stores it under a timestamp-prefixed key
// in the given folder, and returns the public object URL
func (s *S3StorageService) UploadFile(ctx context.Context, fileHeader *multipart.FileHeader, folder string) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", &UploadError{Err: fmt.Errorf("failed to open file: %w", err)}
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", &UploadError{Err: fmt.Errorf("failed to read file: %w", err)}
	}

	if folder == "" {
		folder = "uploads"
	}
	// Timestamp prefix keeps keys collision-resistant across same-named files
	key := fmt.Sprintf("%s/%d-%s", folder, time.Now().UnixMilli(), filepath.Base(fileHeader.Filename))

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(utils.ContentTypeForFile(fileHeader)),
	})
	if err != nil {
		return "", &UploadError{Err: fmt.Errorf("failed to upload to S3: %w", err)}
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}
