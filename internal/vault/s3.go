package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vcompra/cartsync/internal/common"
	"github.com/vcompra/cartsync/internal/models"
)

// S3Config holds the settings for an S3-compatible blob backend
// (MinIO in development).
type S3Config struct {
	RootUser     string
	RootPassword string
	Bucket       string
	Region       string
	BaseEndpoint string
}

// s3API is the slice of the S3 client the blob store uses; a seam for
// tests.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3BlobStore keeps ciphertext in an object bucket; the account record
// then carries only the object key.
type S3BlobStore struct {
	client s3API
	bucket string
}

// NewS3BlobStore builds a blob store from static credentials and a base
// endpoint.
func NewS3BlobStore(ctx context.Context, cfg S3Config) (*S3BlobStore, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.RootUser, cfg.RootPassword, "")))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3BlobStore{client: client, bucket: cfg.Bucket}, nil
}

func storageKey(userID string) (string, error) {
	suffix, err := common.MakeRandHexString(16)
	if err != nil {
		return "", fmt.Errorf("generating object key: %w", err)
	}
	d := time.Now()
	return fmt.Sprintf("payloads/%s/%d/%d/%s", userID, d.Year(), d.Month(), suffix), nil
}

func (s *S3BlobStore) Store(ctx context.Context, userID string, blob []byte) ([]byte, string, error) {
	key, err := storageKey(userID)
	if err != nil {
		return nil, "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(blob),
	})
	if err != nil {
		return nil, "", fmt.Errorf("storing payload blob: %w", err)
	}
	return nil, key, nil
}

func (s *S3BlobStore) Load(ctx context.Context, user *models.UserAccount) ([]byte, error) {
	if user.BlobKey == "" {
		return nil, nil
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(user.BlobKey),
	})
	if err != nil {
		return nil, fmt.Errorf("loading payload blob: %w", err)
	}
	defer out.Body.Close()

	blob, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading payload blob: %w", err)
	}
	return blob, nil
}
