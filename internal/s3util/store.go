// Package s3util uploads variation archives to S3 and hands out presigned
// download URLs for them.
package s3util

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// KeyPrefix is the object key prefix for every uploaded archive.
const KeyPrefix = "variations"

// ErrNoBucket is returned by New when no bucket name is configured.
var ErrNoBucket = errors.New("s3 bucket not configured")

// ObjectPutter is the subset of *s3.Client the store needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ObjectPresigner is the subset of *s3.PresignClient the store needs.
type ObjectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ArchiveStore writes archives under KeyPrefix in a single bucket.
type ArchiveStore struct {
	client    ObjectPutter
	presigner ObjectPresigner
	bucket    string
	expiry    time.Duration
}

// New loads the default AWS config and builds a store for bucket.
func New(ctx context.Context, bucket string, expiry time.Duration) (*ArchiveStore, error) {
	if bucket == "" {
		return nil, ErrNoBucket
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	log.Debug().Str("region", cfg.Region).Str("bucket", bucket).Msg("AWS config loaded")
	return NewFromConfig(cfg, bucket, expiry), nil
}

// NewFromConfig builds a store from an already loaded AWS config.
func NewFromConfig(cfg aws.Config, bucket string, expiry time.Duration) *ArchiveStore {
	client := s3.NewFromConfig(cfg)
	return NewWithClients(client, s3.NewPresignClient(client), bucket, expiry)
}

// NewWithClients builds a store over explicit clients.
func NewWithClients(client ObjectPutter, presigner ObjectPresigner, bucket string, expiry time.Duration) *ArchiveStore {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &ArchiveStore{client: client, presigner: presigner, bucket: bucket, expiry: expiry}
}

// Bucket returns the configured bucket name.
func (s *ArchiveStore) Bucket() string { return s.bucket }

// ArchiveKey is the object key for a batch's archive.
func ArchiveKey(batchID, fileName string) string {
	return path.Join(KeyPrefix, batchID, path.Base(fileName))
}

// UploadArchive stores a zip under ArchiveKey and returns the key.
func (s *ArchiveStore) UploadArchive(ctx context.Context, batchID, fileName string, data []byte) (string, error) {
	key := ArchiveKey(batchID, fileName)
	log.Debug().
		Str("bucket", s.bucket).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("Uploading archive to S3")

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(data),
		ContentLength:      aws.Int64(int64(len(data))),
		ContentType:        aws.String("application/zip"),
		ContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", path.Base(fileName))),
	})
	if err != nil {
		return "", fmt.Errorf("upload archive to S3: %w", err)
	}

	log.Info().Str("key", key).Msg("Archive uploaded to S3")
	return key, nil
}

// PresignURL creates a pre-signed GET URL for key, valid for the store's expiry.
func (s *ArchiveStore) PresignURL(ctx context.Context, key string) (string, error) {
	result, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign GetObject: %w", err)
	}
	return result.URL, nil
}

// Publish uploads the archive and returns its presigned URL.
func (s *ArchiveStore) Publish(ctx context.Context, batchID, fileName string, data []byte) (key, url string, err error) {
	key, err = s.UploadArchive(ctx, batchID, fileName, data)
	if err != nil {
		return "", "", err
	}
	url, err = s.PresignURL(ctx, key)
	if err != nil {
		return key, "", err
	}
	return key, url, nil
}
