package blobsvc

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/qazmun/mun/core"
)

const s3Prefix = "profile_photos/"

// S3API is the part of the S3 client used here.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Store struct {
	client  S3API
	bucket  string
	baseURL string
}

var _ core.BlobStore = (*S3Store)(nil)

func NewS3Store(ctx context.Context, conf core.StorageConfig) (*S3Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(conf.S3Region))
	if err != nil {
		return nil, errors.Wrap(err, "loading aws config")
	}
	return newS3Store(s3.NewFromConfig(awsCfg), conf), nil
}

func newS3Store(client S3API, conf core.StorageConfig) *S3Store {
	baseURL := strings.TrimSuffix(conf.PublicBaseURL, "/")
	if baseURL == "" || strings.HasPrefix(baseURL, "http://localhost") {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", conf.S3Bucket, conf.S3Region)
	}
	return &S3Store{client: client, bucket: conf.S3Bucket, baseURL: baseURL}
}

func (s *S3Store) Put(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error) {
	key := s3Prefix + name
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", errors.Wrap(err, "putting object")
	}
	return s.baseURL + "/" + key, nil
}

func (s *S3Store) Delete(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, s.baseURL+"/") {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(strings.TrimPrefix(url, s.baseURL+"/")),
	})
	return errors.Wrap(err, "deleting object")
}
