package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/princinho/tubebackend/config"
)

// R2Store writes objects to a Cloudflare R2 bucket over the S3 API.
type R2Store struct {
	client *s3.Client
	bucket string
	domain string
}

func NewR2Store(ctx context.Context, cfg config.R2) (*R2Store, error) {
	if cfg.Bucket == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.Endpoint == "" {
		return nil, fmt.Errorf("missing R2 settings (bucket, access key, secret key, endpoint)")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true // required for R2
	})

	return &R2Store{
		client: client,
		bucket: cfg.Bucket,
		domain: strings.TrimRight(cfg.PublicDomain, "/"),
	}, nil
}

func (s *R2Store) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("r2 put object: %w", err)
	}
	return s.publicURL(key), nil
}

// publicURL builds the public URL for a stored object from the configured
// custom domain or r2.dev URL.
func (s *R2Store) publicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.domain, s.bucket, key)
}
