package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"

	"github.com/cozy-creator/influencer-studio/internal/config"
)

type S3FileStorage struct {
	client *s3.Client
	cfg    config.S3Config
}

func NewS3FileStorage(cfg *config.Config) (*S3FileStorage, error) {
	if cfg.S3.Bucket == "" {
		return nil, config.ErrS3BucketNotSet
	}

	region := cfg.S3.Region
	if region == "" {
		region = "auto"
	}

	credentialsProvider := credentials.NewStaticCredentialsProvider(cfg.S3.AccessKey, cfg.S3.SecretKey, "")
	awsCfg, err := awsConfig.LoadDefaultConfig(
		context.TODO(),
		awsConfig.WithRegion(region),
		awsConfig.WithCredentialsProvider(credentialsProvider),
	)
	if err != nil {
		return nil, err
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.S3.EndpointURL)
			o.UsePathStyle = true
		}
	})

	return &S3FileStorage{
		client: s3Client,
		cfg:    cfg.S3,
	}, nil
}

func (s *S3FileStorage) Upload(ctx context.Context, file FileInfo) (string, error) {
	if len(file.Content) == 0 {
		return "", ErrEmptyContent
	}

	key := file.Key()
	if folder := strings.Trim(s.cfg.Folder, "/"); folder != "" {
		key = folder + "/" + key
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(file.Content).String()
	}

	input := s3.PutObjectInput{
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Bucket:      aws.String(s.cfg.Bucket),
		Body:        bytes.NewReader(file.Content),
		ACL:         types.ObjectCannedACLPublicRead,
	}
	if _, err := s.client.PutObject(ctx, &input); err != nil {
		return "", err
	}

	return s.publicURL(key)
}

func (s *S3FileStorage) publicURL(key string) (string, error) {
	if s.cfg.PublicURL != "" {
		return strings.TrimSuffix(s.cfg.PublicURL, "/") + "/" + key, nil
	}

	switch {
	case strings.Contains(s.cfg.EndpointURL, "digitaloceanspaces.com"):
		return fmt.Sprintf("https://%s.%s.cdn.digitaloceanspaces.com/%s", s.cfg.Bucket, s.cfg.Region, key), nil
	case strings.Contains(s.cfg.EndpointURL, "amazonaws.com"), s.cfg.EndpointURL == "":
		region := s.cfg.Region
		if region == "" || region == "auto" {
			region = "us-east-1"
		}
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, region, key), nil
	default:
		// R2, Supabase and other S3-compatible stores need an explicit public URL.
		return "", fmt.Errorf("cannot infer public URL for %s; set STUDIO_S3_PUBLIC_URL", s.cfg.EndpointURL)
	}
}
