package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

var ErrInvalidS3URI = errors.New("invalid s3:// URI, expected s3://bucket/key")

// parseS3URI splits an s3://bucket/key URI into bucket and key
func parseS3URI(uri string) (bucket, key string, err error) {
	trimmed := strings.TrimPrefix(uri, "s3://")
	if trimmed == uri {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidS3URI, uri)
	}

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidS3URI, uri)
	}

	return parts[0], parts[1], nil
}

// newS3Session creates an AWS session for the configured endpoint.
// Static credentials are used when provided, otherwise the default chain.
func newS3Session(config *Config) (*session.Session, error) {
	awsConfig := &aws.Config{
		Region:           aws.String(config.S3.Region),
		S3ForcePathStyle: aws.Bool(true),
	}
	if config.S3.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.S3.Endpoint)
	}
	if config.S3.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.S3.AccessKey, config.S3.SecretKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 session: %w", err)
	}
	return sess, nil
}

// downloadS3Object downloads an s3:// URI to a temp file and returns its
// path. The caller removes the file when done.
func downloadS3Object(ctx context.Context, config *Config, uri string) (string, error) {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return "", err
	}

	sess, err := newS3Session(config)
	if err != nil {
		return "", err
	}
	downloader := s3manager.NewDownloader(sess)

	tempFile, err := os.CreateTemp("", "tabletool-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	_, err = downloader.DownloadWithContext(ctx, tempFile, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	closeErr := tempFile.Close()
	if err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to download %s: %w", uri, err)
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return "", closeErr
	}

	return tempPath, nil
}
