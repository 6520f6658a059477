package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Uploader pushes generated workbooks, archives, and metadata side-cars
// to an S3 bucket after a run.
type S3Uploader struct {
	Client *s3.Client
	Bucket string
	Prefix string
}

func NewS3Uploader(cfg aws.Config, bucket, prefix string) *S3Uploader {
	return &S3Uploader{
		Client: s3.NewFromConfig(cfg),
		Bucket: bucket,
		Prefix: prefix,
	}
}

// UploadDirectory walks the local output directory and uploads every file,
// preserving relative paths under the configured prefix.
func (u *S3Uploader) UploadDirectory(localDir string) error {
	return filepath.Walk(localDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		key := filepath.Join(u.Prefix, filepath.ToSlash(relPath))
		// S3 keys always use forward slashes.
		key = strings.ReplaceAll(key, "\\", "/")
		key = strings.TrimPrefix(key, "/")

		return u.UploadFile(path, key)
	})
}

// UploadFile uploads a single file to the bucket under key.
func (u *S3Uploader) UploadFile(localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", localPath, err)
	}
	defer file.Close()

	slog.Info("Uploading to S3", "local", localPath, "bucket", u.Bucket, "key", key)

	_, err = u.Client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket: aws.String(u.Bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to s3: %w", err)
	}
	return nil
}
