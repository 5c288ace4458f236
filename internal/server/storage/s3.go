// Package storage uploads staged files to S3-compatible object storage and
// returns their public URLs.
package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Uploader moves a local file to object storage. The local file is removed
// whether or not the upload succeeds.
type Uploader interface {
	UploadFile(ctx context.Context, localPath string) (string, error)
}

// objectPutter is the slice of *s3.Client the uploader needs.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type S3Config struct {
	Bucket        string
	Region        string
	AccessKey     string
	SecretKey     string
	BaseEndpoint  string
	PublicBaseURL string
}

type S3Uploader struct {
	client objectPutter
	cfg    S3Config
	now    func() time.Time
}

// NewS3Uploader builds a client with static credentials and path-style
// addressing, which MinIO and most S3 clones require.
func NewS3Uploader(ctx context.Context, c S3Config) (*S3Uploader, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKey,
			c.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Uploader{client: client, cfg: c, now: time.Now}, nil
}

// ObjectKey returns a fresh date-partitioned key keeping ext.
func ObjectKey(now time.Time, ext string) string {
	return fmt.Sprintf("avatars/%d/%d/%d/%v%s", now.Year(), now.Month(), now.Day(), uuid.New(), strings.ToLower(ext))
}

// ObjectURL is the public address of key.
func (u *S3Uploader) ObjectURL(key string) string {
	if u.cfg.PublicBaseURL != "" {
		return strings.TrimRight(u.cfg.PublicBaseURL, "/") + "/" + key
	}
	return strings.TrimRight(u.cfg.BaseEndpoint, "/") + "/" + u.cfg.Bucket + "/" + key
}

func (u *S3Uploader) UploadFile(ctx context.Context, localPath string) (string, error) {
	defer func() { _ = os.Remove(localPath) }()

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	ext := filepath.Ext(localPath)
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := ObjectKey(u.now(), ext)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return u.ObjectURL(key), nil
}
