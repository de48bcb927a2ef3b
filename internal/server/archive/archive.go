// Package archive keeps a copy of client writes that lost to the server copy
// during a sync. Archiving is best effort; callers log and ignore failures.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/recipesync/internal/server/config"
	"github.com/dmitrijs2005/recipesync/internal/server/models"
	"github.com/google/uuid"
)

type Archiver interface {
	Archive(ctx context.Context, writes []models.RejectedWrite) error
}

// NopArchiver drops everything. It is used when no bucket is configured.
type NopArchiver struct{}

func (NopArchiver) Archive(context.Context, []models.RejectedWrite) error { return nil }

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes each archived batch as one JSON object.
type S3Archiver struct {
	client objectPutter
	bucket string
	now    func() time.Time
}

// New returns an S3Archiver when cfg names a bucket and a NopArchiver
// otherwise.
func New(ctx context.Context, cfg *config.Config) (Archiver, error) {
	if cfg.S3Bucket == "" {
		return NopArchiver{}, nil
	}
	a, err := NewS3Archiver(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func NewS3Archiver(ctx context.Context, cfg *config.Config) (*S3Archiver, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3RootUser != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3RootUser, cfg.S3RootPassword, "")))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Archiver{client: client, bucket: cfg.S3Bucket, now: time.Now}, nil
}

// ObjectKey is the storage key of a batch archived at t.
func ObjectKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("conflicts/%04d/%02d/%02d/%d-%s.json", t.Year(), t.Month(), t.Day(), t.UnixMilli(), uuid.NewString())
}

func (a *S3Archiver) Archive(ctx context.Context, writes []models.RejectedWrite) error {
	if len(writes) == 0 {
		return nil
	}

	body, err := json.Marshal(writes)
	if err != nil {
		return fmt.Errorf("failed to encode archive: %w", err)
	}

	key := ObjectKey(a.now())
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}

	return nil
}
