// Package archive copies every new or changed record payload to an S3
// compatible bucket. Archiving is best effort; callers log failures and
// carry on.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/goccy/go-json"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// Record is one archived version of a record.
type Record struct {
	ID        int64
	FetchedAt int64
	Outcome   string
	Detail    []byte
	Chats     []byte
}

type Archiver interface {
	Archive(ctx context.Context, r Record) error
}

type Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// Prefix is prepended to every object key.
	Prefix string
}

type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Archiver builds the S3 client. Static credentials are used when an
// access key is given, the default AWS chain otherwise; Endpoint points the
// client at MinIO or another S3 compatible store.
func NewS3Archiver(ctx context.Context, opts Options) (*S3Archiver, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Archiver{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

type document struct {
	ID        int64           `json:"id"`
	FetchedAt int64           `json:"fetched_at"`
	Outcome   string          `json:"outcome"`
	Detail    json.RawMessage `json:"detail"`
	Chats     json.RawMessage `json:"chats"`
}

// Key is the object key of r: <prefix>/contracts/<id>/<fetchedAt>.json.
func (a *S3Archiver) Key(r Record) string {
	return path.Join(a.prefix, "contracts", strconv.FormatInt(r.ID, 10), strconv.FormatInt(r.FetchedAt, 10)+".json")
}

func (a *S3Archiver) Archive(ctx context.Context, r Record) error {
	body, err := json.Marshal(document{
		ID:        r.ID,
		FetchedAt: r.FetchedAt,
		Outcome:   r.Outcome,
		Detail:    r.Detail,
		Chats:     r.Chats,
	})
	if err != nil {
		return fmt.Errorf("failed to encode archive of %d: %w", r.ID, err)
	}

	_, err = putObject(a.client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.Key(r)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive %d: %w", r.ID, err)
	}
	return nil
}

// Noop discards records; used when no bucket is configured.
type Noop struct{}

func (Noop) Archive(context.Context, Record) error { return nil }
