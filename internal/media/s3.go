package media

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore writes an object and returns the URL clients fetch it from.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

type S3Options struct {
	Region        string
	Bucket        string
	Endpoint      string
	PathStyle     bool
	PublicBaseURL string
}

type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	opts     S3Options
}

// NewS3Store uses the default AWS credential chain. Endpoint points the client at an
// S3-compatible server such as MinIO.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(opts.Region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})
	return &S3Store{client: client, uploader: manager.NewUploader(client), opts: opts}, nil
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	return s.URL(key), nil
}

func (s *S3Store) URL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	switch {
	case s.opts.PublicBaseURL != "":
		return strings.TrimRight(s.opts.PublicBaseURL, "/") + "/" + escaped
	case s.opts.Endpoint != "":
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.opts.Endpoint, "/"), s.opts.Bucket, escaped)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.opts.Bucket, s.opts.Region, escaped)
	}
}
