package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"

	domainStorage "github.com/AzielCF/az-mediahub/domains/storage"
)

// S3Config holds the connection settings for the backing bucket. Endpoint
// is optional and enables S3-compatible stores (R2, MinIO).
type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string // base of the proxy URL handed back to callers
	PublicRead    bool
}

// S3Store implements domains/storage.ObjectStore on top of aws-sdk-go-v2.
type S3Store struct {
	client *s3.Client
	cfg    S3Config
}

// NewS3Store builds the client. Static credentials take precedence; with
// none configured the default AWS credential chain applies.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("object store bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "auto"
	}

	opts := s3.Options{
		Region: cfg.Region,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	if cfg.AccessKey != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		opts.Credentials = awsCfg.Credentials
	}

	logrus.Infof("[STORE] S3 client initialized (bucket=%s region=%s endpoint=%s)", cfg.Bucket, cfg.Region, cfg.Endpoint)
	return &S3Store{client: s3.New(opts), cfg: cfg}, nil
}

func (s *S3Store) Put(ctx context.Context, input domainStorage.PutInput) error {
	putInput := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(input.Key),
		Body:        bytes.NewReader(input.Body),
		ContentType: aws.String(input.ContentType),
		Metadata:    input.Metadata,
	}
	if s.cfg.PublicRead {
		putInput.ACL = types.ObjectCannedACLPublicRead
	}

	if _, err := s.client.PutObject(ctx, putInput); err != nil {
		return fmt.Errorf("failed to put object %s: %w", input.Key, err)
	}
	return nil
}

func (s *S3Store) Head(ctx context.Context, key string) (domainStorage.ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return domainStorage.ObjectInfo{}, wrapNotFound(key, err)
	}

	return domainStorage.ObjectInfo{
		Key:         key,
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
	}, nil
}

func (s *S3Store) Get(ctx context.Context, key string) (domainStorage.ObjectInfo, io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return domainStorage.ObjectInfo{}, nil, wrapNotFound(key, err)
	}

	info := domainStorage.ObjectInfo{
		Key:         key,
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
	}
	return info, out.Body, nil
}

func (s *S3Store) PublicURL(key string) string {
	return strings.TrimSuffix(s.cfg.PublicBaseURL, "/") + "/" + key
}

func wrapNotFound(key string, err error) error {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return domainStorage.ErrNotFound{Key: key}
	}
	return err
}
