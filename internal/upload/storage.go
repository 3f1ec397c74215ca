package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"learnhub/m/internal/config"
)

// Object is a file ready to be stored.
type Object struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Location says where a stored object lives.
type Location struct {
	Key string
	URL string
}

// ErrObjectExists is returned by Put when the name is already taken.
var ErrObjectExists = errors.New("object already exists")

type Storage interface {
	Put(ctx context.Context, obj Object) (Location, error)
	// Delete removes the object stored under key. A missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// DiskStorage keeps files in a local directory served under PublicPrefix.
type DiskStorage struct {
	Dir          string
	PublicPrefix string
}

// NewDiskStorage ensures dir exists.
func NewDiskStorage(dir string) (*DiskStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStorage{Dir: dir, PublicPrefix: "/uploads"}, nil
}

func (d *DiskStorage) Put(ctx context.Context, obj Object) (Location, error) {
	path := filepath.Join(d.Dir, filepath.Base(obj.Name))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return Location{}, fmt.Errorf("create %s: %w", path, ErrObjectExists)
	}
	if err != nil {
		return Location{}, fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, obj.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return Location{}, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return Location{}, err
	}
	return Location{Key: path, URL: d.PublicPrefix + "/" + filepath.Base(obj.Name)}, nil
}

func (d *DiskStorage) Delete(ctx context.Context, key string) error {
	if err := os.Remove(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// objectClient is the part of *s3.Client the storage uses.
type objectClient interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage puts files into a bucket on AWS S3 or an S3-compatible server.
type S3Storage struct {
	client  objectClient
	bucket  string
	baseURL string
	now     func() time.Time
}

// NewS3Storage builds a client from static credentials when given, otherwise
// from the default AWS credential chain.
func NewS3Storage(ctx context.Context, cfg config.S3Config) (*S3Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	if cfg.Endpoint != "" {
		baseURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return &S3Storage{client: client, bucket: cfg.Bucket, baseURL: baseURL, now: time.Now}, nil
}

func (s *S3Storage) Put(ctx context.Context, obj Object) (Location, error) {
	key := s.key(obj.Name)
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   obj.Body,
	}
	if obj.ContentType != "" {
		in.ContentType = aws.String(obj.ContentType)
	}
	if obj.Size > 0 {
		in.ContentLength = aws.Int64(obj.Size)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return Location{}, fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return Location{Key: key, URL: s.baseURL + "/" + key}, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *S3Storage) key(name string) string {
	d := s.now()
	return fmt.Sprintf("uploads/%d/%02d/%02d/%s/%s", d.Year(), d.Month(), d.Day(), uuid.NewString(), name)
}
