package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/go-hclog"
)

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// S3 publishes artifact directories to a bucket. Destinations are either a
// key prefix inside the configured bucket or an s3://bucket/prefix URI.
type S3 struct {
	client s3API
	bucket string
	logger hclog.Logger
}

func NewS3(ctx context.Context, cfg S3Config, logger hclog.Logger) (*S3, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3(client, cfg.Bucket, logger), nil
}

func newS3(client s3API, bucket string, logger hclog.Logger) *S3 {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &S3{client: client, bucket: bucket, logger: logger.Named("s3-store")}
}

func (s *S3) UploadDirectory(ctx context.Context, localDir string, dest string) error {
	_, err := s.upload(ctx, localDir, dest)
	return err
}

// UploadAndVerify uploads the directory and then checks that every object
// exists with the size of its local file.
func (s *S3) UploadAndVerify(ctx context.Context, localDir string, dest string) error {
	uploaded, err := s.upload(ctx, localDir, dest)
	if err != nil {
		return err
	}

	bucket, _ := s.location(dest)
	var errs []error
	for key, size := range uploaded {
		out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("verify s3://%s/%s: %w", bucket, key, err))
			continue
		}
		if got := aws.ToInt64(out.ContentLength); got != size {
			errs = append(errs, fmt.Errorf("verify s3://%s/%s: size %d, expected %d", bucket, key, got, size))
		}
	}
	return errors.Join(errs...)
}

// Verifying returns an ObjectStore whose uploads are verified.
func (s *S3) Verifying() *VerifyingS3 {
	return &VerifyingS3{s: s}
}

type VerifyingS3 struct {
	s *S3
}

func (v *VerifyingS3) UploadDirectory(ctx context.Context, localDir string, dest string) error {
	return v.s.UploadAndVerify(ctx, localDir, dest)
}

func (s *S3) upload(ctx context.Context, localDir string, dest string) (map[string]int64, error) {
	bucket, prefix := s.location(dest)
	if bucket == "" {
		return nil, fmt.Errorf("s3 upload: no bucket for destination %q", dest)
	}

	files, err := walkFiles(localDir)
	if err != nil {
		return nil, err
	}

	uploaded := make(map[string]int64, len(files))
	for _, f := range files {
		key := objectKey(prefix, f.rel)
		if err := s.put(ctx, bucket, key, f); err != nil {
			return uploaded, err
		}
		uploaded[key] = f.size
		s.logger.Debug("uploaded object", "bucket", bucket, "key", key, "bytes", f.size)
	}
	return uploaded, nil
}

func (s *S3) put(ctx context.Context, bucket, key string, f localFile) error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.rel, err)
	}
	defer file.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(f.size),
		ContentType:   aws.String(contentType(f.rel)),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// Download writes the object named by src, a key or s3:// URI, to dst.
func (s *S3) Download(ctx context.Context, src string, dst string) error {
	bucket, key := s.location(src)
	if bucket == "" || key == "" {
		return fmt.Errorf("s3 download: invalid source %q", src)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	return writeFile(dst, out.Body)
}

func (s *S3) location(dest string) (bucket, key string) {
	if rest, ok := strings.CutPrefix(dest, "s3://"); ok {
		bucket, key, _ = strings.Cut(rest, "/")
		return bucket, strings.Trim(key, "/")
	}
	return s.bucket, strings.Trim(dest, "/")
}
