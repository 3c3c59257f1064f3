package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"storyreel/internal/models"
)

// S3Config - параметры S3-совместимого хранилища.
type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string // пустой для AWS, иначе MinIO и т.п.
	Prefix        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

// S3 хранит blob-ы в бакете S3.
type S3 struct {
	client        *s3.Client
	bucket        string
	prefix        string
	publicBaseURL string
	logger        *zap.Logger
}

var _ Store = (*S3)(nil)

func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is not configured")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
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

	base := cfg.PublicBaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", cfg.Bucket, cfg.Region, strings.Trim(cfg.Prefix, "/"))
	}
	return &S3{
		client:        client,
		bucket:        cfg.Bucket,
		prefix:        strings.Trim(cfg.Prefix, "/"),
		publicBaseURL: base,
		logger:        logger.Named("S3BlobStore"),
	}, nil
}

func (s *S3) key(rel string) string {
	if s.prefix == "" {
		return rel
	}
	return path.Join(s.prefix, rel)
}

func (s *S3) Put(ctx context.Context, owner string, data []byte, ext string) (string, error) {
	rel, err := ObjectPath(owner, data, ext)
	if err != nil {
		return "", err
	}
	contentType := mime.TypeByExtension(path.Ext(rel))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(rel)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.Error("Failed to upload blob", zap.String("path", rel), zap.Error(err))
		return "", fmt.Errorf("put blob %s: %w", rel, err)
	}
	return rel, nil
}

func (s *S3) Get(ctx context.Context, relPath string) ([]byte, error) {
	rel, err := cleanRelPath(relPath)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(s.key(rel))})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("blob %s: %w", rel, models.ErrNotFound)
		}
		return nil, fmt.Errorf("get blob %s: %w", rel, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// DeleteOwner удаляет все объекты с префиксом владельца.
func (s *S3) DeleteOwner(ctx context.Context, owner string) error {
	rel, err := cleanRelPath(owner)
	if err != nil {
		return err
	}
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key(rel) + "/"),
	})
	deleted := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list blobs of %s: %w", owner, err)
		}
		if len(page.Contents) == 0 {
			continue
		}
		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}
		if _, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		}); err != nil {
			return fmt.Errorf("delete blobs of %s: %w", owner, err)
		}
		deleted += len(ids)
	}
	s.logger.Info("Owner blobs deleted", zap.String("owner", owner), zap.Int("objects", deleted))
	return nil
}

func (s *S3) URL(relPath string) string {
	return joinURL(s.publicBaseURL, relPath)
}
