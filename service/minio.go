package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/Mnrljan/report-backend/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioService stores report templates and rendered documents in an
// S3-compatible bucket.
type MinioService struct {
	client *minio.Client
	bucket string
}

func NewMinioService(cfg *config.MinioConfig) (*MinioService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioService{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *MinioService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// GetObject downloads a whole object into memory.
func (s *MinioService) GetObject(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", objectName, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", objectName, err)
	}
	return data, nil
}

// PutObject uploads data under objectName.
func (s *MinioService) PutObject(ctx context.Context, objectName string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return nil
}

// Archive stores a rendered document under reports/<id>/<filename>.
func (s *MinioService) Archive(ctx context.Context, reportID string, doc *Document) error {
	return s.PutObject(ctx, ArchiveObjectName(reportID, doc.Filename), doc.Content, doc.ContentType)
}

// ArchiveObjectName is the object key of an archived document.
func ArchiveObjectName(reportID, filename string) string {
	return path.Join("reports", reportID, path.Base(filename))
}

// Template returns a TemplateSource reading objectName from the bucket.
func (s *MinioService) Template(objectName string) TemplateSource {
	return minioTemplate{svc: s, object: objectName}
}

type minioTemplate struct {
	svc    *MinioService
	object string
}

func (t minioTemplate) Load(ctx context.Context) ([]byte, error) {
	return t.svc.GetObject(ctx, t.object)
}
