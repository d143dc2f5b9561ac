package source

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig locates a bucket of transcripts.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// MinIO reads transcripts from an S3-compatible bucket.
type MinIO struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewMinIO(cfg MinIOConfig) (*MinIO, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinIO{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (m *MinIO) Name() string { return "minio" }

// List returns every supported object under the prefix.
func (m *MinIO) List(ctx context.Context) ([]Document, error) {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", m.bucket)
	}

	var docs []Document
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    m.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		if !Supported(obj.Key) {
			continue
		}
		docs = append(docs, Document{
			ID:         obj.Key,
			Name:       path.Base(obj.Key),
			MimeType:   obj.ContentType,
			ModifiedAt: obj.LastModified,
			Size:       obj.Size,
		})
	}
	return docs, nil
}

func (m *MinIO) Read(ctx context.Context, doc Document) (string, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, doc.ID, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("get object %s: %w", doc.ID, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", fmt.Errorf("read object %s: %w", doc.ID, err)
	}
	return decode(doc.Name, data)
}
