package vault

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"ortho-go/internal/config"
	"ortho-go/internal/ortho"
)

// minioPartSize bounds the memory used to buffer an upload of unknown size.
const minioPartSize = 16 << 20

// MinioVault stores objects in a MinIO (or other S3-compatible) bucket.
type MinioVault struct {
	name   string
	bucket string
	prefix string
	region string
	client *minio.Client
}

// NewMinioVault creates a MinIO vault from config. s3_endpoint is the
// host:port of the server, without scheme.
func NewMinioVault(cfg config.VaultConfig) (*MinioVault, error) {
	if cfg.S3Endpoint == "" {
		return nil, fmt.Errorf("minio vault requires s3_endpoint to be set")
	}
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("minio vault requires s3_bucket to be set")
	}

	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &MinioVault{
		name:   cfg.Name,
		bucket: cfg.S3Bucket,
		prefix: cfg.S3Prefix,
		region: cfg.S3Region,
		client: client,
	}, nil
}

func (v *MinioVault) objectKey(key string) string {
	if v.prefix == "" {
		return key
	}
	return path.Join(v.prefix, key)
}

// Put streams r as a multipart upload; the object appears once the upload completes.
func (v *MinioVault) Put(key string, r io.Reader) error {
	_, err := v.client.PutObject(context.Background(), v.bucket, v.objectKey(key), r, -1,
		minio.PutObjectOptions{PartSize: minioPartSize})
	if err != nil {
		return fmt.Errorf("upload object %s: %w", key, err)
	}
	return nil
}

func (v *MinioVault) Get(key string, w io.Writer) error {
	ctx := context.Background()
	objectKey := v.objectKey(key)

	// GetObject is lazy; Stat surfaces a missing key before any bytes are written.
	if _, err := v.client.StatObject(ctx, v.bucket, objectKey, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return fmt.Errorf("%s: %w", key, ortho.ErrNotFound)
		}
		return fmt.Errorf("stat object %s: %w", key, err)
	}

	obj, err := v.client.GetObject(ctx, v.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("get object %s: %w", key, err)
	}
	defer obj.Close()

	if _, err := io.Copy(w, obj); err != nil {
		return fmt.Errorf("read object %s: %w", key, err)
	}
	return nil
}

func (v *MinioVault) Delete(key string) error {
	err := v.client.RemoveObject(context.Background(), v.bucket, v.objectKey(key), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// ValidateSetup makes sure the bucket exists, creating it if needed.
func (v *MinioVault) ValidateSetup() error {
	ctx := context.Background()
	exists, err := v.client.BucketExists(ctx, v.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", v.bucket, err)
	}
	if !exists {
		if err := v.client.MakeBucket(ctx, v.bucket, minio.MakeBucketOptions{Region: v.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", v.bucket, err)
		}
	}
	return nil
}

var _ ortho.Vault = (*MinioVault)(nil)
