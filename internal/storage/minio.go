package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"docflow/internal/config"
)

// minioVault implements Vault against an S3-compatible backend (MinIO, AWS
// S3, etc.). Safe for concurrent use.
type minioVault struct {
	client *minio.Client
	bucket string
}

// NewMinIO creates the artifact vault backed by MinIO. It validates
// connectivity and ensures the bucket exists (creates it if missing).
func NewMinIO(cfg config.MinIOConfig) (Vault, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	v := &minioVault{client: cli, bucket: cfg.Bucket}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return v, nil
}

// Put stores an artifact using streaming I/O only.
func (v *minioVault) Put(ctx context.Context, key string, r io.Reader, opt PutOptions) (ArtifactInfo, error) {
	info, err := v.client.PutObject(ctx, v.bucket, key, r, opt.Size, minio.PutObjectOptions{
		ContentType:  opt.ContentType,
		UserMetadata: opt.Metadata,
	})
	if err != nil {
		return ArtifactInfo{}, err
	}
	return ArtifactInfo{
		Key:          key,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  opt.ContentType,
		LastModified: time.Now(),
		Metadata:     opt.Metadata,
	}, nil
}

// Get streams an artifact's content along with basic info.
func (v *minioVault) Get(ctx context.Context, key string) (io.ReadCloser, ArtifactInfo, error) {
	obj, err := v.client.GetObject(ctx, v.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ArtifactInfo{}, err
	}
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, ArtifactInfo{}, err
	}
	return obj, ArtifactInfo{
		Key:          key,
		Size:         st.Size,
		ETag:         st.ETag,
		ContentType:  st.ContentType,
		LastModified: st.LastModified,
		Metadata:     st.UserMetadata,
	}, nil
}

// Delete removes a single artifact.
func (v *minioVault) Delete(ctx context.Context, key string) error {
	return v.client.RemoveObject(ctx, v.bucket, key, minio.RemoveObjectOptions{})
}

// DeletePrefix removes every artifact under the given key prefix.
func (v *minioVault) DeletePrefix(ctx context.Context, prefix string) error {
	objects := v.client.ListObjects(ctx, v.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return obj.Err
		}
		if err := v.client.RemoveObject(ctx, v.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return err
		}
	}
	return nil
}

// PresignGet generates a pre-signed download URL with the given expiry.
func (v *minioVault) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := v.client.PresignedGetObject(ctx, v.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
