package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// MinioOptions configures the object-storage backend. Works against
// MinIO and any S3-compatible endpoint.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Minio stores media in an S3-compatible bucket. PutObject on an
// existing key overwrites it, so variant regeneration needs no
// separate delete.
type Minio struct {
	client *minio.Client
	bucket string
}

func NewMinio(ctx context.Context, opts MinioOptions) (*Minio, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create minio client")
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "check bucket")
	}
	if !exists {
		err = client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{})
		if err != nil {
			return nil, errors.Wrap(err, "create bucket")
		}
	}

	return &Minio{client: client, bucket: opts.Bucket}, nil
}

func (m *Minio) Save(ctx context.Context, path, contentType string, data []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return errors.Wrapf(err, "put object: %s", path)
}

func (m *Minio) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "get object: %s", path)
	}
	return obj, nil
}

func (m *Minio) Delete(ctx context.Context, path string) error {
	err := m.client.RemoveObject(ctx, m.bucket, path, minio.RemoveObjectOptions{})
	return errors.Wrapf(err, "remove object: %s", path)
}
