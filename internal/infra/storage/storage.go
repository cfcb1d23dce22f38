package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// LocalStore writes uploads below a directory served at /uploads/.
type LocalStore struct {
	dir       string
	urlPrefix string
}

const localURLPrefix = "/uploads/"

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir, urlPrefix: localURLPrefix}
}

// Dir is the directory uploads are written to.
func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Put(_ context.Context, name, _ string, r io.Reader, _ int64) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	dst := filepath.Join(s.dir, filepath.Base(name))
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return s.urlPrefix + filepath.Base(name), nil
}

// Delete removes a file previously returned by Put. URLs outside /uploads/
// and files that are already gone are ignored.
func (s *LocalStore) Delete(_ context.Context, url string) error {
	if !strings.HasPrefix(url, s.urlPrefix) {
		return nil
	}
	name := filepath.Base(strings.TrimPrefix(url, s.urlPrefix))
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// MinioConfig configures an S3-compatible object store.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL prefixes object URLs; defaults to /{bucket}.
	PublicURL string
}

// MinioStore writes uploads to a MinIO bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	prefix := strings.TrimSuffix(cfg.PublicURL, "/")
	if prefix == "" {
		prefix = "/" + cfg.Bucket
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, prefix: prefix + "/"}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
}

func (s *MinioStore) Put(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return s.prefix + name, nil
}

// Delete removes an object previously returned by Put. Foreign URLs are ignored.
func (s *MinioStore) Delete(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, s.prefix) {
		return nil
	}
	return s.client.RemoveObject(ctx, s.bucket, strings.TrimPrefix(url, s.prefix), minio.RemoveObjectOptions{})
}
