// Package storage keeps uploaded part files and their vector previews, in
// MinIO when it is configured and in a local directory otherwise.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bitfantasy/mechai/internal/config"
)

var (
	ErrNotFound        = errors.New("storage: object not found")
	ErrPreviewTooLarge = errors.New("storage: preview exceeds size limit")
	ErrInvalidKey      = errors.New("storage: invalid object key")
)

const defaultPreviewCacheSize = 256

// Store 文件存储
type Store struct {
	client   *minio.Client
	bucket   string
	localDir string

	previews   *lru.Cache[string, string]
	maxPreview int64
}

// New connects to MinIO. With an empty endpoint files are kept under uploadDir.
func New(ctx context.Context, cfg config.MinIOConfig, uploadDir string, maxPreviewBytes int64) (*Store, error) {
	if cfg.Endpoint == "" {
		return NewLocal(uploadDir, cfg.PreviewCacheSize, maxPreviewBytes)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	previews, err := newPreviewCache(cfg.PreviewCacheSize)
	if err != nil {
		return nil, err
	}
	return &Store{client: client, bucket: cfg.Bucket, previews: previews, maxPreview: maxPreviewBytes}, nil
}

// NewLocal stores files below dir.
func NewLocal(dir string, cacheSize int, maxPreviewBytes int64) (*Store, error) {
	if dir == "" {
		dir = "./uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	previews, err := newPreviewCache(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Store{localDir: dir, previews: previews, maxPreview: maxPreviewBytes}, nil
}

func newPreviewCache(size int) (*lru.Cache[string, string], error) {
	if size <= 0 {
		size = defaultPreviewCacheSize
	}
	return lru.New[string, string](size)
}

// Backend names where objects are kept.
func (s *Store) Backend() string {
	if s.client != nil {
		return "minio"
	}
	return "local"
}

// Put stores r under a new key of the form <prefix>/<yyyy/mm/dd>/<uuid><ext>.
func (s *Store) Put(ctx context.Context, prefix, fileName string, r io.Reader, size int64, contentType string) (string, error) {
	key := path.Join(prefix, time.Now().Format("2006/01/02"), uuid.New().String()+strings.ToLower(filepath.Ext(fileName)))

	if s.client != nil {
		_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
		if err != nil {
			return "", fmt.Errorf("upload object: %w", err)
		}
		return key, nil
	}

	full, err := s.localPath(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return key, nil
}

// Open returns the object stored under key.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.client != nil {
		if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
			if minio.ToErrorResponse(err).Code == "NoSuchKey" {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("stat object: %w", err)
		}
		obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, fmt.Errorf("get object: %w", err)
		}
		return obj, nil
	}

	full, err := s.localPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// ReadPreview returns the text of a stored vector preview. Previews are
// immutable once written, so they are cached by key.
func (s *Store) ReadPreview(ctx context.Context, key string) (string, error) {
	if v, ok := s.previews.Get(key); ok {
		return v, nil
	}

	rc, err := s.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var buf bytes.Buffer
	reader := io.Reader(rc)
	if s.maxPreview > 0 {
		reader = io.LimitReader(rc, s.maxPreview+1)
	}
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("read preview: %w", err)
	}
	if s.maxPreview > 0 && int64(buf.Len()) > s.maxPreview {
		return "", ErrPreviewTooLarge
	}

	text := buf.String()
	s.previews.Add(key, text)
	return text, nil
}

func (s *Store) localPath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.localDir, filepath.FromSlash(clean)), nil
}
