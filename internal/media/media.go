// Package media 把上传的文件存入 S3 兼容的对象存储并返回可访问的 URL。
package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"videohub/internal/apperr"
	"videohub/internal/config"
)

var ErrUnavailable = apperr.New(apperr.Internal, "media storage is not configured")

// File 是待上传的文件，Size 未知时为 -1。
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Result 是上传完成后的对象信息。
type Result struct {
	Key  string
	URL  string
	Size int64
}

type objectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

type Storage struct {
	api     objectAPI
	bucket  string
	baseURL string
}

// New 根据配置创建 MinIO 客户端并确保 bucket 存在。
func New(ctx context.Context, cfg config.Media) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	base := cfg.PublicURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}
	return NewWithAPI(ctx, client, cfg.Bucket, base)
}

// NewWithAPI 允许注入可 mock 的 API（测试用）。
func NewWithAPI(ctx context.Context, api objectAPI, bucket, baseURL string) (*Storage, error) {
	s := &Storage{api: api, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
	exists, err := api.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return s, nil
}

// Upload 以 prefix/<uuid><ext> 为 key 写入对象。
func (s *Storage) Upload(ctx context.Context, prefix string, f File) (Result, error) {
	key := path.Join(prefix, uuid.NewString()+strings.ToLower(path.Ext(f.Name)))
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := s.api.PutObject(ctx, s.bucket, key, f.Body, f.Size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return Result{}, fmt.Errorf("upload %s: %w", f.Name, err)
	}
	return Result{Key: key, URL: s.baseURL + "/" + s.bucket + "/" + key, Size: info.Size}, nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := s.api.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Unavailable 在未配置对象存储时使用，所有上传均失败。
type Unavailable struct{}

func (Unavailable) Upload(context.Context, string, File) (Result, error) {
	return Result{}, ErrUnavailable
}

func (Unavailable) Delete(context.Context, string) error { return nil }
