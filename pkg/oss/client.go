// Package oss 对象存储访问与视频转存。
// 底层走 S3 协议（minio 客户端），对外 URL 支持自定义域名。
package oss

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/dingzu/dramagic/config"
	"github.com/dingzu/dramagic/models"
)

// 转存的对象一律设长缓存，路径里带 uuid 不会被覆盖
const cacheControl = "max-age=31536000"

// ObjectInfo 列目录返回的条目。
type ObjectInfo struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Client 封装 bucket 级别的对象操作。进程启动时构造一次，显式注入使用方。
type Client struct {
	mc           *minio.Client
	bucket       string
	endpoint     string
	useSSL       bool
	customDomain string
	logger       *zap.Logger
}

// New 创建对象存储客户端。调用前先用 cfg.Configured() 判断配置是否齐全。
func New(cfg config.OSSConfig, logger *zap.Logger) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.AccessKeySecret, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create oss client: %w", err)
	}
	logger.Info("oss client initialized",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket),
		zap.Bool("custom_domain", cfg.CustomDomain != ""),
	)
	return &Client{
		mc:           mc,
		bucket:       cfg.Bucket,
		endpoint:     cfg.Endpoint,
		useSSL:       cfg.UseSSL,
		customDomain: cfg.CustomDomain,
		logger:       logger.Named("oss"),
	}, nil
}

// EnsureBucket bucket 不存在则创建。
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return &models.StorageError{Op: "oss.bucket_exists", Err: err}
	}
	if !exists {
		c.logger.Info("bucket missing, creating", zap.String("bucket", c.bucket))
		if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return &models.StorageError{Op: "oss.make_bucket", Err: err}
		}
	}
	return nil
}

// Put 上传并返回对外可达 URL。
func (c *Client) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	_, err := c.mc.PutObject(ctx, c.bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: cacheControl,
	})
	if err != nil {
		return "", &models.StorageError{Op: "oss.put", Err: err}
	}
	return c.PublicURL(path), nil
}

// PublicURL 配了自定义域名就用域名拼，否则用存储服务自身的地址。
func (c *Client) PublicURL(path string) string {
	if c.customDomain != "" {
		return "https://" + c.customDomain + "/" + path
	}
	scheme := "http"
	if c.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, c.endpoint, c.bucket, path)
}

// Delete 删除对象。
func (c *Client) Delete(ctx context.Context, path string) error {
	if err := c.mc.RemoveObject(ctx, c.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return &models.StorageError{Op: "oss.delete", Err: err}
	}
	return nil
}

// Sign 生成带签名的临时访问 URL（私有 bucket 用）。
func (c *Client) Sign(ctx context.Context, path string, ttl time.Duration) (string, error) {
	u, err := c.mc.PresignedGetObject(ctx, c.bucket, path, ttl, nil)
	if err != nil {
		return "", &models.StorageError{Op: "oss.sign", Err: err}
	}
	return u.String(), nil
}

// List 按前缀列对象，最多 max 条。
func (c *Client) List(ctx context.Context, prefix string, max int) ([]ObjectInfo, error) {
	if max <= 0 {
		max = 100
	}
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var out []ObjectInfo
	for obj := range c.mc.ListObjects(listCtx, c.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, &models.StorageError{Op: "oss.list", Err: obj.Err}
		}
		out = append(out, ObjectInfo{Name: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
		if len(out) >= max {
			break
		}
	}
	return out, nil
}
