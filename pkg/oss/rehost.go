package oss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dingzu/dramagic/models"
)

const (
	maxDownloadBytes = 500 << 20 // 500MB，超了直接放弃
	downloadTimeout  = 120 * time.Second
	userAgent        = "Dramagic/1.0"
)

// Uploader 转存只需要"把一段字节放上去拿回 URL"这一个能力，
// 抽出来方便在测试里替掉真实存储。*Client 是生产实现。
type Uploader interface {
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// RehostResult 转存成功后的落地信息。URL 与 Path 要么都有要么都没有。
type RehostResult struct {
	URL         string
	Path        string
	Size        int64
	ContentType string
}

// Rehoster 把上游托管的视频搬进自己的对象存储。
type Rehoster struct {
	up     Uploader
	client *http.Client
	logger *zap.Logger
}

func NewRehoster(up Uploader, logger *zap.Logger) *Rehoster {
	return &Rehoster{
		up:     up,
		client: &http.Client{Timeout: downloadTimeout},
		logger: logger.Named("rehost"),
	}
}

// Rehost 下载 sourceURL 再上传，路径按天分桶：folder/YYYY/MM/DD/<uuid>.<ext>。
// 下载或上传任一步失败都返回 RehostError，由调用方决定是否降级为警告。
func (r *Rehoster) Rehost(ctx context.Context, sourceURL, folder string) (*RehostResult, error) {
	if r.up == nil {
		return nil, &models.RehostError{Stage: "upload", Err: fmt.Errorf("object storage not configured")}
	}

	data, contentType, err := r.download(ctx, sourceURL)
	if err != nil {
		return nil, &models.RehostError{Stage: "download", Err: err}
	}
	r.logger.Info("video downloaded",
		zap.String("source", truncate(sourceURL, 100)),
		zap.Int("bytes", len(data)),
	)

	path := objectPath(folder, extForContentType(contentType))
	url, err := r.up.Put(ctx, path, data, contentType)
	if err != nil {
		return nil, &models.RehostError{Stage: "upload", Err: err}
	}
	r.logger.Info("video rehosted", zap.String("path", path))

	return &RehostResult{
		URL:         url,
		Path:        path,
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}

// download 整段读进内存，带体积上限。
func (r *Rehoster) download(ctx context.Context, sourceURL string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > maxDownloadBytes {
		return nil, "", fmt.Errorf("video exceeds %d bytes limit", maxDownloadBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	return data, contentType, nil
}

// objectPath videos/2025/01/31/<uuid>.mp4 这种按天分桶的路径，天然不冲突。
func objectPath(folder, ext string) string {
	now := time.Now()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s%s",
		folder, now.Year(), int(now.Month()), now.Day(), uuid.NewString(), ext)
}

// extForContentType 不认识的类型当 mp4 处理。
func extForContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "webm"):
		return ".webm"
	case strings.Contains(contentType, "mov"), strings.Contains(contentType, "quicktime"):
		return ".mov"
	case strings.Contains(contentType, "avi"):
		return ".avi"
	}
	return ".mp4"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
