package provider

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dingzu/dramagic/models"
)

// 上游调用超时。提交和查询都是短请求，视频本体不走这里。
const upstreamTimeout = 60 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: upstreamTimeout}
}

// readBody 读响应体，留给诊断用，最多 1MB。
func readBody(resp *http.Response) []byte {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return b
}

// upstreamHTTPError 非 2xx 响应统一包装，响应体原样带回。
func upstreamHTTPError(provider string, resp *http.Response, body []byte) error {
	return &models.UpstreamError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Details:    string(body),
	}
}

// normalizeState 把上游五花八门的状态词表（含大小写差异）翻译到
// 归一化四值。不认识的词返回空串，由调用处决定当作进行中处理。
func normalizeState(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "queued", "pending", "submitted", "in_queue", "waiting":
		return models.StateQueued
	case "processing", "running", "in_progress", "generating", "preprocessing":
		return models.StateInProgress
	case "succeeded", "success", "completed", "complete", "finished":
		return models.StateCompleted
	case "failed", "failure", "error", "cancelled", "canceled", "expired":
		return models.StateFailed
	}
	return ""
}
