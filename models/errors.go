package models

import (
	"errors"
	"fmt"
)

// 预定义错误
var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrPriceNotFound   = errors.New("price entry not found")
)

// ValidationError 请求参数缺失或非法，在任何网络/存储调用之前检出。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError 构造参数错误。
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConfigurationError 选中的凭证档位没有配置密钥，属于部署问题而非调用方问题。
type ConfigurationError struct {
	Credential string // 缺失的凭证名（环境变量名）
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("credential not configured: %s", e.Credential)
}

// UpstreamError 上游 AI 服务调用失败。StatusCode 为上游返回的 HTTP 状态码，
// 拿不到时为 0；Details 原样保留上游响应体，仅作诊断，不参与控制流。
type UpstreamError struct {
	Provider   string
	StatusCode int
	Details    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s upstream error (status %d): %s", e.Provider, e.StatusCode, e.Details)
	}
	if e.Err != nil {
		return fmt.Sprintf("provider %s upstream error: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("provider %s upstream error: %s", e.Provider, e.Details)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// StorageError 持久化或对象存储不可达，与参数错误、上游错误分开上报，
// 调用方据此区分"重试"还是"修部署"。
type StorageError struct {
	Op  string // 出错的操作，如 "mysql.insert_task"、"oss.put"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage unavailable (%s): %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// RehostError 转存（下载+上传）失败。对任务非致命：任务仍可带着
// source_video_url 完成，oss 字段留空，错误记录下来可见。
type RehostError struct {
	Stage string // "download" 或 "upload"
	Err   error
}

func (e *RehostError) Error() string {
	return fmt.Sprintf("rehost %s failed: %v", e.Stage, e.Err)
}

func (e *RehostError) Unwrap() error { return e.Err }
