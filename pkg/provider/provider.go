// Package provider 封装各视频生成上游的提交/查询差异，对外只暴露
// 统一的 Submit/Poll 契约和四值归一化状态。
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/dingzu/dramagic/models"
)

// provider key 常量
const (
	ProviderComfly = "comfly"
	ProviderToapis = "toapis"
	ProviderArk    = "ark"
)

// SubmitRequest 统一的提交参数。各 provider 不支持的选项会被忽略，
// 只有 Prompt 是硬性必填。
type SubmitRequest struct {
	Prompt      string
	Model       string
	Tier        string
	Duration    int    // 秒
	Size        string // 如 "720x1280"（JSON 形态接口用）
	AspectRatio string // 如 "16:9"（表单形态接口用）
	HD          bool
	Watermark   bool
}

// SubmitResult 提交成功后的上游任务标识与初始状态（归一化）。
type SubmitResult struct {
	ProviderTaskID string
	InitialStatus  string
}

// Adapter 单个上游的适配器。适配器不做重试，重试策略在上层。
// 实现必须可并发调用（无每次调用间共享的可变状态）。
type Adapter interface {
	Name() string
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
	Poll(ctx context.Context, providerTaskID, tier string) (*models.ProviderStatus, error)
}

// Registry 按 provider key 选择适配器。provider 身份只在这里分支，
// 上层不再关心是哪家。
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Registry{adapters: m}
}

// Get 未知 provider 属于参数错误。
func (r *Registry) Get(provider string) (Adapter, error) {
	a, ok := r.adapters[provider]
	if !ok {
		return nil, models.NewValidationError("provider", fmt.Sprintf("unknown provider %q", provider))
	}
	return a, nil
}

// SourceKey 任务行 source 字段的格式：provider 或 provider:tier。
// 档位在提交时就固化到记录上，后续轮询一律用它，不从上游任务 ID 反推。
func SourceKey(provider, tier string) string {
	if tier == "" || tier == TierDefault {
		return provider
	}
	return provider + ":" + tier
}

// ParseSource 拆出 provider 与 tier。
func ParseSource(source string) (provider, tier string) {
	if i := strings.IndexByte(source, ':'); i >= 0 {
		return source[:i], source[i+1:]
	}
	return source, TierDefault
}
