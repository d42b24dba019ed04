package provider

import (
	"context"
	"strings"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	arkmodel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"

	"github.com/dingzu/dramagic/config"
	"github.com/dingzu/dramagic/models"
)

const arkDefaultModel = "doubao-seedance-1-0-pro-250528"

// ArkAdapter 走火山方舟内容生成任务接口（官方 SDK）。单档位。
type ArkAdapter struct {
	creds *Credentials
	cfg   *config.Config
}

var _ Adapter = (*ArkAdapter)(nil)

func NewArk(cfg *config.Config, creds *Credentials) *ArkAdapter {
	return &ArkAdapter{creds: creds, cfg: cfg}
}

func (a *ArkAdapter) Name() string { return ProviderArk }

func (a *ArkAdapter) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, models.NewValidationError("prompt", "prompt is required")
	}
	_, key, err := a.creds.Resolve(ProviderArk, req.Tier)
	if err != nil {
		return nil, err
	}

	client := arkruntime.NewClientWithApiKey(key)
	m := req.Model
	if m == "" {
		m = arkDefaultModel
	}
	createReq := arkmodel.CreateContentGenerationTaskRequest{
		Model: m,
		Content: []*arkmodel.CreateContentGenerationContentItem{
			{
				Type: arkmodel.ContentGenerationContentItemTypeText,
				Text: volcengine.String(req.Prompt),
			},
		},
	}
	resp, err := client.CreateContentGenerationTask(ctx, createReq)
	if err != nil {
		return nil, &models.UpstreamError{Provider: ProviderArk, Err: err}
	}
	return &SubmitResult{ProviderTaskID: resp.ID, InitialStatus: models.StateQueued}, nil
}

func (a *ArkAdapter) Poll(ctx context.Context, providerTaskID, tier string) (*models.ProviderStatus, error) {
	if providerTaskID == "" {
		return nil, models.NewValidationError("source_task_id", "source task id is required")
	}
	_, key, err := a.creds.Resolve(ProviderArk, tier)
	if err != nil {
		return nil, err
	}

	client := arkruntime.NewClientWithApiKey(key)
	getReq := arkmodel.GetContentGenerationTaskRequest{}
	getReq.ID = providerTaskID

	resp, err := client.GetContentGenerationTask(ctx, getReq)
	if err != nil {
		return nil, &models.UpstreamError{Provider: ProviderArk, Err: err}
	}

	var reason string
	if resp.Error != nil {
		reason = resp.Error.Message
	}
	return toProviderStatus(string(resp.Status), resp.Content.VideoURL, reason), nil
}
