package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/dingzu/dramagic/config"
	"github.com/dingzu/dramagic/models"
)

// ToapisAdapter 接 toapis 的排队式接口：提交进队列拿 task_id，
// 状态走单独的查询端点。只有一个隐式档位。
type ToapisAdapter struct {
	baseURL string
	creds   *Credentials
	client  *http.Client
}

var _ Adapter = (*ToapisAdapter)(nil)

func NewToapis(cfg *config.Config, creds *Credentials) *ToapisAdapter {
	return &ToapisAdapter{
		baseURL: strings.TrimRight(cfg.Toapis.BaseURL, "/"),
		creds:   creds,
		client:  newHTTPClient(),
	}
}

func (a *ToapisAdapter) Name() string { return ProviderToapis }

// envelope toapis 的统一响应壳，code 非 0 即失败。
type toapisEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *ToapisAdapter) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, models.NewValidationError("prompt", "prompt is required")
	}
	_, key, err := a.creds.Resolve(ProviderToapis, req.Tier)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = "sora"
	}
	payload := map[string]interface{}{
		"model":  model,
		"prompt": req.Prompt,
	}
	if req.Duration > 0 {
		payload["duration"] = req.Duration
	}
	if req.Size != "" {
		payload["size"] = req.Size
	}
	b, _ := json.Marshal(payload)

	data, err := a.call(ctx, http.MethodPost, a.baseURL+"/v1/video/create", key, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	var out struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal(data, &out); err != nil || out.TaskID == "" {
		return nil, &models.UpstreamError{Provider: ProviderToapis, Details: string(data), Err: err}
	}
	return &SubmitResult{ProviderTaskID: out.TaskID, InitialStatus: models.StateQueued}, nil
}

func (a *ToapisAdapter) Poll(ctx context.Context, providerTaskID, tier string) (*models.ProviderStatus, error) {
	if providerTaskID == "" {
		return nil, models.NewValidationError("source_task_id", "source task id is required")
	}
	_, key, err := a.creds.Resolve(ProviderToapis, tier)
	if err != nil {
		return nil, err
	}

	u := a.baseURL + "/v1/video/query?task_id=" + url.QueryEscape(providerTaskID)
	data, err := a.call(ctx, http.MethodGet, u, key, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Status     string `json:"status"`
		VideoURL   string `json:"video_url"`
		FailReason string `json:"fail_reason"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &models.UpstreamError{Provider: ProviderToapis, Details: string(data), Err: err}
	}
	return toProviderStatus(out.Status, out.VideoURL, out.FailReason), nil
}

// call 发请求并剥掉响应壳。
func (a *ToapisAdapter) call(ctx context.Context, method, url, key string, body *bytes.Reader) ([]byte, error) {
	var httpReq *http.Request
	var err error
	if body != nil {
		httpReq, err = http.NewRequestWithContext(ctx, method, url, body)
	} else {
		httpReq, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return nil, &models.UpstreamError{Provider: ProviderToapis, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+key)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, &models.UpstreamError{Provider: ProviderToapis, Err: err}
	}
	defer resp.Body.Close()
	raw := readBody(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamHTTPError(ProviderToapis, resp, raw)
	}

	var env toapisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &models.UpstreamError{Provider: ProviderToapis, Details: string(raw), Err: err}
	}
	if env.Code != 0 {
		return nil, &models.UpstreamError{Provider: ProviderToapis, Details: string(raw)}
	}
	return env.Data, nil
}
