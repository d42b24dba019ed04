package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dingzu/dramagic/config"
	"github.com/dingzu/dramagic/models"
)

// ComflyAdapter 接 comfly 的两套接口：
//   - default 档走逆向接口（multipart 表单，aspect_ratio/hd/watermark 参数）
//   - premium/original 档走官方形态接口（JSON，size/seconds 参数）
//
// 两套接口的状态词表和字段名都不一样，在这里统一翻译。
type ComflyAdapter struct {
	baseURL string
	creds   *Credentials
	client  *http.Client
}

var _ Adapter = (*ComflyAdapter)(nil)

func NewComfly(cfg *config.Config, creds *Credentials) *ComflyAdapter {
	return &ComflyAdapter{
		baseURL: strings.TrimRight(cfg.Comfly.BaseURL, "/"),
		creds:   creds,
		client:  newHTTPClient(),
	}
}

func (a *ComflyAdapter) Name() string { return ProviderComfly }

func (a *ComflyAdapter) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	// prompt 校验在凭证解析和任何网络请求之前
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, models.NewValidationError("prompt", "prompt is required")
	}
	tier, key, err := a.creds.Resolve(ProviderComfly, req.Tier)
	if err != nil {
		return nil, err
	}
	if tier == TierDefault {
		return a.submitForm(ctx, key, req)
	}
	return a.submitJSON(ctx, key, req)
}

// submitForm 逆向接口，multipart 表单提交。
func (a *ComflyAdapter) submitForm(ctx context.Context, key string, req SubmitRequest) (*SubmitResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("prompt", req.Prompt)
	ar := req.AspectRatio
	if ar == "" {
		ar = "16:9"
	}
	_ = w.WriteField("aspect_ratio", ar)
	_ = w.WriteField("hd", strconv.FormatBool(req.HD))
	_ = w.WriteField("watermark", strconv.FormatBool(req.Watermark))
	if req.Duration > 0 {
		_ = w.WriteField("duration", strconv.Itoa(req.Duration))
	}
	if err := w.Close(); err != nil {
		return nil, &models.UpstreamError{Provider: ProviderComfly, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/sora/video", &buf)
	if err != nil {
		return nil, &models.UpstreamError{Provider: ProviderComfly, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+key)
	httpReq.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, &models.UpstreamError{Provider: ProviderComfly, Err: err}
	}
	defer resp.Body.Close()
	body := readBody(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamHTTPError(ProviderComfly, resp, body)
	}

	var out struct {
		TaskID string `json:"task_id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.TaskID == "" {
		return nil, &models.UpstreamError{Provider: ProviderComfly, Details: string(body), Err: err}
	}
	return &SubmitResult{ProviderTaskID: out.TaskID, InitialStatus: initialState(out.Status)}, nil
}

// submitJSON 官方形态接口。
func (a *ComflyAdapter) submitJSON(ctx context.Context, key string, req SubmitRequest) (*SubmitResult, error) {
	model := req.Model
	if model == "" {
		model = "sora-2"
	}
	size := req.Size
	if size == "" {
		size = "1280x720"
	}
	seconds := req.Duration
	if seconds <= 0 {
		seconds = 4
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"model":   model,
		"prompt":  req.Prompt,
		"size":    size,
		"seconds": seconds,
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/videos", bytes.NewReader(payload))
	if err != nil {
		return nil, &models.UpstreamError{Provider: ProviderComfly, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+key)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, &models.UpstreamError{Provider: ProviderComfly, Err: err}
	}
	defer resp.Body.Close()
	body := readBody(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamHTTPError(ProviderComfly, resp, body)
	}

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		return nil, &models.UpstreamError{Provider: ProviderComfly, Details: string(body), Err: err}
	}
	return &SubmitResult{ProviderTaskID: out.ID, InitialStatus: initialState(out.Status)}, nil
}

func (a *ComflyAdapter) Poll(ctx context.Context, providerTaskID, tier string) (*models.ProviderStatus, error) {
	if providerTaskID == "" {
		return nil, models.NewValidationError("source_task_id", "source task id is required")
	}
	resolvedTier, key, err := a.creds.Resolve(ProviderComfly, tier)
	if err != nil {
		return nil, err
	}

	url := a.baseURL + "/sora/video/" + providerTaskID
	if resolvedTier != TierDefault {
		url = a.baseURL + "/v1/videos/" + providerTaskID
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &models.UpstreamError{Provider: ProviderComfly, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+key)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, &models.UpstreamError{Provider: ProviderComfly, Err: err}
	}
	defer resp.Body.Close()
	body := readBody(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamHTTPError(ProviderComfly, resp, body)
	}

	if resolvedTier == TierDefault {
		var out struct {
			Status   string `json:"status"`
			VideoURL string `json:"video_url"`
			Error    string `json:"error"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, &models.UpstreamError{Provider: ProviderComfly, Details: string(body), Err: err}
		}
		return toProviderStatus(out.Status, out.VideoURL, out.Error), nil
	}

	var out struct {
		Status string `json:"status"`
		Output struct {
			VideoURL string `json:"video_url"`
		} `json:"output"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &models.UpstreamError{Provider: ProviderComfly, Details: string(body), Err: err}
	}
	return toProviderStatus(out.Status, out.Output.VideoURL, out.Error.Message), nil
}

// initialState 提交响应里的状态，空/不认识按已入队处理。
func initialState(raw string) string {
	if s := normalizeState(raw); s != "" && s != models.StateCompleted {
		return s
	}
	return models.StateQueued
}

// toProviderStatus 查询响应 → 归一化状态。
// 上游报成功但还没给出视频地址时按进行中处理，等下一次轮询。
func toProviderStatus(raw, videoURL, reason string) *models.ProviderStatus {
	switch normalizeState(raw) {
	case models.StateQueued:
		return &models.ProviderStatus{State: models.StateQueued}
	case models.StateCompleted:
		if videoURL == "" {
			return &models.ProviderStatus{State: models.StateInProgress}
		}
		return &models.ProviderStatus{State: models.StateCompleted, VideoURL: videoURL}
	case models.StateFailed:
		if reason == "" {
			reason = fmt.Sprintf("upstream reported status %q", raw)
		}
		return &models.ProviderStatus{State: models.StateFailed, Reason: reason}
	}
	return &models.ProviderStatus{State: models.StateInProgress}
}
