package logic

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dingzu/dramagic/dao/store"
	"github.com/dingzu/dramagic/models"
	"github.com/dingzu/dramagic/pkg/oss"
	"github.com/dingzu/dramagic/pkg/pricing"
	"github.com/dingzu/dramagic/pkg/provider"
)

// 转存后的视频统一放这个目录前缀下
const videoFolder = "videos"

// TaskStore 任务持久化最小接口，生产实现是 dao/mysql.TaskStore。
type TaskStore interface {
	Insert(ctx context.Context, t *models.VideoTask) (*models.VideoTask, error)
	Get(ctx context.Context, id int64) (*models.VideoTask, error)
	Update(ctx context.Context, id int64, patch models.TaskPatch, from ...string) (*models.VideoTask, bool, error)
	List(ctx context.Context, userID string, projectID *int64, limit, offset int) ([]models.VideoTask, int64, error)
}

// Rehoster 转存最小接口，生产实现是 pkg/oss.Rehoster。
type Rehoster interface {
	Rehost(ctx context.Context, sourceURL, folder string) (*oss.RehostResult, error)
}

// Notifier 房间事件推送最小接口，生产实现是 pkg/sse.Hub。
type Notifier interface {
	PublishRoom(room string, msg []byte)
}

// VideoService 视频生成任务的生命周期管理：提交、轮询、转存、计费。
// 所有依赖启动时显式注入；rehoster/cache/hub 允许为 nil（对应能力降级）。
type VideoService struct {
	tasks    TaskStore
	registry *provider.Registry
	creds    *provider.Credentials
	rehoster Rehoster
	cache    *store.StatusCache
	hub      Notifier
	logger   *zap.Logger
}

func NewVideoService(
	tasks TaskStore,
	registry *provider.Registry,
	creds *provider.Credentials,
	rehoster Rehoster,
	cache *store.StatusCache,
	hub Notifier,
	logger *zap.Logger,
) *VideoService {
	return &VideoService{
		tasks:    tasks,
		registry: registry,
		creds:    creds,
		rehoster: rehoster,
		cache:    cache,
		hub:      hub,
		logger:   logger.Named("video"),
	}
}

// SubmitTaskInput 提交参数。Tier 不认识的档位名会落到 provider 默认档。
type SubmitTaskInput struct {
	Prompt      string
	Provider    string
	Tier        string
	Model       string
	Duration    int
	Size        string
	AspectRatio string
	HD          bool
	Watermark   bool
	ProjectID   *int64
}

// Submit 提交生成任务：先落 pending 占位行，提交成功后置 queued 并记下
// 上游任务 ID。参数与凭证问题在写库之前就报出，不产生半截记录。
func (s *VideoService) Submit(ctx context.Context, in SubmitTaskInput) (*models.VideoTask, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, models.NewValidationError("prompt", "prompt is required")
	}
	if in.Duration < 0 {
		return nil, models.NewValidationError("duration", "must not be negative")
	}
	adapter, err := s.registry.Get(in.Provider)
	if err != nil {
		return nil, err
	}
	// 先定档位：档位在提交时固化到记录上，后续轮询一律用它
	tier, _, err := s.creds.Resolve(in.Provider, in.Tier)
	if err != nil {
		return nil, err
	}
	duration := in.Duration
	if duration == 0 {
		duration = 4
	}

	t, err := s.tasks.Insert(ctx, &models.VideoTask{
		UserID:    models.DefaultUserID,
		ProjectID: in.ProjectID,
		Prompt:    in.Prompt,
		Duration:  duration,
		Model:     in.Model,
		Source:    provider.SourceKey(in.Provider, tier),
		Status:    models.StatusPending,
	})
	if err != nil {
		return nil, err
	}

	result, err := adapter.Submit(ctx, provider.SubmitRequest{
		Prompt:      in.Prompt,
		Model:       in.Model,
		Tier:        tier,
		Duration:    duration,
		Size:        in.Size,
		AspectRatio: in.AspectRatio,
		HD:          in.HD,
		Watermark:   in.Watermark,
	})
	if err != nil {
		s.logger.Error("submit to provider failed",
			zap.Int64("task_id", t.ID), zap.String("source", t.Source), zap.Error(err))
		msg := err.Error()
		failed := models.StatusFailed
		if _, _, uerr := s.tasks.Update(ctx, t.ID, models.TaskPatch{Status: &failed, Error: &msg}); uerr != nil {
			s.logger.Error("failed to mark task failed", zap.Int64("task_id", t.ID), zap.Error(uerr))
		}
		return nil, err
	}

	status := statusForState(result.InitialStatus)
	t, _, err = s.tasks.Update(ctx, t.ID, models.TaskPatch{
		Status:       &status,
		SourceTaskID: &result.ProviderTaskID,
	}, models.StatusPending)
	if err != nil {
		return nil, err
	}
	s.logger.Info("task submitted",
		zap.Int64("task_id", t.ID),
		zap.String("source", t.Source),
		zap.String("source_task_id", result.ProviderTaskID),
	)
	return t, nil
}

// Poll 按需轮询一个持久化任务。终态行原样返回；上游报完成则转存并计费。
func (s *VideoService) Poll(ctx context.Context, taskID int64) (*models.VideoTask, error) {
	t, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Terminal() {
		return t, nil
	}
	if t.SourceTaskID == nil {
		// 还没提交成功的占位行，没有可轮询的上游任务
		return t, nil
	}

	providerKey, tier := provider.ParseSource(t.Source)
	adapter, err := s.registry.Get(providerKey)
	if err != nil {
		return nil, err
	}

	st, err := adapter.Poll(ctx, *t.SourceTaskID, tier)
	if err != nil {
		s.logger.Error("poll provider failed",
			zap.Int64("task_id", t.ID), zap.String("source", t.Source), zap.Error(err))
		msg := err.Error()
		failed := models.StatusFailed
		if ft, _, uerr := s.tasks.Update(ctx, t.ID, models.TaskPatch{Status: &failed, Error: &msg}); uerr == nil {
			s.notifyTask(ft)
		}
		return nil, err
	}

	switch st.State {
	case models.StateCompleted:
		return s.complete(ctx, t, st.VideoURL)
	case models.StateFailed:
		failed := models.StatusFailed
		reason := st.Reason
		ft, changed, err := s.tasks.Update(ctx, t.ID, models.TaskPatch{Status: &failed, Error: &reason})
		if err != nil {
			return nil, err
		}
		if changed {
			s.notifyTask(ft)
		}
		return ft, nil
	case models.StateQueued, models.StateInProgress:
		status := statusForState(st.State)
		if t.Status == models.StatusInProgress && status == models.StatusQueued {
			// 不从 in_progress 退回 queued
			return t, nil
		}
		if t.Status == status {
			return t, nil
		}
		nt, _, err := s.tasks.Update(ctx, t.ID, models.TaskPatch{Status: &status},
			models.StatusPending, models.StatusQueued, models.StatusInProgress)
		if err != nil {
			return nil, err
		}
		return nt, nil
	}
	return t, nil
}

// complete in_progress → completed 的收尾：尽力转存、补计费、落终态。
// 转存失败不影响任务完成，错误记在 error 字段里可见。
// 终态写入走比较并更新，并发轮询只有一个写者能赢，防止重复落地。
func (s *VideoService) complete(ctx context.Context, t *models.VideoTask, videoURL string) (*models.VideoTask, error) {
	completed := models.StatusCompleted
	patch := models.TaskPatch{
		Status:         &completed,
		SourceVideoURL: &videoURL,
	}

	if videoURL != "" {
		if s.rehoster == nil {
			// 没配对象存储也要把没转存这件事记在行上，前端可见
			msg := "rehost skipped: object storage not configured"
			patch.Error = &msg
		} else if res, err := s.rehoster.Rehost(ctx, videoURL, videoFolder); err != nil {
			// 转存失败降级为警告：任务照常完成，只留 source_video_url
			s.logger.Warn("rehost failed, keeping source url",
				zap.Int64("task_id", t.ID), zap.Error(err))
			msg := err.Error()
			patch.Error = &msg
		} else {
			patch.OSSURL = &res.URL
			patch.OSSPath = &res.Path
		}
	}

	if t.CostUSD == nil {
		providerKey, tier := provider.ParseSource(t.Source)
		if cost, err := pricing.Calculate(providerKey, pricingModel(providerKey, tier, t.Model), t.Duration); err == nil {
			usd, _ := cost.PriceUSD.Float64()
			cny, _ := cost.PriceCNY.Float64()
			patch.CostUSD = &usd
			patch.CostCNY = &cny
		} else {
			s.logger.Warn("no price entry for task",
				zap.Int64("task_id", t.ID), zap.String("source", t.Source))
		}
	}

	nt, changed, err := s.tasks.Update(ctx, t.ID, patch,
		models.StatusPending, models.StatusQueued, models.StatusInProgress)
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.Info("task completed",
			zap.Int64("task_id", nt.ID),
			zap.Bool("rehosted", nt.OSSURL != nil),
		)
		s.notifyTask(nt)
	}
	return nt, nil
}

// SourceStatus 直接查上游的任务状态（不落库，保证新鲜度），带短 TTL 缓存。
func (s *VideoService) SourceStatus(ctx context.Context, providerKey, tier, providerTaskID string) (*models.ProviderStatus, error) {
	if providerTaskID == "" {
		return nil, models.NewValidationError("source_task_id", "source task id is required")
	}
	adapter, err := s.registry.Get(providerKey)
	if err != nil {
		return nil, err
	}
	resolvedTier, _, err := s.creds.Resolve(providerKey, tier)
	if err != nil {
		return nil, err
	}

	source := provider.SourceKey(providerKey, resolvedTier)
	if st := s.cache.Get(ctx, source, providerTaskID); st != nil {
		return st, nil
	}
	st, err := adapter.Poll(ctx, providerTaskID, resolvedTier)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, source, providerTaskID, st)
	return st, nil
}

// SaveVideoInput 已经拿到成品视频 URL 时的合并流程入参。
type SaveVideoInput struct {
	Prompt         string
	Provider       string
	Tier           string
	Model          string
	SourceVideoURL string
	SourceTaskID   *string
	Duration       int
	ProjectID      *int64
}

// SaveVideoResult Task 为落库结果；Rehosted 表示是否成功搬进了自己的存储，
// 没搬成时 RehostError 里有原因，任务本身照样是 completed。
type SaveVideoResult struct {
	Task        *models.VideoTask `json:"task"`
	Rehosted    bool              `json:"rehosted"`
	RehostError string            `json:"rehost_error,omitempty"`
}

// SaveVideo 合并流程：持久化 + 尽力转存，一次调用完成。
// 记录直接以 in_progress 建立，转存尝试后进入 completed。
func (s *VideoService) SaveVideo(ctx context.Context, in SaveVideoInput) (*SaveVideoResult, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, models.NewValidationError("prompt", "prompt is required")
	}
	if strings.TrimSpace(in.SourceVideoURL) == "" {
		return nil, models.NewValidationError("source_video_url", "source video url is required")
	}
	if _, err := s.registry.Get(in.Provider); err != nil {
		return nil, err
	}
	tier, _, err := s.creds.Resolve(in.Provider, in.Tier)
	if err != nil {
		return nil, err
	}
	duration := in.Duration
	if duration <= 0 {
		duration = 4
	}

	t, err := s.tasks.Insert(ctx, &models.VideoTask{
		UserID:         models.DefaultUserID,
		ProjectID:      in.ProjectID,
		Prompt:         in.Prompt,
		Duration:       duration,
		Model:          in.Model,
		Source:         provider.SourceKey(in.Provider, tier),
		SourceTaskID:   in.SourceTaskID,
		SourceVideoURL: &in.SourceVideoURL,
		Status:         models.StatusInProgress,
	})
	if err != nil {
		return nil, err
	}

	nt, err := s.complete(ctx, t, in.SourceVideoURL)
	if err != nil {
		return nil, err
	}

	res := &SaveVideoResult{Task: nt, Rehosted: nt.OSSURL != nil}
	if !res.Rehosted && nt.Error != nil {
		res.RehostError = *nt.Error
	}
	return res, nil
}

// CreateTaskInput create-task-record 的字段集（事后补录等场景）。
type CreateTaskInput struct {
	Prompt         string
	Provider       string
	Tier           string
	Model          string
	Duration       int
	Status         string
	SourceTaskID   *string
	SourceVideoURL *string
	ProjectID      *int64
}

// CreateRecord 直接建一条任务记录，不触发任何上游调用。
func (s *VideoService) CreateRecord(ctx context.Context, in CreateTaskInput) (*models.VideoTask, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, models.NewValidationError("prompt", "prompt is required")
	}
	if _, err := s.registry.Get(in.Provider); err != nil {
		return nil, err
	}
	tier, _, err := s.creds.Resolve(in.Provider, in.Tier)
	if err != nil {
		return nil, err
	}
	status := in.Status
	switch status {
	case "":
		status = models.StatusPending
	case models.StatusPending, models.StatusQueued, models.StatusInProgress,
		models.StatusCompleted, models.StatusFailed:
	default:
		return nil, models.NewValidationError("status", "unknown status "+status)
	}
	duration := in.Duration
	if duration <= 0 {
		duration = 4
	}

	t := &models.VideoTask{
		UserID:         models.DefaultUserID,
		ProjectID:      in.ProjectID,
		Prompt:         in.Prompt,
		Duration:       duration,
		Model:          in.Model,
		Source:         provider.SourceKey(in.Provider, tier),
		SourceTaskID:   in.SourceTaskID,
		SourceVideoURL: in.SourceVideoURL,
		Status:         status,
	}
	return s.tasks.Insert(ctx, t)
}

// UpdateRecord 更新任务记录。终态行不会被改动，幂等返回原行。
func (s *VideoService) UpdateRecord(ctx context.Context, id int64, patch models.TaskPatch) (*models.VideoTask, error) {
	t, _, err := s.tasks.Update(ctx, id, patch)
	return t, err
}

// GetTask 读单个任务。
func (s *VideoService) GetTask(ctx context.Context, id int64) (*models.VideoTask, error) {
	return s.tasks.Get(ctx, id)
}

// ListTasks 按创建时间倒序分页。
func (s *VideoService) ListTasks(ctx context.Context, projectID *int64, limit, offset int) ([]models.VideoTask, int64, error) {
	return s.tasks.List(ctx, models.DefaultUserID, projectID, limit, offset)
}

// notifyTask 任务到达终态后推给项目房间。
func (s *VideoService) notifyTask(t *models.VideoTask) {
	if s.hub == nil || t == nil || t.ProjectID == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"type":    "task",
		"task_id": t.ID,
		"status":  t.Status,
		"task":    t,
	})
	if err != nil {
		return
	}
	s.hub.PublishRoom(strconv.FormatInt(*t.ProjectID, 10), payload)
}

// statusForState 归一化上游状态 → 任务行状态。
func statusForState(state string) string {
	switch state {
	case models.StateInProgress:
		return models.StatusInProgress
	case models.StateCompleted:
		return models.StatusCompleted
	case models.StateFailed:
		return models.StatusFailed
	}
	return models.StatusQueued
}

// pricingModel 计费用的 model key：comfly 各档位本身就是价目表里的 model；
// toapis 按提交时记下的模型计费（sora-2-pro 和 sora 价差 24 倍），没记的
// 按默认 sora；ark 的模型名带版本后缀，价目表用去掉后缀的条目。
func pricingModel(providerKey, tier, model string) string {
	switch providerKey {
	case provider.ProviderComfly:
		return tier
	case provider.ProviderToapis:
		if model != "" {
			return model
		}
		return "sora"
	case provider.ProviderArk:
		return "doubao-seedance-1-0-pro"
	}
	return tier
}
