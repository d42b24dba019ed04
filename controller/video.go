package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dingzu/dramagic/logic"
	"github.com/dingzu/dramagic/models"
)

// VideoController 视频任务相关接口
type VideoController struct {
	svc *logic.VideoService
}

func NewVideoController(svc *logic.VideoService) *VideoController {
	return &VideoController{svc: svc}
}

// SubmitVideoTaskRequest POST /api/v1/video/submit 的请求体
type SubmitVideoTaskRequest struct {
	Prompt      string `json:"prompt" binding:"required"`
	Provider    string `json:"provider"`
	Tier        string `json:"tier"`
	Model       string `json:"model"`
	Duration    int    `json:"duration"`
	Size        string `json:"size"`
	AspectRatio string `json:"aspect_ratio"`
	HD          bool   `json:"hd"`
	Watermark   bool   `json:"watermark"`
	ProjectID   *int64 `json:"project_id"`
}

// SubmitVideoTask 提交一条视频生成任务
func (vc *VideoController) SubmitVideoTask(c *gin.Context) {
	var req SubmitVideoTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ResponseErrorWithMsg(c, http.StatusBadRequest, CodeInvalidParams, err.Error())
		return
	}
	if req.Provider == "" {
		req.Provider = "comfly"
	}
	t, err := vc.svc.Submit(c.Request.Context(), logic.SubmitTaskInput{
		Prompt:      req.Prompt,
		Provider:    req.Provider,
		Tier:        req.Tier,
		Model:       req.Model,
		Duration:    req.Duration,
		Size:        req.Size,
		AspectRatio: req.AspectRatio,
		HD:          req.HD,
		Watermark:   req.Watermark,
		ProjectID:   req.ProjectID,
	})
	if err != nil {
		ResponseFromError(c, err)
		return
	}
	ResponseSuccess(c, t)
}

// GetSourceStatus 直查上游的任务状态（不落库）。
// GET /api/v1/video/status/:source_task_id?provider=comfly&tier=premium
func (vc *VideoController) GetSourceStatus(c *gin.Context) {
	providerKey := c.DefaultQuery("provider", "comfly")
	tier := c.Query("tier")
	st, err := vc.svc.SourceStatus(c.Request.Context(), providerKey, tier, c.Param("source_task_id"))
	if err != nil {
		ResponseFromError(c, err)
		return
	}
	ResponseSuccess(c, st)
}

// PollVideoTask 轮询一条持久化任务并推进其状态
func (vc *VideoController) PollVideoTask(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ResponseErrorWithMsg(c, http.StatusBadRequest, CodeInvalidParams, "invalid task id")
		return
	}
	t, err := vc.svc.Poll(c.Request.Context(), id)
	if err != nil {
		ResponseFromError(c, err)
		return
	}
	ResponseSuccess(c, t)
}

// GetVideoTask 读单条任务记录
func (vc *VideoController) GetVideoTask(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ResponseErrorWithMsg(c, http.StatusBadRequest, CodeInvalidParams, "invalid task id")
		return
	}
	t, err := vc.svc.GetTask(c.Request.Context(), id)
	if err != nil {
		ResponseFromError(c, err)
		return
	}
	ResponseSuccess(c, t)
}

// ListVideoTasks 按创建时间倒序分页，支持 project_id 过滤
func (vc *VideoController) ListVideoTasks(c *gin.Context) {
	var projectID *int64
	if raw := c.Query("project_id"); raw != "" {
		pid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			ResponseErrorWithMsg(c, http.StatusBadRequest, CodeInvalidParams, "invalid project_id")
			return
		}
		projectID = &pid
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	tasks, total, err := vc.svc.ListTasks(c.Request.Context(), projectID, limit, offset)
	if err != nil {
		ResponseFromError(c, err)
		return
	}
	ResponseSuccess(c, gin.H{
		"tasks":  tasks,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// CreateVideoTaskRequest POST /api/v1/video/tasks 的请求体（补录记录，不触发上游）
type CreateVideoTaskRequest struct {
	Prompt         string  `json:"prompt" binding:"required"`
	Provider       string  `json:"provider"`
	Tier           string  `json:"tier"`
	Model          string  `json:"model"`
	Duration       int     `json:"duration"`
	Status         string  `json:"status" binding:"omitempty,taskstatus"`
	SourceTaskID   *string `json:"source_task_id"`
	SourceVideoURL *string `json:"source_video_url"`
	ProjectID      *int64  `json:"project_id"`
}

// CreateVideoTask 直接创建一条任务记录
func (vc *VideoController) CreateVideoTask(c *gin.Context) {
	var req CreateVideoTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ResponseErrorWithMsg(c, http.StatusBadRequest, CodeInvalidParams, err.Error())
		return
	}
	if req.Provider == "" {
		req.Provider = "comfly"
	}
	t, err := vc.svc.CreateRecord(c.Request.Context(), logic.CreateTaskInput{
		Prompt:         req.Prompt,
		Provider:       req.Provider,
		Tier:           req.Tier,
		Model:          req.Model,
		Duration:       req.Duration,
		Status:         req.Status,
		SourceTaskID:   req.SourceTaskID,
		SourceVideoURL: req.SourceVideoURL,
		ProjectID:      req.ProjectID,
	})
	if err != nil {
		ResponseFromError(c, err)
		return
	}
	ResponseSuccess(c, t)
}

// UpdateVideoTaskRequest PUT /api/v1/video/tasks/:id 的请求体，全部可选
type UpdateVideoTaskRequest struct {
	Status         *string  `json:"status" binding:"omitempty,taskstatus"`
	SourceTaskID   *string  `json:"source_task_id"`
	SourceVideoURL *string  `json:"source_video_url"`
	OSSURL         *string  `json:"oss_url"`
	OSSPath        *string  `json:"oss_path"`
	Error          *string  `json:"error"`
	CostUSD        *float64 `json:"cost_usd"`
	CostCNY        *float64 `json:"cost_cny"`
}

// UpdateVideoTask 部分更新任务记录。终态行不会被改动，幂等返回原行。
func (vc *VideoController) UpdateVideoTask(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ResponseErrorWithMsg(c, http.StatusBadRequest, CodeInvalidParams, "invalid task id")
		return
	}
	var req UpdateVideoTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ResponseErrorWithMsg(c, http.StatusBadRequest, CodeInvalidParams, err.Error())
		return
	}
	t, err := vc.svc.UpdateRecord(c.Request.Context(), id, models.TaskPatch{
		Status:         req.Status,
		SourceTaskID:   req.SourceTaskID,
		SourceVideoURL: req.SourceVideoURL,
		OSSURL:         req.OSSURL,
		OSSPath:        req.OSSPath,
		Error:          req.Error,
		CostUSD:        req.CostUSD,
		CostCNY:        req.CostCNY,
	})
	if err != nil {
		ResponseFromError(c, err)
		return
	}
	ResponseSuccess(c, t)
}

// SaveVideoRequest POST /api/v1/video/save 的请求体
type SaveVideoRequest struct {
	Prompt         string  `json:"prompt" binding:"required"`
	Provider       string  `json:"provider"`
	Tier           string  `json:"tier"`
	Model          string  `json:"model"`
	SourceVideoURL string  `json:"source_video_url" binding:"required"`
	SourceTaskID   *string `json:"source_task_id"`
	Duration       int     `json:"duration"`
	ProjectID      *int64  `json:"project_id"`
}

// SaveVideo 已拿到成品视频 URL 的合并流程：落库 + 尽力转存
func (vc *VideoController) SaveVideo(c *gin.Context) {
	var req SaveVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ResponseErrorWithMsg(c, http.StatusBadRequest, CodeInvalidParams, err.Error())
		return
	}
	if req.Provider == "" {
		req.Provider = "comfly"
	}
	res, err := vc.svc.SaveVideo(c.Request.Context(), logic.SaveVideoInput{
		Prompt:         req.Prompt,
		Provider:       req.Provider,
		Tier:           req.Tier,
		Model:          req.Model,
		SourceVideoURL: req.SourceVideoURL,
		SourceTaskID:   req.SourceTaskID,
		Duration:       req.Duration,
		ProjectID:      req.ProjectID,
	})
	if err != nil {
		ResponseFromError(c, err)
		return
	}
	ResponseSuccess(c, res)
}
