package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dingzu/dramagic/dao/mysql"
	"github.com/dingzu/dramagic/pkg/sse"
)

// ProjectController 画布项目接口。画布更新会广播给项目房间的在线连接。
type ProjectController struct {
	store *mysql.ProjectStore
	hub   *sse.Hub
}

func NewProjectController(store *mysql.ProjectStore, hub *sse.Hub) *ProjectController {
	return &ProjectController{store: store, hub: hub}
}

// CreateProjectRequest POST /api/v1/projects 的请求体
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	CanvasState string `json:"canvas_state"`
}

// CreateProject 新建项目
func (pc *ProjectController) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ResponseErrorWithMsg(c, http.StatusBadRequest, CodeInvalidParams, err.Error())
		return
	}
	if req.CanvasState == "" {
		req.CanvasState = "{}"
	}
	if !json.Valid([]byte(req.CanvasState)) {
		ResponseErrorWithMsg(c, http.StatusBadRequest, CodeInvalidParams, "canvas_state must be valid JSON")
		return
	}
	p, err := pc.store.Insert(c.Request.Context(), req.Name, req.CanvasState)
	if err != nil {
		ResponseFromError(c, err)
		return
	}
	ResponseSuccess(c, p)
}

// GetProject 读单个项目
func (pc *ProjectController) GetProject(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ResponseErrorWithMsg(c, http.StatusBadRequest, CodeInvalidParams, "invalid project id")
		return
	}
	p, err := pc.store.Get(c.Request.Context(), id)
	if err != nil {
		ResponseFromError(c, err)
		return
	}
	ResponseSuccess(c, p)
}

// UpdateCanvasRequest PUT /api/v1/projects/:id/canvas 的请求体
type UpdateCanvasRequest struct {
	CanvasState string `json:"canvas_state" binding:"required"`
}

// UpdateCanvas 覆盖画布状态并广播 canvas 事件
func (pc *ProjectController) UpdateCanvas(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ResponseErrorWithMsg(c, http.StatusBadRequest, CodeInvalidParams, "invalid project id")
		return
	}
	var req UpdateCanvasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ResponseErrorWithMsg(c, http.StatusBadRequest, CodeInvalidParams, err.Error())
		return
	}
	if !json.Valid([]byte(req.CanvasState)) {
		ResponseErrorWithMsg(c, http.StatusBadRequest, CodeInvalidParams, "canvas_state must be valid JSON")
		return
	}
	p, err := pc.store.UpdateCanvas(c.Request.Context(), id, req.CanvasState)
	if err != nil {
		ResponseFromError(c, err)
		return
	}
	if pc.hub != nil {
		if payload, merr := json.Marshal(gin.H{
			"type":       "canvas",
			"project_id": p.ID,
			"updated_at": p.UpdatedAt,
		}); merr == nil {
			pc.hub.PublishRoom(strconv.FormatInt(p.ID, 10), payload)
		}
	}
	ResponseSuccess(c, p)
}

// ListProjects 按更新时间倒序列出项目
func (pc *ProjectController) ListProjects(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	projects, err := pc.store.List(c.Request.Context(), limit)
	if err != nil {
		ResponseFromError(c, err)
		return
	}
	ResponseSuccess(c, gin.H{"projects": projects})
}
