package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dingzu/dramagic/pkg/oss"
)

// OSSController 对象存储状态与文件接口。client 为 nil 表示未配置存储，
// 接口照常工作但返回未配置状态（转存同样降级，任务不受影响）。
type OSSController struct {
	client *oss.Client
}

func NewOSSController(client *oss.Client) *OSSController {
	return &OSSController{client: client}
}

// Status GET /api/v1/oss/status
func (oc *OSSController) Status(c *gin.Context) {
	ResponseSuccess(c, gin.H{"configured": oc.client != nil})
}

// Files GET /api/v1/oss/files?prefix=videos/&limit=50
func (oc *OSSController) Files(c *gin.Context) {
	if oc.client == nil {
		ResponseError(c, http.StatusServiceUnavailable, CodeStorageError)
		return
	}
	prefix := c.DefaultQuery("prefix", "videos/")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	objects, err := oc.client.List(c.Request.Context(), prefix, limit)
	if err != nil {
		ResponseFromError(c, err)
		return
	}
	ResponseSuccess(c, gin.H{"files": objects, "prefix": prefix})
}

// Sign GET /api/v1/oss/sign?path=videos/2026/01/02/x.mp4&ttl=3600
func (oc *OSSController) Sign(c *gin.Context) {
	if oc.client == nil {
		ResponseError(c, http.StatusServiceUnavailable, CodeStorageError)
		return
	}
	path := c.Query("path")
	if path == "" {
		ResponseErrorWithMsg(c, http.StatusBadRequest, CodeInvalidParams, "path is required")
		return
	}
	ttlSec, _ := strconv.Atoi(c.DefaultQuery("ttl", "3600"))
	if ttlSec <= 0 || ttlSec > 7*24*3600 {
		ttlSec = 3600
	}
	url, err := oc.client.Sign(c.Request.Context(), path, time.Duration(ttlSec)*time.Second)
	if err != nil {
		ResponseFromError(c, err)
		return
	}
	ResponseSuccess(c, gin.H{"url": url, "expires_in": ttlSec})
}
