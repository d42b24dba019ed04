package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dingzu/dramagic/models"
)

// ResCode 业务错误码
type ResCode int64

const (
	CodeSuccess ResCode = 1000 + iota
	CodeInvalidParams
	CodeNotFound
	CodeConfigError
	CodeUpstreamError
	CodeStorageError
	CodeServerBusy
	CodeInvalidToken
)

var codeMsgMap = map[ResCode]string{
	CodeSuccess:       "success",
	CodeInvalidParams: "请求参数错误",
	CodeNotFound:      "资源不存在",
	CodeConfigError:   "服务端配置缺失",
	CodeUpstreamError: "上游服务错误",
	CodeStorageError:  "存储服务暂不可用",
	CodeServerBusy:    "服务繁忙",
	CodeInvalidToken:  "无效的Token",
}

func (c ResCode) Msg() string {
	msg, ok := codeMsgMap[c]
	if !ok {
		return codeMsgMap[CodeServerBusy]
	}
	return msg
}

// ResponseSuccess 统一成功响应体 {code, msg, data}
func ResponseSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code": CodeSuccess,
		"msg":  CodeSuccess.Msg(),
		"data": data,
	})
}

func ResponseError(c *gin.Context, httpStatus int, code ResCode) {
	c.JSON(httpStatus, gin.H{
		"code": code,
		"msg":  code.Msg(),
		"data": nil,
	})
}

func ResponseErrorWithMsg(c *gin.Context, httpStatus int, code ResCode, msg interface{}) {
	c.JSON(httpStatus, gin.H{
		"code": code,
		"msg":  msg,
		"data": nil,
	})
}

// ResponseFromError 把错误分类映射到 HTTP 状态码和业务码：
// 参数错400、不存在404、部署配置500、上游502、存储503。
// 调用方据此区分"输入有问题"、"修部署"、"稍后重试"。
func ResponseFromError(c *gin.Context, err error) {
	var (
		ve *models.ValidationError
		ce *models.ConfigurationError
		ue *models.UpstreamError
		se *models.StorageError
	)
	switch {
	case errors.As(err, &ve):
		ResponseErrorWithMsg(c, http.StatusBadRequest, CodeInvalidParams, ve.Error())
	case errors.Is(err, models.ErrTaskNotFound),
		errors.Is(err, models.ErrProjectNotFound),
		errors.Is(err, models.ErrPriceNotFound):
		ResponseErrorWithMsg(c, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.As(err, &ce):
		ResponseErrorWithMsg(c, http.StatusInternalServerError, CodeConfigError, ce.Error())
	case errors.As(err, &ue):
		ResponseErrorWithMsg(c, http.StatusBadGateway, CodeUpstreamError, ue.Error())
	case errors.As(err, &se):
		ResponseErrorWithMsg(c, http.StatusServiceUnavailable, CodeStorageError, se.Error())
	default:
		zap.L().Error("unclassified error", zap.Error(err))
		ResponseError(c, http.StatusInternalServerError, CodeServerBusy)
	}
}
