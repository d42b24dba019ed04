package controller

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/dingzu/dramagic/models"
)

// 注册 taskstatus 校验标签：任务状态只认五个枚举值，空值放行由业务层补默认。
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("taskstatus", func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case models.StatusPending, models.StatusQueued, models.StatusInProgress,
				models.StatusCompleted, models.StatusFailed:
				return true
			}
			return false
		})
	}
}
