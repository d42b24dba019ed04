package controller

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/dingzu/dramagic/models"
)

func statusFor(err error) int {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	ResponseFromError(c, err)
	return w.Code
}

func TestResponseFromErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", models.NewValidationError("prompt", "required"), http.StatusBadRequest},
		{"task not found", models.ErrTaskNotFound, http.StatusNotFound},
		{"project not found", models.ErrProjectNotFound, http.StatusNotFound},
		{"price not found", models.ErrPriceNotFound, http.StatusNotFound},
		{"configuration", &models.ConfigurationError{Credential: "COMFLY_API_KEY"}, http.StatusInternalServerError},
		{"upstream", &models.UpstreamError{Provider: "comfly", StatusCode: 402}, http.StatusBadGateway},
		{"storage", &models.StorageError{Op: "put", Err: fmt.Errorf("boom")}, http.StatusServiceUnavailable},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, statusFor(tc.err))
		})
	}
}

func TestResponseFromErrorWrapped(t *testing.T) {
	// 包装过的错误也要按内层类型分类
	err := fmt.Errorf("submit: %w", models.NewValidationError("duration", "negative"))
	assert.Equal(t, http.StatusBadRequest, statusFor(err))

	err = fmt.Errorf("get: %w", models.ErrTaskNotFound)
	assert.Equal(t, http.StatusNotFound, statusFor(err))
}

func TestAdminAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AdminAuth("secret"))
	r.GET("/ping", func(c *gin.Context) { c.String(200, "pong") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Admin-Token", "secret")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminAuthDisabledWithoutToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AdminAuth(""))
	r.GET("/ping", func(c *gin.Context) { c.String(200, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
