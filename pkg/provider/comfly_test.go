package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dingzu/dramagic/config"
	"github.com/dingzu/dramagic/models"
)

func newComflyForTest(t *testing.T, handler http.Handler) (*ComflyAdapter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Comfly: config.ComflyConfig{
			BaseURL:     srv.URL,
			Key:         "key-default",
			PremiumKey:  "key-premium",
			OriginalKey: "key-original",
		},
	}
	return NewComfly(cfg, NewCredentials(cfg)), srv
}

func TestComflySubmitDefaultTier(t *testing.T) {
	adapter, _ := newComflyForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sora/video", r.URL.Path)
		assert.Equal(t, "Bearer key-default", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "a cat surfing", r.FormValue("prompt"))
		assert.Equal(t, "16:9", r.FormValue("aspect_ratio"))
		assert.Equal(t, "false", r.FormValue("watermark"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"task_id":"sora-abc","status":"pending"}`))
	}))

	res, err := adapter.Submit(context.Background(), SubmitRequest{Prompt: "a cat surfing"})
	require.NoError(t, err)
	assert.Equal(t, "sora-abc", res.ProviderTaskID)
	assert.Equal(t, models.StateQueued, res.InitialStatus)
}

func TestComflySubmitPremiumTierUsesJSONEndpoint(t *testing.T) {
	adapter, _ := newComflyForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/videos", r.URL.Path)
		assert.Equal(t, "Bearer key-premium", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Write([]byte(`{"id":"video_123","status":"queued"}`))
	}))

	res, err := adapter.Submit(context.Background(), SubmitRequest{
		Prompt: "a dog on the moon",
		Tier:   TierPremium,
	})
	require.NoError(t, err)
	assert.Equal(t, "video_123", res.ProviderTaskID)
	assert.Equal(t, models.StateQueued, res.InitialStatus)
}

func TestComflySubmitEmptyPromptNoUpstreamCall(t *testing.T) {
	var calls int32
	adapter, _ := newComflyForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	_, err := adapter.Submit(context.Background(), SubmitRequest{Prompt: "   "})
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "invalid input must not reach upstream")
}

func TestComflySubmitUpstreamError(t *testing.T) {
	adapter, _ := newComflyForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":"insufficient quota"}`))
	}))

	_, err := adapter.Submit(context.Background(), SubmitRequest{Prompt: "x"})
	var ue *models.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusPaymentRequired, ue.StatusCode)
	assert.Contains(t, ue.Details, "insufficient quota")
}

func TestComflyPollDefaultTier(t *testing.T) {
	adapter, _ := newComflyForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sora/video/sora-abc", r.URL.Path)
		w.Write([]byte(`{"status":"SUCCEEDED","video_url":"https://cdn.example.com/v.mp4"}`))
	}))

	st, err := adapter.Poll(context.Background(), "sora-abc", TierDefault)
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, st.State)
	assert.Equal(t, "https://cdn.example.com/v.mp4", st.VideoURL)
}

func TestComflyPollOfficialShape(t *testing.T) {
	adapter, _ := newComflyForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/videos/video_123", r.URL.Path)
		assert.Equal(t, "Bearer key-original", r.Header.Get("Authorization"))
		w.Write([]byte(`{"status":"failed","error":{"message":"content policy violation"}}`))
	}))

	st, err := adapter.Poll(context.Background(), "video_123", TierOriginal)
	require.NoError(t, err)
	assert.Equal(t, models.StateFailed, st.State)
	assert.Equal(t, "content policy violation", st.Reason)
}

func TestComflyPollCompletedWithoutURLIsInProgress(t *testing.T) {
	// 上游报成功但还没给视频地址，按进行中处理等下一轮
	adapter, _ := newComflyForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"completed","video_url":""}`))
	}))

	st, err := adapter.Poll(context.Background(), "sora-abc", TierDefault)
	require.NoError(t, err)
	assert.Equal(t, models.StateInProgress, st.State)
	assert.Empty(t, st.VideoURL)
}

func TestComflyPollUnknownStatusIsInProgress(t *testing.T) {
	adapter, _ := newComflyForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"rendering_weird_phase"}`))
	}))

	st, err := adapter.Poll(context.Background(), "sora-abc", TierDefault)
	require.NoError(t, err)
	assert.Equal(t, models.StateInProgress, st.State)
}

func TestNormalizeState(t *testing.T) {
	cases := map[string]string{
		"queued":      models.StateQueued,
		"PENDING":     models.StateQueued,
		"Processing":  models.StateInProgress,
		"running":     models.StateInProgress,
		"SUCCEEDED":   models.StateCompleted,
		"complete":    models.StateCompleted,
		"failed":      models.StateFailed,
		"Cancelled":   models.StateFailed,
		"expired":     models.StateFailed,
		"who-knows":   "",
		"":            "",
		"  waiting  ": models.StateQueued,
	}
	for raw, want := range cases {
		assert.Equal(t, want, normalizeState(raw), "raw=%q", raw)
	}
}
