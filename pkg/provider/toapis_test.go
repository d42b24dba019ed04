package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dingzu/dramagic/config"
	"github.com/dingzu/dramagic/models"
)

func newToapisForTest(t *testing.T, handler http.Handler) *ToapisAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Toapis: config.ToapisConfig{BaseURL: srv.URL, Key: "key-toapis"},
	}
	return NewToapis(cfg, NewCredentials(cfg))
}

func TestToapisSubmit(t *testing.T) {
	adapter := newToapisForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/video/create", r.URL.Path)
		assert.Equal(t, "Bearer key-toapis", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sora", body["model"])
		assert.Equal(t, "neon city timelapse", body["prompt"])
		assert.Equal(t, float64(8), body["duration"])

		w.Write([]byte(`{"code":0,"message":"ok","data":{"task_id":"tp-42"}}`))
	}))

	res, err := adapter.Submit(context.Background(), SubmitRequest{
		Prompt:   "neon city timelapse",
		Duration: 8,
	})
	require.NoError(t, err)
	assert.Equal(t, "tp-42", res.ProviderTaskID)
	assert.Equal(t, models.StateQueued, res.InitialStatus)
}

func TestToapisSubmitEnvelopeError(t *testing.T) {
	// HTTP 200 但壳里 code 非 0 也是上游失败
	adapter := newToapisForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":1102,"message":"balance exhausted","data":null}`))
	}))

	_, err := adapter.Submit(context.Background(), SubmitRequest{Prompt: "x"})
	var ue *models.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Contains(t, ue.Details, "balance exhausted")
}

func TestToapisPoll(t *testing.T) {
	adapter := newToapisForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/video/query", r.URL.Path)
		assert.Equal(t, "tp-42", r.URL.Query().Get("task_id"))

		w.Write([]byte(`{"code":0,"data":{"status":"success","video_url":"https://t.example.com/out.mp4"}}`))
	}))

	st, err := adapter.Poll(context.Background(), "tp-42", "")
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, st.State)
	assert.Equal(t, "https://t.example.com/out.mp4", st.VideoURL)
}

func TestToapisPollFailedWithReason(t *testing.T) {
	adapter := newToapisForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"data":{"status":"failed","fail_reason":"prompt rejected"}}`))
	}))

	st, err := adapter.Poll(context.Background(), "tp-42", "")
	require.NoError(t, err)
	assert.Equal(t, models.StateFailed, st.State)
	assert.Equal(t, "prompt rejected", st.Reason)
}

func TestToapisPollEmptyTaskID(t *testing.T) {
	adapter := newToapisForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("must not reach upstream")
	}))

	_, err := adapter.Poll(context.Background(), "", "")
	var ve *models.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestToapisMissingKey(t *testing.T) {
	cfg := &config.Config{Toapis: config.ToapisConfig{BaseURL: "http://unused"}}
	adapter := NewToapis(cfg, NewCredentials(cfg))

	_, err := adapter.Submit(context.Background(), SubmitRequest{Prompt: "x"})
	var ce *models.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "TOAPIS_API_KEY", ce.Credential)
}
