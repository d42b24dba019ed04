package sse

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvEvent(t *testing.T, ch chan []byte) map[string]interface{} {
	t.Helper()
	select {
	case msg := <-ch:
		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(msg, &out))
		return out
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestHubJoinBroadcastsPresence(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	ch := make(chan []byte, 16)
	hub.Join(ch, "12")

	ev := recvEvent(t, ch)
	assert.Equal(t, "presence", ev["type"])
	assert.Equal(t, "12", ev["project_id"])
	assert.Equal(t, float64(1), ev["count"])
	assert.Equal(t, 1, hub.Presence("12"))
}

func TestHubPublishRoomIsScoped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	a := make(chan []byte, 16)
	b := make(chan []byte, 16)
	hub.Join(a, "1")
	hub.Join(b, "2")
	recvEvent(t, a) // presence
	recvEvent(t, b) // presence

	hub.PublishRoom("1", []byte(`{"type":"task","task_id":7}`))

	ev := recvEvent(t, a)
	assert.Equal(t, "task", ev["type"])

	select {
	case msg := <-b:
		t.Fatalf("room 2 must not receive room 1 events, got %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubLeaveUpdatesPresence(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	a := make(chan []byte, 16)
	b := make(chan []byte, 16)
	hub.Join(a, "9")
	recvEvent(t, a)
	hub.Join(b, "9")
	recvEvent(t, a)
	recvEvent(t, b)

	hub.Leave(b, "9")
	ev := recvEvent(t, a)
	assert.Equal(t, "presence", ev["type"])
	assert.Equal(t, float64(1), ev["count"])

	hub.Leave(a, "9")
	require.Eventually(t, func() bool { return hub.Presence("9") == 0 },
		time.Second, 10*time.Millisecond)
}

func TestHubDropsWhenClientNotReading(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// 无缓冲且无人读的成员不能卡住整个循环
	stuck := make(chan []byte)
	ok := make(chan []byte, 16)
	hub.Join(stuck, "5")
	hub.Join(ok, "5")
	recvEvent(t, ok)

	hub.PublishRoom("5", []byte(`{"type":"task"}`))
	ev := recvEvent(t, ok)
	assert.Equal(t, "task", ev["type"])
}
