package sse

import (
	"encoding/json"
	"sync"
)

// Hub 管理项目房间的 SSE 订阅者。
//
// 说明：
//   - 房间以 project id 为键，成员是各连接自带的 channel（chan []byte），
//     channel 的所有者（SSE handler）负责关闭，Hub 只负责往里发消息。
//   - join/leave/publish 三个控制通道在单个 Run goroutine 中串行处理，
//     成员增删和人数重算在同一个分支里原子完成，不需要延迟补偿。
type Hub struct {
	// rooms 保存 room -> 成员 channel 集合
	rooms map[string]map[chan []byte]bool

	join    chan membership
	leave   chan membership
	publish chan roomMessage

	mu sync.Mutex
}

type membership struct {
	ch   chan []byte
	room string
}

type roomMessage struct {
	room string
	msg  []byte
}

// NewHub 创建房间 Hub。publish 通道带缓冲（100），缓冲短时突发的发布操作。
func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[string]map[chan []byte]bool),
		join:    make(chan membership),
		leave:   make(chan membership),
		publish: make(chan roomMessage, 100),
	}
}

// Run 启动事件循环，应在单独的 goroutine 中运行：
//
//	hub := sse.NewHub()
//	go hub.Run()
//
// 成员进出后立刻向房间广播最新在线人数（人数 = 成员集合大小）。
func (h *Hub) Run() {
	for {
		select {
		case m := <-h.join:
			h.mu.Lock()
			members, ok := h.rooms[m.room]
			if !ok {
				members = make(map[chan []byte]bool)
				h.rooms[m.room] = members
			}
			members[m.ch] = true
			h.broadcastLocked(m.room, presenceEvent(m.room, len(members)))
			h.mu.Unlock()
		case m := <-h.leave:
			h.mu.Lock()
			if members, ok := h.rooms[m.room]; ok {
				delete(members, m.ch)
				if len(members) == 0 {
					delete(h.rooms, m.room)
				} else {
					h.broadcastLocked(m.room, presenceEvent(m.room, len(members)))
				}
			}
			h.mu.Unlock()
		case rm := <-h.publish:
			h.mu.Lock()
			h.broadcastLocked(rm.room, rm.msg)
			h.mu.Unlock()
		}
	}
}

// broadcastLocked 调用方须持有 h.mu。客户端不读就丢，不阻塞循环。
func (h *Hub) broadcastLocked(room string, msg []byte) {
	for ch := range h.rooms[room] {
		select {
		case ch <- msg:
		default:
			// drop if client not reading
		}
	}
}

// presenceEvent 在线人数事件。
func presenceEvent(room string, count int) []byte {
	b, _ := json.Marshal(map[string]interface{}{
		"type":       "presence",
		"project_id": room,
		"count":      count,
	})
	return b
}

// PublishRoom 向房间的所有成员广播一条消息。
func (h *Hub) PublishRoom(room string, msg []byte) {
	h.publish <- roomMessage{room: room, msg: msg}
}

// Join 把连接加入房间。调用方应提供带缓冲的 channel（例如缓冲 16），
// 断开时负责 Leave 并关闭通道，Hub 不关闭成员的通道。
func (h *Hub) Join(ch chan []byte, room string) {
	h.join <- membership{ch: ch, room: room}
}

// Leave 把连接移出房间。
func (h *Hub) Leave(ch chan []byte, room string) {
	h.leave <- membership{ch: ch, room: room}
}

// Presence 返回房间当前在线人数。
func (h *Hub) Presence(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}
