package sse

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ServeSSE 返回处理 SSE（Server-Sent Events）连接的 handler。
// 通过查询参数 `project_id` 指定要订阅的项目房间，例如 `/events?project_id=12`。
// 任务完成/失败与画布更新事件会推到对应房间。
func ServeSSE(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		room := c.Query("project_id")
		if room == "" {
			c.String(http.StatusBadRequest, "missing project_id")
			return
		}

		// 设置 SSE 必要的响应头，确保浏览器或代理以流式方式处理
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			c.String(http.StatusInternalServerError, "streaming unsupported")
			return
		}

		// 每个连接专用的消息通道（缓冲 16）。断开时退出房间并由 GC 回收。
		msgCh := make(chan []byte, 16)
		hub.Join(msgCh, room)
		defer hub.Leave(msgCh, room)

		notify := c.Request.Context().Done()
		// 发送一个注释（: connected）作为初次握手 / 保活 ping
		fmt.Fprintf(c.Writer, ": connected\n\n")
		flusher.Flush()

		for {
			select {
			case <-notify:
				return
			case msg := <-msgCh:
				fmt.Fprintf(c.Writer, "data: %s\n\n", string(msg))
				flusher.Flush()
			}
		}
	}
}
