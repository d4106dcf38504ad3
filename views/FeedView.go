package views

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/GrainArc/LandMap/services"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// pingInterval 心跳间隔
var pingInterval = 30 * time.Second

// Feed 地产变更推送，连接后先发送 init 消息
func (h *LandHandler) Feed(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.service.GetProperty(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to websocket: %v", err)
		return
	}
	defer conn.Close()

	messages, unsubscribe := h.service.Hub().Subscribe(id)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var mu sync.Mutex
	write := func(v interface{}) error {
		mu.Lock()
		defer mu.Unlock()
		return conn.WriteJSON(v)
	}

	if err := write(services.FeedMessage{Type: "init", PropertyID: id, Message: "subscribed", Timestamp: time.Now().UnixMilli()}); err != nil {
		log.Printf("[feed] property %s: send init: %v", id, err)
		return
	}

	// 客户端断开时结束
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("[feed] property %s: %v", id, err)
				}
				return
			}
		}
	}()

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-pingTicker.C:
			mu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			mu.Unlock()
			if err != nil {
				return
			}
		case msg, ok := <-messages:
			if !ok {
				// 地产已删除
				mu.Lock()
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "property deleted"))
				mu.Unlock()
				return
			}
			if err := write(msg); err != nil {
				log.Printf("[feed] property %s: write: %v", id, err)
				return
			}
		}
	}
}
