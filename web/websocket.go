package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"papermesh/logger"
	"papermesh/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// 本地监控服务，不校验来源
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub WebSocket 事件推送中心。轮询事件表增量并广播给所有连接。
type Hub struct {
	store *storage.Store

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	lastID  int64
}

// NewHub 创建事件推送中心
func NewHub(store *storage.Store) *Hub {
	return &Hub{
		store:   store,
		clients: make(map[*websocket.Conn]bool),
	}
}

// Start 启动事件广播循环。从当前最大事件ID开始，只推送新事件。
func (h *Hub) Start(ctx context.Context) {
	if id, err := h.store.LatestEventID(); err == nil {
		h.lastID = id
	}

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				h.closeAll()
				return
			case <-ticker.C:
				h.broadcastNew()
			}
		}
	}()
}

// HandleWebSocket GET /ws
func (h *Hub) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("⚠️ WebSocket 升级失败: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	total := len(h.clients)
	h.mu.Unlock()
	logger.Debug("WebSocket 连接建立 (当前 %d 个)", total)

	// 读循环只为感知断开，收到的消息忽略
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) broadcastNew() {
	events, err := h.store.ListEvents(h.lastID, 100)
	if err != nil {
		logger.Warn("⚠️ 读取事件失败: %v", err)
		return
	}
	if len(events) == 0 {
		return
	}
	h.lastID = events[len(events)-1].ID

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range events {
		for conn := range h.clients {
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(e); err != nil {
				conn.Close()
				delete(h.clients, conn)
			}
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[conn] {
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
}
