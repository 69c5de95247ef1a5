package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JoeShih716/go-mem-finance/internal/app/core/domain"
)

const (
	// 寫入單一訊息的期限
	writeWait = 10 * time.Second
	// 每個連線的待送訊息數，塞滿視為過慢並斷線
	sendBuffer = 64
	// 連線時補送的最近事件數
	backlogSize = 50
)

// Backlog 提供連線時補送的最近事件 (eventbus.Bus)
type Backlog interface {
	Recent(owner string, limit int) []domain.Event
}

// message 推送給瀏覽器的訊息格式
type message struct {
	Type   string         `json:"type"`
	Event  *domain.Event  `json:"event,omitempty"`
	Events []domain.Event `json:"events,omitempty"`
}

type client struct {
	conn  *websocket.Conn
	owner string // 空字串代表接收全部帳戶
	send  chan []byte
}

// Hub 管理 WebSocket 連線並推送帳本事件
// 連線的增減與廣播都在 Run 的迴圈內處理，每個連線各自一個寫入 goroutine
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	backlog    Backlog
	upgrader   websocket.Upgrader
	// Run 結束後關閉
	done chan struct{}

	mu    sync.Mutex
	count int
}

func NewHub(backlog Backlog) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		backlog:    backlog,
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Run 處理連線與事件，直到 ctx 結束或 events 關閉
func (h *Hub) Run(ctx context.Context, events <-chan domain.Event) {
	defer close(h.done)
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.clients[c] = true
			h.setCount(len(h.clients))
			log.Printf("ws: client connected (owner=%q). Total clients: %d", c.owner, len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				log.Printf("ws: client disconnected. Remaining clients: %d", len(h.clients))
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.broadcast(ev)
		}
	}
}

func (h *Hub) broadcast(ev domain.Event) {
	data, err := json.Marshal(message{Type: "event", Event: &ev})
	if err != nil {
		log.Printf("ws: failed to marshal event: %v", err)
		return
	}
	for c := range h.clients {
		if c.owner != "" && c.owner != ev.Owner {
			continue
		}
		select {
		case c.send <- data:
		default:
			log.Printf("ws: client for %q too slow, closing", c.owner)
			h.drop(c)
		}
	}
}

// drop 只在 Run 迴圈內呼叫
func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.setCount(len(h.clients))
}

func (h *Hub) closeAll() {
	for c := range h.clients {
		h.drop(c)
	}
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// ClientCount 目前連線數
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// ServeHTTP 升級為 WebSocket，?owner= 可只接收單一帳戶的事件
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: failed to upgrade: %v", err)
		return
	}
	c := &client{
		conn:  conn,
		owner: r.URL.Query().Get("owner"),
		send:  make(chan []byte, sendBuffer),
	}

	// 先放入最近事件，確保在即時事件之前送出
	if h.backlog != nil {
		recent := h.backlog.Recent(c.owner, backlogSize)
		if data, err := json.Marshal(message{Type: "initial_events", Events: recent}); err == nil {
			c.send <- data
		}
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go c.writeLoop()

	// 只讀取以偵測斷線，客戶端送來的內容不處理
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				select {
				case h.unregister <- c:
				case <-h.done:
				}
				return
			}
		}
	}()
}

// writeLoop send 被關閉時結束並關閉連線
func (c *client) writeLoop() {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("ws: error sending message: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
