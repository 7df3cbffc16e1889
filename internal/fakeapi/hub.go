package fakeapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// hub tracks push clients and fans frames out to them.
type hub struct {
	logger *slog.Logger

	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	refusing bool
}

func newHub(logger *slog.Logger) *hub {
	return &hub{logger: logger, clients: make(map[*websocket.Conn]struct{})}
}

func (h *hub) serve(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	refusing := h.refusing
	h.mu.Unlock()
	if refusing {
		http.Error(w, "push channel unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("push client connected")

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		_ = conn.Close()
		h.logger.Debug("push client disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("push client read error", "error", err)
			}
			return
		}
	}
}

func (h *hub) broadcastJSON(v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("failed to encode push frame", "error", err)
		return
	}
	h.broadcast(raw)
}

func (h *hub) broadcast(raw []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			h.logger.Warn("push write failed", "error", err)
			_ = conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *hub) closeAll(code int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if code != 0 {
			msg := websocket.FormatCloseMessage(code, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
		}
		_ = conn.Close()
		delete(h.clients, conn)
	}
}

func (h *hub) refuse(refuse bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refusing = refuse
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
