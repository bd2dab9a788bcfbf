package notify

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"crumb/utils"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Event is one activity item pushed to the affected user: somebody
// rose their bake, commented on it, followed them, or remade a recipe.
type Event struct {
	Type      string `json:"type"` // "rise", "comment", "follow", "remake"
	ActorID   string `json:"actorId"`
	ActorName string `json:"actorName,omitempty"`
	PostID    string `json:"postId,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// Hub tracks one live websocket per user and fans events out to them.
// Users without an open socket simply miss the push; activity is not
// queued server-side.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
}

// client pairs a connection with its write lock. The websocket package
// permits only one writer per connection at a time, so every Emit for
// the same user must go through this mutex.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

func (h *Hub) register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	if old, ok := h.clients[userID]; ok {
		old.conn.Close()
	}
	h.clients[userID] = &client{conn: conn}
	h.mu.Unlock()
}

func (h *Hub) unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	if c, ok := h.clients[userID]; ok && c.conn == conn {
		delete(h.clients, userID)
	}
	h.mu.Unlock()
	conn.Close()
}

// Emit pushes an event to the target user if they are connected.
// Never blocks the caller on delivery problems.
func (h *Hub) Emit(targetUserID string, ev Event) {
	if h == nil || targetUserID == "" || targetUserID == ev.ActorID {
		return
	}
	if ev.CreatedAt == 0 {
		ev.CreatedAt = time.Now().UnixMilli()
	}
	h.mu.RLock()
	c, ok := h.clients[targetUserID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := c.write(payload); err != nil {
		log.Printf("notify: dropping client %s: %v", targetUserID, err)
		h.unregister(targetUserID, c.conn)
	}
}

// Connected reports whether a user currently holds a live socket.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// HandleWebSocket upgrades the request and parks the connection until
// the client goes away. Expects Authenticate to have run first.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.register(userID, conn)
	go func() {
		defer h.unregister(userID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
