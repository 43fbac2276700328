package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event types pushed to websocket clients.
const (
	eventPrinterStatus  = "printer_status"
	eventPrintCompleted = "print_completed"
)

// wsMessage is the envelope for every pushed event.
type wsMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// hub tracks connected websocket clients and fans events out to them. The
// stream is push-only; clients never send anything the engine acts on.
type hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]bool
	logger  *zap.Logger
}

func newHub(logger *zap.Logger) *hub {
	return &hub{
		clients: make(map[*wsClient]bool),
		logger:  logger,
	}
}

type wsClient struct {
	conn *websocket.Conn
	send chan wsMessage
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan wsMessage, 64),
	}
	s.hub.add(client)
	s.logger.Debug("websocket client connected")

	go client.writePump()
	go s.hub.readPump(client)
}

func (h *hub) add(client *wsClient) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
}

func (h *hub) remove(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
}

// readPump only drains the connection to detect the close; incoming frames
// are discarded.
func (h *hub) readPump(client *wsClient) {
	defer func() {
		h.remove(client)
		client.conn.Close()
		h.logger.Debug("websocket client disconnected")
	}()

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// broadcast sends an event to every client, skipping any whose send buffer
// is full so one stalled client cannot block the rest.
func (h *hub) broadcast(event string, data interface{}) {
	msg := wsMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
		}
	}
}
