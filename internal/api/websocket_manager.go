package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/devmatch/backend/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

type Client struct {
	ID     uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
	UserID uuid.UUID
}

// WebSocketManager tracks live connections per user and pushes connection
// events to them. It implements domain.Notifier.
type WebSocketManager struct {
	register   chan *Client
	unregister chan *Client
	// Map userID to list of active clients (for multi-device support)
	userClients map[uuid.UUID]map[*Client]bool
	done        chan struct{}
	mu          sync.RWMutex
	logger      *zap.Logger
}

func NewWebSocketManager(logger *zap.Logger) *WebSocketManager {
	return &WebSocketManager{
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		userClients: make(map[uuid.UUID]map[*Client]bool),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Run owns registration until ctx is done, then closes every client
func (m *WebSocketManager) Run(ctx context.Context) {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			if _, ok := m.userClients[client.UserID]; !ok {
				m.userClients[client.UserID] = make(map[*Client]bool)
			}
			m.userClients[client.UserID][client] = true
			m.mu.Unlock()
			m.logger.Debug("Client registered", zap.String("user_id", client.UserID.String()))

		case client := <-m.unregister:
			m.remove(client)

		case <-ctx.Done():
			close(m.done)
			m.mu.Lock()
			for userID, clients := range m.userClients {
				for client := range clients {
					close(client.Send)
				}
				delete(m.userClients, userID)
			}
			m.mu.Unlock()
			return
		}
	}
}

func (m *WebSocketManager) remove(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	userMap, ok := m.userClients[client.UserID]
	if !ok || !userMap[client] {
		return
	}
	delete(userMap, client)
	if len(userMap) == 0 {
		delete(m.userClients, client.UserID)
	}
	close(client.Send)
	m.logger.Debug("Client unregistered", zap.String("user_id", client.UserID.String()))
}

// ConnectedClients returns how many sockets userID has open
func (m *WebSocketManager) ConnectedClients(userID uuid.UUID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.userClients[userID])
}

// Notify sends event to every socket userID has open. Slow clients whose
// buffer is full miss the event rather than blocking the caller.
func (m *WebSocketManager) Notify(_ context.Context, userID uuid.UUID, event domain.Event) error {
	msg, err := json.Marshal(WSEvent{Type: string(event.Type), Payload: event})
	if err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for client := range m.userClients[userID] {
		select {
		case client.Send <- msg:
		default:
			m.logger.Warn("Dropping websocket event for slow client",
				zap.String("user_id", userID.String()),
				zap.String("event", string(event.Type)),
			)
		}
	}
	return nil
}

// WebSocket Event types
type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func (c *Client) ReadPump(manager *WebSocketManager) {
	defer func() {
		select {
		case manager.unregister <- c:
		case <-manager.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Events only flow server to client; reads just drive pongs and closes.
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				manager.logger.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// newUpgrader accepts same-host requests and the configured CORS origins
func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.ToLower(o)] = true
	}

	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed["*"] || allowed[strings.ToLower(origin)] {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		},
	}
}
