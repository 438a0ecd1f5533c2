// Package ws держит аутентифицированные WebSocket соединения участников
// и доставляет им сообщения по user_id.
//
// Клиент обязан прислать {"token": "<jwt>"} первым кадром в течение authTimeout,
// иначе соединение закрывается.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"buildorite/internal/shared/logger"
	"buildorite/internal/shared/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	authTimeout    = 5 * time.Second
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 8192
	writeWait      = 10 * time.Second
	sendBuffer     = 64
)

// ErrUserOffline — у пользователя нет открытых соединений
var ErrUserOffline = errors.New("user has no open websocket connections")

// AuthFunc проверяет токен и возвращает userID и роль
type AuthFunc func(token string) (userID, role string, err error)

// MessageHandler обрабатывает входящие сообщения клиента
type MessageHandler func(client *Client, messageType string, data json.RawMessage) error

// Client — одно WebSocket соединение
type Client struct {
	ID     string
	UserID string
	Role   string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
}

// Send кладет JSON в очередь клиента без блокировки
func (c *Client) Send(data any) error {
	msg, err := json.Marshal(data)
	if err != nil {
		return err
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c.ID]; !ok {
		return ErrUserOffline
	}
	if !c.hub.enqueue(c, msg) {
		return errors.New("client send buffer full")
	}
	return nil
}

// Hub — реестр соединений. Один пользователь может держать несколько вкладок.
type Hub struct {
	mu             sync.RWMutex
	clients        map[string]*Client
	byUser         map[string]map[string]*Client
	authFunc       AuthFunc
	messageHandler MessageHandler
	upgrader       websocket.Upgrader
	log            *logger.Logger
}

// NewHub создает Hub. allowedOrigins пустой — разрешены все origins.
func NewHub(authFunc AuthFunc, allowedOrigins []string, log *logger.Logger) *Hub {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Hub{
		clients:  make(map[string]*Client),
		byUser:   make(map[string]map[string]*Client),
		authFunc: authFunc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || origins[origin]
			},
		},
		log: log,
	}
}

// SetMessageHandler устанавливает обработчик входящих сообщений
func (h *Hub) SetMessageHandler(handler MessageHandler) {
	h.messageHandler = handler
}

// Run ждет завершения ctx и закрывает все соединения
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	for _, c := range h.clients {
		h.removeLocked(c)
	}
	h.mu.Unlock()

	h.log.Info(logger.Entry{Action: "hub_stopped", Message: "websocket hub stopped"})
}

// ConnectionCount — число открытых соединений
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsUserConnected проверяет, подключен ли пользователь
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID]) > 0
}

// SendToUser отправляет сообщение во все соединения пользователя.
// Возвращает ErrUserOffline, если доставить некуда.
func (h *Hub) SendToUser(userID string, message []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := h.byUser[userID]
	if len(conns) == 0 {
		return ErrUserOffline
	}
	delivered := 0
	for _, c := range conns {
		if h.enqueue(c, message) {
			delivered++
		}
	}
	if delivered == 0 {
		return ErrUserOffline
	}
	return nil
}

// SendToUserJSON отправляет JSON конкретному пользователю
func (h *Hub) SendToUserJSON(userID string, data any) error {
	msg, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return h.SendToUser(userID, msg)
}

// enqueue вызывается под h.mu
func (h *Hub) enqueue(c *Client, message []byte) bool {
	select {
	case c.send <- message:
		return true
	default:
		metrics.WSMessagesDroppedTotal.Inc()
		h.log.Warn(logger.Entry{
			Action:  "ws_message_dropped",
			Message: c.ID,
			Additional: map[string]any{
				"user_id": c.UserID,
			},
		})
		return false
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.ID] = c
	if h.byUser[c.UserID] == nil {
		h.byUser[c.UserID] = make(map[string]*Client)
	}
	h.byUser[c.UserID][c.ID] = c
	metrics.WSConnectionsActive.Inc()
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	if conns := h.byUser[c.UserID]; conns != nil {
		delete(conns, c.ID)
		if len(conns) == 0 {
			delete(h.byUser, c.UserID)
		}
	}
	close(c.send)
	metrics.WSConnectionsActive.Dec()
}

// ServeWS апгрейдит запрос и ждет кадр аутентификации
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(logger.Entry{
			Action:  "ws_upgrade_failed",
			Message: err.Error(),
		})
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(authTimeout))
	var authMsg struct {
		Token string `json:"token"`
	}
	if err := conn.ReadJSON(&authMsg); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "auth timeout"))
		_ = conn.Close()
		h.log.Warn(logger.Entry{Action: "ws_auth_failed", Message: "no auth message received"})
		return
	}

	userID, role, err := h.authFunc(authMsg.Token)
	if err != nil {
		_ = conn.WriteJSON(map[string]string{"error": "invalid token"})
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"))
		_ = conn.Close()
		h.log.Warn(logger.Entry{Action: "ws_auth_invalid_token", Message: err.Error()})
		return
	}

	client := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Role:   role,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		hub:    h,
	}

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// ack пишется до запуска writePump, поэтому конкурентной записи нет
	if err := conn.WriteJSON(map[string]string{"status": "authenticated", "user_id": userID}); err != nil {
		_ = conn.Close()
		return
	}
	h.add(client)
	h.log.Info(logger.Entry{
		Action:  "client_registered",
		Message: client.ID,
		Additional: map[string]any{
			"user_id": userID,
			"role":    role,
		},
	})

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
		c.hub.log.Info(logger.Entry{Action: "client_unregistered", Message: c.ID})
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn(logger.Entry{
					Action:  "ws_read_error",
					Message: err.Error(),
					Additional: map[string]any{
						"client_id": c.ID,
					},
				})
			}
			return
		}

		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data,omitempty"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			c.hub.log.Warn(logger.Entry{
				Action:  "ws_parse_message_error",
				Message: err.Error(),
				Additional: map[string]any{
					"client_id": c.ID,
				},
			})
			continue
		}

		if c.hub.messageHandler != nil {
			if err := c.hub.messageHandler(c, msg.Type, msg.Data); err != nil {
				c.hub.log.Warn(logger.Entry{
					Action:  "ws_handle_message_error",
					Message: err.Error(),
					Additional: map[string]any{
						"client_id": c.ID,
						"msg_type":  msg.Type,
					},
				})
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeHTTP позволяет монтировать Hub как http.Handler
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.ServeWS(w, r)
}
