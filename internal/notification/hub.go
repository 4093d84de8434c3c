package notification

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"backend/internal/logger"
	"backend/internal/metrics"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type clientConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// WebSocketHub 管理用户的 WebSocket 连接，同一用户可持有多个连接。
// 用户离线时消息进入离线存储，重连后重放。
type WebSocketHub struct {
	mu                sync.RWMutex
	clients           map[string]map[*websocket.Conn]*clientConn
	offline           OfflineStore
	keepAliveInterval time.Duration
	logger            *zap.Logger
}

// HubOption 配置 hub
type HubOption func(*WebSocketHub)

// WithOfflineStore 指定离线存储
func WithOfflineStore(store OfflineStore) HubOption {
	return func(h *WebSocketHub) { h.offline = store }
}

// WithKeepAliveInterval 设置心跳间隔
func WithKeepAliveInterval(interval time.Duration) HubOption {
	return func(h *WebSocketHub) { h.keepAliveInterval = interval }
}

// NewWebSocketHub 创建 Hub
func NewWebSocketHub(opts ...HubOption) *WebSocketHub {
	hub := &WebSocketHub{
		clients:           make(map[string]map[*websocket.Conn]*clientConn),
		offline:           NewMemoryOfflineStore(50),
		keepAliveInterval: 30 * time.Second,
		logger:            logger.Get(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(hub)
		}
	}
	return hub
}

// Register 注册连接，随后重放该用户的离线消息
func (h *WebSocketHub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[userID]; !ok {
		h.clients[userID] = make(map[*websocket.Conn]*clientConn)
	}
	client := &clientConn{conn: conn}
	h.clients[userID][conn] = client
	h.mu.Unlock()

	metrics.WebSocketConnections.Inc()
	h.replayOffline(context.Background(), userID, client)
	h.startKeepAlive(userID, client)
}

// Unregister 移除连接
func (h *WebSocketHub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[userID]; ok {
		if _, ok := conns[conn]; ok {
			delete(conns, conn)
			metrics.WebSocketConnections.Dec()
		}
		if len(conns) == 0 {
			delete(h.clients, userID)
		}
	}
}

// SendToUser 将消息推送给用户的全部连接，离线则入离线存储
func (h *WebSocketHub) SendToUser(userID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	userConns := h.clients[userID]
	h.mu.RUnlock()
	if len(userConns) == 0 {
		return h.storeOffline(context.Background(), userID, data)
	}

	var firstErr error
	for conn, client := range userConns {
		client.mu.Lock()
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			client.mu.Unlock()
			h.Unregister(userID, conn)
			_ = conn.Close()
			_ = h.storeOffline(context.Background(), userID, data)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		client.mu.Unlock()
	}
	return firstErr
}

// ConnectedCount 返回用户的连接数
func (h *WebSocketHub) ConnectedCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *WebSocketHub) replayOffline(ctx context.Context, userID string, client *clientConn) {
	if h.offline == nil {
		return
	}
	messages, err := h.offline.Drain(ctx, userID)
	if err != nil {
		h.logger.Warn("离线消息重放失败", zap.String("user_id", userID), zap.Error(err))
		return
	}
	for _, msg := range messages {
		client.mu.Lock()
		client.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("推送离线消息失败", zap.Error(err))
		}
		client.mu.Unlock()
	}
}

func (h *WebSocketHub) storeOffline(ctx context.Context, userID string, payload []byte) error {
	if h.offline == nil {
		return nil
	}
	return h.offline.Append(ctx, userID, payload)
}

func (h *WebSocketHub) startKeepAlive(userID string, client *clientConn) {
	if h.keepAliveInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(h.keepAliveInterval)
		defer ticker.Stop()
		for range ticker.C {
			client.mu.Lock()
			err := client.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			client.mu.Unlock()
			if err != nil {
				h.Unregister(userID, client.conn)
				_ = client.conn.Close()
				return
			}
		}
	}()
}
