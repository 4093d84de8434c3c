package notifications

import (
	"net/http"

	"backend/internal/auth"
	"backend/internal/common"
	"backend/internal/logger"
	"backend/internal/notification"
	"backend/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler 通知 HTTP/WebSocket 处理器
type Handler struct {
	dispatcher *workflow.Dispatcher
	hub        *notification.WebSocketHub
	upgrader   websocket.Upgrader
}

// NewHandler 创建通知处理器
func NewHandler(dispatcher *workflow.Dispatcher, hub *notification.WebSocketHub) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		hub:        hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 跨域交给 CORS 中间件
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// List 查询用户通知
// @Summary 查询当前用户的通知，最新在前
// @Tags Notifications
// @Produce json
// @Param unread query bool false "仅未读"
// @Success 200 {object} common.APIResponse
// @Router /api/notifications [get]
func (h *Handler) List(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		common.BadRequest(c, "缺少用户上下文")
		return
	}

	unreadOnly := c.Query("unread") == "true"
	items, err := h.dispatcher.GetUserNotifications(c.Request.Context(), userCtx.UserID, unreadOnly)
	if err != nil {
		common.EngineError(c, err)
		return
	}
	common.List(c, items, len(items))
}

// MarkRead 标记通知已读
// @Summary 标记通知已读（幂等）
// @Tags Notifications
// @Produce json
// @Param id path string true "通知ID"
// @Success 200 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Router /api/notifications/{id}/read [post]
func (h *Handler) MarkRead(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		common.BadRequest(c, "缺少用户上下文")
		return
	}

	if err := h.dispatcher.MarkNotificationAsRead(c.Request.Context(), userCtx.UserID, c.Param("id")); err != nil {
		common.EngineError(c, err)
		return
	}
	common.Success(c, gin.H{"read": true})
}

// Stream WebSocket 实时通知流
// @Summary 建立 WebSocket 连接接收实时通知
// @Tags Notifications
// @Router /api/notifications/stream [get]
func (h *Handler) Stream(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		common.BadRequest(c, "缺少用户上下文")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("WebSocket 升级失败", zap.Error(err))
		return
	}

	h.hub.Register(userCtx.UserID, conn)

	// 读循环只用于感知断开
	go func() {
		defer func() {
			h.hub.Unregister(userCtx.UserID, conn)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
