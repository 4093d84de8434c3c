package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backend/internal/identity"
	"backend/internal/metrics"
	"backend/internal/notification"
	"backend/internal/worker/tasks"
	"backend/internal/workflow"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NotifyHandler 消费通知投递任务，把通知行推送到各渠道。
// 队列保证至少一次投递，渠道实现需容忍重复。
type NotifyHandler struct {
	db       *gorm.DB
	notifier notification.Notifier
	channels []string
	logger   *zap.Logger
}

// NewNotifyHandler 创建通知投递处理器。channels 为启用的渠道列表，
// 空时只推 websocket。
func NewNotifyHandler(db *gorm.DB, notifier notification.Notifier, channels []string, logger *zap.Logger) *NotifyHandler {
	if len(channels) == 0 {
		channels = []string{"websocket"}
	}
	return &NotifyHandler{
		db:       db,
		notifier: notifier,
		channels: channels,
		logger:   logger,
	}
}

// HandleDeliverNotification 处理投递任务。通知行已被删除时任务
// 直接成功，避免无意义重试。
func (h *NotifyHandler) HandleDeliverNotification(ctx context.Context, task *asynq.Task) error {
	var payload tasks.DeliverNotificationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("解析任务负载失败: %v: %w", err, asynq.SkipRetry)
	}

	var row workflow.Notification
	err := h.db.WithContext(ctx).First(&row, "id = ?", payload.NotificationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		h.logger.Warn("通知不存在，跳过投递",
			zap.String("notification_id", payload.NotificationID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("读取通知失败: %w", err)
	}

	var user identity.User
	if err := h.db.WithContext(ctx).First(&user, "id = ?", row.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("读取接收用户失败: %w", err)
	}

	var lastErr error
	for _, channel := range h.channels {
		msg := &notification.Message{
			Channel: channel,
			UserID:  row.UserID,
			Subject: subjectFor(row.Category),
			Body:    row.Message,
			Data: map[string]any{
				"notificationId": row.ID,
				"instanceId":     row.InstanceID,
				"category":       row.Category,
			},
		}
		if channel == "email" {
			msg.To = user.Email
		}

		if err := h.notifier.Send(ctx, msg); err != nil {
			metrics.NotificationsDelivered.WithLabelValues(channel, "failed").Inc()
			h.logger.Error("通知渠道投递失败",
				zap.String("notification_id", row.ID),
				zap.String("channel", channel),
				zap.Error(err))
			lastErr = err
			continue
		}
		metrics.NotificationsDelivered.WithLabelValues(channel, "ok").Inc()
	}
	return lastErr
}

func subjectFor(category workflow.NotificationCategory) string {
	switch category {
	case workflow.NotifySubmissionReceived:
		return "提交已进入审批"
	case workflow.NotifyReviewAssigned:
		return "有新的待审内容"
	case workflow.NotifyStepCompleted:
		return "审批进度更新"
	case workflow.NotifyFinalOutcome:
		return "审批结果"
	}
	return "工作流通知"
}
