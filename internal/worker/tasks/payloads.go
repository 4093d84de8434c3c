package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型
const (
	// TypeDeliverNotification 投递一条工作流通知到各渠道
	TypeDeliverNotification = "notify:deliver"
)

// 队列名
const (
	QueueNotify  = "notify"
	QueueDefault = "default"
)

// DeliverNotificationPayload 通知投递任务负载，只携带通知ID，
// 内容在消费时从库中读取，保证重试拿到最新数据
type DeliverNotificationPayload struct {
	NotificationID string `json:"notification_id"`
}

// NewDeliverNotificationTask 创建通知投递任务
func NewDeliverNotificationTask(notificationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(DeliverNotificationPayload{NotificationID: notificationID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDeliverNotification, payload), nil
}
