package worker

import (
	"context"
	"fmt"

	"backend/internal/config"
	"backend/internal/worker/tasks"

	"github.com/hibiken/asynq"
)

// QueueClient asynq 客户端封装，实现引擎的任务入队接口
type QueueClient struct {
	client *asynq.Client
}

// NewQueueClient 创建队列客户端
func NewQueueClient(cfg config.RedisConfig) *QueueClient {
	return &QueueClient{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

// EnqueueNotify 入队一条通知投递任务，失败重试最多 5 次
func (c *QueueClient) EnqueueNotify(ctx context.Context, notificationID string) error {
	task, err := tasks.NewDeliverNotificationTask(notificationID)
	if err != nil {
		return fmt.Errorf("构建投递任务失败: %w", err)
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(tasks.QueueNotify),
		asynq.MaxRetry(5),
	)
	if err != nil {
		return fmt.Errorf("投递任务入队失败: %w", err)
	}
	return nil
}

// Close 关闭客户端
func (c *QueueClient) Close() error {
	return c.client.Close()
}
