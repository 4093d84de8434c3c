package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/logger"
	"backend/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TaskEnqueuer 通知投递任务入队。落库在前、入队在后：
// 入队失败只记日志，通知行不丢。
type TaskEnqueuer interface {
	EnqueueNotify(ctx context.Context, notificationID string) error
}

// Dispatcher 通知分发器。每次状态变化为提交者写通知，推进/升级时
// 通知新步骤角色的全部审核人，终态时通知最终结果。
type Dispatcher struct {
	db       *gorm.DB
	roles    RoleDirectory
	enqueuer TaskEnqueuer
	logger   *zap.Logger
}

// DispatcherOption 分发器配置选项
type DispatcherOption func(*Dispatcher)

// WithEnqueuer 设置投递任务队列
func WithEnqueuer(e TaskEnqueuer) DispatcherOption {
	return func(d *Dispatcher) { d.enqueuer = e }
}

// NewDispatcher 创建通知分发器
func NewDispatcher(db *gorm.DB, roles RoleDirectory, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		db:     db,
		roles:  roles,
		logger: logger.Get(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ============================================================================
// 事件入口（由 Manager 调用）
// ============================================================================

// InstanceSubmitted 提交成功：通知提交者，并通知首个步骤的审核人池
func (d *Dispatcher) InstanceSubmitted(ctx context.Context, instance *WorkflowInstance, first *StepRecord) {
	d.notify(ctx, instance.SubmitterID, instance.ID, NotifySubmissionReceived,
		fmt.Sprintf("您提交的「%s」已进入审批流程", instance.Metadata.Title))
	d.notifyRolePool(ctx, instance, first.RequiredRole,
		fmt.Sprintf("新的待审内容「%s」（%s）", instance.Metadata.Title, first.Name))
}

// StepDecided 步骤裁决完成：通知提交者；推进或升级时通知新步骤审核人池
func (d *Dispatcher) StepDecided(ctx context.Context, instance *WorkflowInstance, decision *Decision, next *StepRecord) {
	title := instance.Metadata.Title

	if instance.CurrentStatus.Terminal() {
		d.notify(ctx, instance.SubmitterID, instance.ID, NotifyFinalOutcome,
			fmt.Sprintf("「%s」审批结束，最终状态：%s", title, instance.CurrentStatus))
	} else {
		d.notify(ctx, instance.SubmitterID, instance.ID, NotifyStepCompleted,
			fmt.Sprintf("「%s」审批进度更新：%s", title, decision.Result))
	}

	if next != nil {
		d.notifyRolePool(ctx, instance, next.RequiredRole,
			fmt.Sprintf("新的待审内容「%s」（%s）", title, next.Name))
	}
}

// InstanceCancelled 流程被取消：通知提交者
func (d *Dispatcher) InstanceCancelled(ctx context.Context, instance *WorkflowInstance) {
	d.notify(ctx, instance.SubmitterID, instance.ID, NotifyFinalOutcome,
		fmt.Sprintf("「%s」的审批流程已被管理员取消", instance.Metadata.Title))
}

// ============================================================================
// 查询与已读
// ============================================================================

// GetUserNotifications 查询用户通知，最新在前
func (d *Dispatcher) GetUserNotifications(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	query := d.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	var notifications []Notification
	if err := query.Order("created_at DESC").Find(&notifications).Error; err != nil {
		return nil, StorageError(err)
	}
	return notifications, nil
}

// MarkNotificationAsRead 标记通知已读。幂等：重复标记返回成功，
// 仅通知不存在时报 NOT_FOUND。
func (d *Dispatcher) MarkNotificationAsRead(ctx context.Context, userID, notificationID string) error {
	var notification Notification
	err := d.db.WithContext(ctx).
		First(&notification, "id = ? AND user_id = ?", notificationID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFoundError("通知 %s 不存在", notificationID)
	}
	if err != nil {
		return StorageError(err)
	}
	if notification.Read {
		return nil
	}
	if err := d.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ?", notificationID).
		Update("read", true).Error; err != nil {
		return StorageError(err)
	}
	return nil
}

// ============================================================================
// 内部
// ============================================================================

// notify 写入一条通知并入队投递。写库失败记日志但不向上传播，
// 通知失败不能阻断审批主流程。
func (d *Dispatcher) notify(ctx context.Context, userID, instanceID string, category NotificationCategory, message string) {
	notification := &Notification{
		ID:         uuid.New().String(),
		UserID:     userID,
		InstanceID: instanceID,
		Category:   category,
		Message:    message,
		CreatedAt:  time.Now(),
	}
	if err := d.db.WithContext(ctx).Create(notification).Error; err != nil {
		d.logger.Error("通知写入失败",
			zap.String("user_id", userID),
			zap.String("instance_id", instanceID),
			zap.Error(err))
		return
	}
	metrics.NotificationsCreated.WithLabelValues(string(category)).Inc()

	if d.enqueuer == nil {
		return
	}
	if err := d.enqueuer.EnqueueNotify(ctx, notification.ID); err != nil {
		d.logger.Error("通知投递任务入队失败",
			zap.String("notification_id", notification.ID),
			zap.Error(err))
	}
}

// notifyRolePool 通知持有指定角色的全部审核人
func (d *Dispatcher) notifyRolePool(ctx context.Context, instance *WorkflowInstance, role, message string) {
	users, err := d.roles.UsersWithRole(ctx, role)
	if err != nil {
		d.logger.Error("查询角色审核人失败",
			zap.String("role", role),
			zap.Error(err))
		return
	}
	for _, userID := range users {
		d.notify(ctx, userID, instance.ID, NotifyReviewAssigned, message)
	}
}
