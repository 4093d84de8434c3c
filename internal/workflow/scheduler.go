package workflow

import (
	"context"
	"fmt"
	"sort"

	"backend/internal/logger"
	"backend/internal/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Scheduler 审核队列调度器：按优先级排序的待审列表与批量审批
type Scheduler struct {
	db      *gorm.DB
	manager *Manager
	roles   RoleDirectory
	logger  *zap.Logger
}

// NewScheduler 创建调度器
func NewScheduler(db *gorm.DB, manager *Manager, roles RoleDirectory) *Scheduler {
	return &Scheduler{
		db:      db,
		manager: manager,
		roles:   roles,
		logger:  logger.Get(),
	}
}

// GetPendingReviews 返回审核人可处理的待审实例，排序契约：
// 优先级权重降序，同权重按提交时间降序（新提交在前）。
func (s *Scheduler) GetPendingReviews(ctx context.Context, reviewerID string, filter *PendingReviewFilter) ([]WorkflowInstance, error) {
	userRoles, err := s.roles.RolesOf(ctx, reviewerID)
	if err != nil {
		return nil, StorageError(err)
	}
	if len(userRoles) == 0 {
		return []WorkflowInstance{}, nil
	}

	query := s.db.WithContext(ctx).Model(&WorkflowInstance{}).
		Where("current_step_role IN ? AND current_status IN ?", userRoles, reviewableStatuses)
	if filter != nil {
		if filter.ContentType != "" {
			query = query.Where("content_type = ?", filter.ContentType)
		}
		if filter.Priority != "" {
			query = query.Where("priority = ?", filter.Priority)
		}
	}

	var instances []WorkflowInstance
	if err := query.Find(&instances).Error; err != nil {
		return nil, StorageError(err)
	}

	// 优先级权重在代码中定义，排序在内存完成，避免库间 CASE 方言差异
	sort.SliceStable(instances, func(i, j int) bool {
		ri, rj := instances[i].Priority.Rank(), instances[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		return instances[i].StartedAt.After(instances[j].StartedAt)
	})

	metrics.PendingReviews.Set(float64(len(instances)))
	return instances, nil
}

// BulkApprove 对多个实例执行同一审批动作。逐项隔离：每个实例
// 独立执行，单项失败只记入结果，不中断其余项。
func (s *Scheduler) BulkApprove(ctx context.Context, reviewerID string, req *BulkApproveRequest) (*BulkApproveResult, error) {
	if len(req.InstanceIDs) == 0 {
		return nil, ValidationError("instanceIds 不能为空")
	}
	if !req.Action.Valid() {
		return nil, ValidationError("未知的审批动作: %s", req.Action)
	}

	result := &BulkApproveResult{Errors: []string{}}
	for _, instanceID := range req.InstanceIDs {
		if err := s.approveOne(ctx, reviewerID, instanceID, req); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("实例 %s: %v", instanceID, err))
			continue
		}
		result.Successful++
	}

	s.logger.Info("批量审批完成",
		zap.String("reviewer_id", reviewerID),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed))
	return result, nil
}

// approveOne 对单个实例的当前步骤执行动作
func (s *Scheduler) approveOne(ctx context.Context, reviewerID, instanceID string, req *BulkApproveRequest) error {
	instance, err := s.manager.GetInstance(ctx, instanceID)
	if err != nil {
		return err
	}
	if instance.CurrentStepID == nil {
		return InvalidTransitionError("实例 %s 没有进行中的步骤", instanceID)
	}
	_, err = s.manager.ExecuteApprovalAction(ctx, &ApprovalActionRequest{
		InstanceID: instanceID,
		StepID:     *instance.CurrentStepID,
		ReviewerID: reviewerID,
		Action:     req.Action,
		Comments:   req.Comments,
	})
	return err
}
