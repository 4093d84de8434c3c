package workflow

import (
	"context"
	"errors"
	"time"

	"backend/internal/logger"
	"backend/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RoleDirectory 审核人角色目录。引擎只依赖这个小接口，
// 具体实现由 identity 包提供。
type RoleDirectory interface {
	// RolesOf 返回用户持有的全部角色
	RolesOf(ctx context.Context, userID string) ([]string, error)
	// UsersWithRole 返回持有指定角色的全部用户ID
	UsersWithRole(ctx context.Context, role string) ([]string, error)
}

// ============================================================================
// 实例管理器
// ============================================================================

// Manager 工作流实例管理器：提交、查询、执行审批动作、取消
type Manager struct {
	db         *gorm.DB
	registry   *Registry
	roles      RoleDirectory
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// ManagerOption 管理器配置选项
type ManagerOption func(*Manager)

// WithDispatcher 设置通知分发器
func WithDispatcher(d *Dispatcher) ManagerOption {
	return func(m *Manager) { m.dispatcher = d }
}

// WithManagerLogger 设置日志器
func WithManagerLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager 创建实例管理器
func NewManager(db *gorm.DB, registry *Registry, roles RoleDirectory, opts ...ManagerOption) *Manager {
	m := &Manager{
		db:       db,
		registry: registry,
		roles:    roles,
		logger:   logger.Get(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ============================================================================
// 提交
// ============================================================================

// SubmitContent 提交内容进入审批流水线。创建实例与首个进行中步骤，
// 同一内容同时只允许一个活跃实例。
func (m *Manager) SubmitContent(ctx context.Context, submitterID string, req *SubmitContentRequest) (*WorkflowInstance, error) {
	if req.ContentID == "" {
		return nil, ValidationError("contentId 不能为空")
	}
	if req.Metadata.Title == "" || req.Metadata.Description == "" {
		return nil, ValidationError("metadata 的 title 和 description 为必填项")
	}
	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return nil, ValidationError("未知的优先级: %s", priority)
	}

	def, err := m.registry.Get(req.ContentType)
	if err != nil {
		return nil, err
	}

	// 重复提交检查：同一内容存在非终态实例即拒绝
	var active int64
	if err := m.db.WithContext(ctx).Model(&WorkflowInstance{}).
		Where("content_id = ? AND current_status NOT IN ?", req.ContentID, terminalStatuses).
		Count(&active).Error; err != nil {
		return nil, StorageError(err)
	}
	if active > 0 {
		return nil, DuplicateSubmissionError("内容 %s 已有进行中的审批流程", req.ContentID)
	}

	now := time.Now()
	first := def.Steps[0]
	estimated := now.Add(def.EstimatedTotal())

	instance := &WorkflowInstance{
		ID:                    uuid.New().String(),
		ContentID:             req.ContentID,
		ContentType:           req.ContentType,
		SubmitterID:           submitterID,
		Metadata:              req.Metadata,
		Priority:              priority,
		CurrentStatus:         StatusInReview,
		CurrentStepID:         &first.ID,
		CurrentStepRole:       first.RequiredRole,
		StartedAt:             now,
		EstimatedCompletionAt: &estimated,
	}
	record := &StepRecord{
		ID:            uuid.New().String(),
		InstanceID:    instance.ID,
		StepID:        first.ID,
		Name:          first.Name,
		RequiredRole:  first.RequiredRole,
		Sequence:      1,
		TemplateIndex: 0,
		Status:        StepInProgress,
		StartedAt:     now,
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(instance).Error; err != nil {
			return err
		}
		return tx.Create(record).Error
	})
	if err != nil {
		return nil, StorageError(err)
	}
	instance.StepHistory = []StepRecord{*record}

	metrics.WorkflowSubmissions.WithLabelValues(string(req.ContentType)).Inc()
	m.logger.Info("内容提交进入审批流水线",
		zap.String("instance_id", instance.ID),
		zap.String("content_id", req.ContentID),
		zap.String("content_type", string(req.ContentType)),
		zap.String("priority", string(priority)))

	if m.dispatcher != nil {
		m.dispatcher.InstanceSubmitted(ctx, instance, record)
	}
	return instance, nil
}

// ============================================================================
// 查询
// ============================================================================

// GetInstance 查询实例及其完整步骤历史（按序号升序）
func (m *Manager) GetInstance(ctx context.Context, instanceID string) (*WorkflowInstance, error) {
	var instance WorkflowInstance
	err := m.db.WithContext(ctx).
		Preload("StepHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		First(&instance, "id = ?", instanceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFoundError("工作流实例 %s 不存在", instanceID)
	}
	if err != nil {
		return nil, StorageError(err)
	}
	return &instance, nil
}

// ListUserInstances 按视角分页列出实例。role=reviewer 返回当前步骤角色
// 命中用户角色的审核中实例，其余视角返回用户自己提交的实例。
// limit <= 0 时不分页。返回值中的 total 为过滤后的总条数。
func (m *Manager) ListUserInstances(ctx context.Context, userID string, filter *InstanceFilter, limit, offset int) ([]WorkflowInstance, int64, error) {
	query := m.db.WithContext(ctx).Model(&WorkflowInstance{})

	if filter != nil && filter.Role == "reviewer" {
		userRoles, err := m.roles.RolesOf(ctx, userID)
		if err != nil {
			return nil, 0, StorageError(err)
		}
		if len(userRoles) == 0 {
			return []WorkflowInstance{}, 0, nil
		}
		query = query.Where("current_step_role IN ? AND current_status IN ?", userRoles, reviewableStatuses)
	} else {
		query = query.Where("submitter_id = ?", userID)
	}
	if filter != nil {
		if filter.Status != "" {
			query = query.Where("current_status = ?", filter.Status)
		}
		if filter.ContentType != "" {
			query = query.Where("content_type = ?", filter.ContentType)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, StorageError(err)
	}
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}

	var instances []WorkflowInstance
	if err := query.Order("started_at DESC").Find(&instances).Error; err != nil {
		return nil, 0, StorageError(err)
	}
	return instances, total, nil
}

// ============================================================================
// 审批动作
// ============================================================================

// ExecuteApprovalAction 对实例当前步骤执行审批动作。并发保护：
// 状态推进使用以 current_step_id 为条件的更新，同一步骤的并发裁决
// 只有一方生效，失败方收到 STEP_MISMATCH。
func (m *Manager) ExecuteApprovalAction(ctx context.Context, req *ApprovalActionRequest) (*WorkflowInstance, error) {
	instance, err := m.GetInstance(ctx, req.InstanceID)
	if err != nil {
		return nil, err
	}
	if instance.CurrentStatus.Terminal() {
		return nil, InvalidTransitionError("实例 %s 已处于终态 %s", instance.ID, instance.CurrentStatus)
	}
	if instance.CurrentStepID == nil || *instance.CurrentStepID != req.StepID {
		return nil, StepMismatchError("步骤 %s 不是实例 %s 的当前步骤", req.StepID, instance.ID)
	}

	current := m.currentStepRecord(instance)
	if current == nil {
		return nil, StorageError(errors.New("实例缺少进行中的步骤记录"))
	}

	// 审核人授权检查
	userRoles, err := m.roles.RolesOf(ctx, req.ReviewerID)
	if err != nil {
		return nil, StorageError(err)
	}
	if !containsRole(userRoles, current.RequiredRole) {
		return nil, UnauthorizedReviewerError("审核人 %s 不具备步骤所需角色 %s", req.ReviewerID, current.RequiredRole)
	}

	def, err := m.registry.Get(instance.ContentType)
	if err != nil {
		return nil, err
	}

	// 升级步骤通过后回到被升级步骤之后的模板位置
	tpl := m.templateFor(def, current)
	hasNext := def.HasNext(current.TemplateIndex)

	decision, err := Decide(tpl, hasNext, req.Action, req.Score)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var nextRecord *StepRecord
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 关闭当前步骤记录，status 条件保证只关闭一次
		res := tx.Model(&StepRecord{}).
			Where("id = ? AND status = ?", current.ID, StepInProgress).
			Updates(map[string]any{
				"status":             StepCompleted,
				"completed_at":       now,
				"executed_by":        req.ReviewerID,
				"result":             decision.Result,
				"comments":           req.Comments,
				"score":              req.Score,
				"auto_approved":      decision.AutoApproved,
				"time_spent_seconds": int64(now.Sub(current.StartedAt).Seconds()),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return StepMismatchError("步骤 %s 已被其他审核人处理", req.StepID)
		}

		updates := map[string]any{
			"current_status": decision.Status,
			"updated_at":     now,
		}
		switch {
		case decision.Advance:
			next := def.StepAt(current.TemplateIndex + 1)
			nextRecord = m.buildStepRecord(instance.ID, next, current.TemplateIndex+1, current.Sequence+1, false, now)
			updates["current_step_id"] = next.ID
			updates["current_step_role"] = next.RequiredRole
		case decision.Escalate:
			esc := def.Escalation
			nextRecord = m.buildStepRecord(instance.ID, &esc, current.TemplateIndex, current.Sequence+1, true, now)
			updates["current_step_id"] = esc.ID
			updates["current_step_role"] = esc.RequiredRole
		default:
			// 终态：清空当前步骤
			updates["current_step_id"] = nil
			updates["current_step_role"] = ""
			updates["completed_at"] = now
		}

		// 以 current_step_id 为条件的状态推进，并发失败方在此落败
		res = tx.Model(&WorkflowInstance{}).
			Where("id = ? AND current_step_id = ?", instance.ID, req.StepID).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return StepMismatchError("步骤 %s 不再是实例 %s 的当前步骤", req.StepID, instance.ID)
		}

		if nextRecord != nil {
			return tx.Create(nextRecord).Error
		}
		return nil
	})
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return nil, e
		}
		return nil, StorageError(err)
	}

	metrics.ApprovalDecisions.WithLabelValues(string(req.Action), string(decision.Result)).Inc()
	m.logger.Info("审批动作已执行",
		zap.String("instance_id", instance.ID),
		zap.String("step_id", req.StepID),
		zap.String("action", string(req.Action)),
		zap.String("result", string(decision.Result)),
		zap.Bool("auto_approved", decision.AutoApproved))

	updated, err := m.GetInstance(ctx, instance.ID)
	if err != nil {
		return nil, err
	}
	if m.dispatcher != nil {
		m.dispatcher.StepDecided(ctx, updated, decision, nextRecord)
	}
	return updated, nil
}

// CancelInstance 管理员取消流程。终态实例不可取消。
func (m *Manager) CancelInstance(ctx context.Context, instanceID, adminID, reason string) (*WorkflowInstance, error) {
	instance, err := m.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if instance.CurrentStatus.Terminal() {
		return nil, InvalidTransitionError("实例 %s 已处于终态 %s", instance.ID, instance.CurrentStatus)
	}

	now := time.Now()
	current := m.currentStepRecord(instance)
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if current != nil {
			res := tx.Model(&StepRecord{}).
				Where("id = ? AND status = ?", current.ID, StepInProgress).
				Updates(map[string]any{
					"status":             StepCompleted,
					"completed_at":       now,
					"executed_by":        adminID,
					"result":             ResultCancelled,
					"comments":           reason,
					"time_spent_seconds": int64(now.Sub(current.StartedAt).Seconds()),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return StepMismatchError("实例 %s 的当前步骤已被处理", instanceID)
			}
		}
		res := tx.Model(&WorkflowInstance{}).
			Where("id = ? AND current_status NOT IN ?", instanceID, terminalStatuses).
			Updates(map[string]any{
				"current_status":    StatusCancelled,
				"current_step_id":   nil,
				"current_step_role": "",
				"completed_at":      now,
				"updated_at":        now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return InvalidTransitionError("实例 %s 已处于终态", instanceID)
		}
		return nil
	})
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return nil, e
		}
		return nil, StorageError(err)
	}

	m.logger.Info("流程已取消",
		zap.String("instance_id", instanceID),
		zap.String("admin_id", adminID))

	updated, err := m.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if m.dispatcher != nil {
		m.dispatcher.InstanceCancelled(ctx, updated)
	}
	return updated, nil
}

// ============================================================================
// 内部工具
// ============================================================================

// currentStepRecord 返回进行中的步骤记录（不变量：至多一条）
func (m *Manager) currentStepRecord(instance *WorkflowInstance) *StepRecord {
	for i := range instance.StepHistory {
		if instance.StepHistory[i].Status == StepInProgress {
			return &instance.StepHistory[i]
		}
	}
	return nil
}

// templateFor 取步骤记录对应的模板。升级步骤使用升级模板，
// 模板位置沿用被升级步骤，审批通过后据此恢复流水线。
func (m *Manager) templateFor(def *Definition, rec *StepRecord) *StepTemplate {
	if rec.Escalation {
		esc := def.Escalation
		return &esc
	}
	if tpl := def.StepAt(rec.TemplateIndex); tpl != nil {
		return tpl
	}
	return &StepTemplate{ID: rec.StepID, Name: rec.Name, RequiredRole: rec.RequiredRole}
}

func (m *Manager) buildStepRecord(instanceID string, tpl *StepTemplate, templateIndex, sequence int, escalation bool, now time.Time) *StepRecord {
	return &StepRecord{
		ID:            uuid.New().String(),
		InstanceID:    instanceID,
		StepID:        tpl.ID,
		Name:          tpl.Name,
		RequiredRole:  tpl.RequiredRole,
		Sequence:      sequence,
		TemplateIndex: templateIndex,
		Escalation:    escalation,
		Status:        StepInProgress,
		StartedAt:     now,
	}
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
