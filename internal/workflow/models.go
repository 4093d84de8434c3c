package workflow

import (
	"time"
)

// ============================================================================
// 枚举定义（对外稳定标识，持久化与客户端均依赖这些字符串值）
// ============================================================================

// ContentType 参与审批流程的内容类型
type ContentType string

const (
	ContentTypeVocabulary ContentType = "VOCABULARY" // 词汇集
	ContentTypeStory      ContentType = "STORY"      // 阅读故事
	ContentTypeTest       ContentType = "TEST"       // 测验
)

// Valid 检查内容类型是否合法
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeVocabulary, ContentTypeStory, ContentTypeTest:
		return true
	}
	return false
}

// WorkflowStatus 工作流实例状态
type WorkflowStatus string

const (
	StatusPending          WorkflowStatus = "pending"           // 待审核
	StatusInReview         WorkflowStatus = "in_review"         // 审核中
	StatusApproved         WorkflowStatus = "approved"          // 已通过
	StatusRejected         WorkflowStatus = "rejected"          // 已拒绝
	StatusChangesRequested WorkflowStatus = "changes_requested" // 需修改
	StatusEscalated        WorkflowStatus = "escalated"         // 已升级
	StatusCancelled        WorkflowStatus = "cancelled"         // 已取消
)

// Terminal 判断状态是否为终态。终态实例不再接受任何审批动作；
// changes_requested 在本引擎内同样视为终态（重新提交路径不在引擎范围内）。
func (s WorkflowStatus) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled, StatusChangesRequested:
		return true
	}
	return false
}

// terminalStatuses 用于 SQL NOT IN 查询
var terminalStatuses = []WorkflowStatus{
	StatusApproved, StatusRejected, StatusCancelled, StatusChangesRequested,
}

// reviewableStatuses 审核队列可见的状态。升级中的实例仍在等待
// 资深审核处理，因此同样出现在队列里。
var reviewableStatuses = []WorkflowStatus{
	StatusInReview, StatusEscalated,
}

// ApprovalAction 审批动作
type ApprovalAction string

const (
	ActionApprove        ApprovalAction = "approve"         // 通过
	ActionReject         ApprovalAction = "reject"          // 拒绝
	ActionRequestChanges ApprovalAction = "request_changes" // 要求修改
	ActionEscalate       ApprovalAction = "escalate"        // 升级到资深审核
)

// Valid 检查审批动作是否合法
func (a ApprovalAction) Valid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionRequestChanges, ActionEscalate:
		return true
	}
	return false
}

// Priority 实例优先级，决定审核队列排序
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid 检查优先级是否合法
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Rank 返回排序权重，urgent 最高
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// StepStatus 步骤记录状态
type StepStatus string

const (
	StepPending    StepStatus = "pending"     // 未开始
	StepInProgress StepStatus = "in_progress" // 进行中
	StepCompleted  StepStatus = "completed"   // 已完成
)

// StepResult 步骤完成后的裁决结果
type StepResult string

const (
	ResultApproved         StepResult = "approved"
	ResultRejected         StepResult = "rejected"
	ResultChangesRequested StepResult = "changes_requested"
	ResultEscalated        StepResult = "escalated"
	ResultCancelled        StepResult = "cancelled"
)

// ============================================================================
// 数据模型
// ============================================================================

// Metadata 提交内容的元信息，title 与 description 为必填，创建后不可修改
type Metadata struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// WorkflowInstance 一次内容提交在审批流水线中的运行实例
type WorkflowInstance struct {
	ID          string      `json:"id" gorm:"primaryKey;type:uuid"`
	ContentID   string      `json:"contentId" gorm:"type:uuid;not null;index"`
	ContentType ContentType `json:"contentType" gorm:"size:50;not null;index"`
	SubmitterID string      `json:"submitterId" gorm:"type:uuid;not null;index"`
	Metadata    Metadata    `json:"metadata" gorm:"type:jsonb;serializer:json"`
	Priority    Priority    `json:"priority" gorm:"size:20;not null;default:medium;index"`

	// 当前状态。CurrentStepRole 为当前步骤所需审核角色的冗余列，
	// 供审核队列查询使用；终态时 CurrentStepID 为 nil、角色为空。
	CurrentStatus   WorkflowStatus `json:"currentStatus" gorm:"size:30;not null;index"`
	CurrentStepID   *string        `json:"currentStepId" gorm:"size:100;index"`
	CurrentStepRole string         `json:"currentStepRole" gorm:"size:50;index"`

	// 步骤历史（按 sequence 升序，只追加）
	StepHistory []StepRecord `json:"stepHistory" gorm:"foreignKey:InstanceID;references:ID"`

	StartedAt             time.Time  `json:"startedAt" gorm:"not null;index"`
	EstimatedCompletionAt *time.Time `json:"estimatedCompletionAt"`
	CompletedAt           *time.Time `json:"completedAt"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// TableName 指定表名
func (WorkflowInstance) TableName() string {
	return "workflow_instances"
}

// StepRecord 单个审核步骤的执行记录，写入后只追加不回改
type StepRecord struct {
	ID         string `json:"id" gorm:"primaryKey;type:uuid"`
	InstanceID string `json:"instanceId" gorm:"type:uuid;not null;index"`

	StepID       string `json:"stepId" gorm:"size:100;not null;index"`
	Name         string `json:"name" gorm:"size:100"`
	RequiredRole string `json:"requiredRole" gorm:"size:50;not null"`

	// Sequence 为历史中的序号（从1开始）；TemplateIndex 为流水线模板位置，
	// 升级步骤沿用被升级步骤的位置，便于审批后恢复流水线。
	Sequence      int  `json:"sequence" gorm:"not null;index"`
	TemplateIndex int  `json:"templateIndex" gorm:"not null"`
	Escalation    bool `json:"escalation" gorm:"default:false"`

	Status      StepStatus `json:"status" gorm:"size:20;not null;default:pending"`
	StartedAt   time.Time  `json:"startedAt" gorm:"not null"`
	CompletedAt *time.Time `json:"completedAt"`

	// 裁决信息（完成后填写）
	ExecutedBy       string     `json:"executedBy" gorm:"type:uuid"`
	Result           StepResult `json:"result" gorm:"size:30"`
	Comments         string     `json:"comments" gorm:"type:text"`
	Score            *float64   `json:"score" gorm:"type:decimal(5,2)"`
	AutoApproved     bool       `json:"autoApproved" gorm:"default:false"`
	TimeSpentSeconds int64      `json:"timeSpentSeconds" gorm:"default:0"`
}

// TableName 指定表名
func (StepRecord) TableName() string {
	return "workflow_step_records"
}

// NotificationCategory 通知类别
type NotificationCategory string

const (
	NotifySubmissionReceived NotificationCategory = "submission_received" // 提交成功
	NotifyReviewAssigned     NotificationCategory = "review_assigned"     // 待审核分配
	NotifyStepCompleted      NotificationCategory = "step_completed"      // 步骤完成
	NotifyFinalOutcome       NotificationCategory = "final_outcome"       // 终态结果
)

// Notification 工作流通知（落库保证不丢，渠道投递至少一次）
type Notification struct {
	ID         string               `json:"id" gorm:"primaryKey;type:uuid"`
	UserID     string               `json:"userId" gorm:"type:uuid;not null;index"`
	InstanceID string               `json:"instanceId" gorm:"type:uuid;not null;index"`
	Category   NotificationCategory `json:"category" gorm:"size:50;not null"`
	Message    string               `json:"message" gorm:"type:text;not null"`
	Read       bool                 `json:"read" gorm:"default:false;index"`
	CreatedAt  time.Time            `json:"createdAt" gorm:"not null;autoCreateTime;index"`
}

// TableName 指定表名
func (Notification) TableName() string {
	return "workflow_notifications"
}

// ============================================================================
// 请求/响应类型
// ============================================================================

// SubmitContentRequest 提交内容进入审批流水线
type SubmitContentRequest struct {
	ContentID   string      `json:"contentId" binding:"required"`
	ContentType ContentType `json:"contentType" binding:"required"`
	Metadata    Metadata    `json:"metadata"`
	Priority    Priority    `json:"priority"`
}

// ApprovalActionRequest 对当前步骤执行审批动作。
// InstanceID 与 ReviewerID 由服务端从路径和认证上下文填充。
type ApprovalActionRequest struct {
	InstanceID string         `json:"instanceId"`
	StepID     string         `json:"stepId" binding:"required"`
	ReviewerID string         `json:"-"`
	Action     ApprovalAction `json:"action" binding:"required"`
	Comments   string         `json:"comments"`
	Score      *float64       `json:"score"`
}

// InstanceFilter 实例列表过滤条件
type InstanceFilter struct {
	Status      WorkflowStatus `json:"status" form:"status"`
	ContentType ContentType    `json:"contentType" form:"contentType"`
	Role        string         `json:"role" form:"role"` // submitter 或 reviewer
}

// PendingReviewFilter 审核队列过滤条件
type PendingReviewFilter struct {
	ContentType ContentType `json:"contentType" form:"contentType"`
	Priority    Priority    `json:"priority" form:"priority"`
}

// BulkApproveRequest 批量审批请求
type BulkApproveRequest struct {
	InstanceIDs []string       `json:"instanceIds" binding:"required,min=1"`
	Action      ApprovalAction `json:"action" binding:"required"`
	Comments    string         `json:"comments"`
}

// BulkApproveResult 批量审批结果，逐项隔离：单项失败不影响其它项
type BulkApproveResult struct {
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors"`
}

// Progress 实例进度
type Progress struct {
	TotalSteps                int    `json:"totalSteps"`
	CompletedSteps            int    `json:"completedSteps"`
	ProgressPercentage        int    `json:"progressPercentage"`
	EstimatedSecondsRemaining *int64 `json:"estimatedSecondsRemaining,omitempty"`
}

// Statistics 全局统计
type Statistics struct {
	Total         int64                    `json:"total"`
	ByStatus      map[WorkflowStatus]int64 `json:"byStatus"`
	ByContentType map[ContentType]int64    `json:"byContentType"`
	GeneratedAt   time.Time                `json:"generatedAt"`
}
