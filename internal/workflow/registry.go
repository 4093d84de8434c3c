package workflow

import (
	"sync"
	"time"
)

// ============================================================================
// 审核角色
// ============================================================================

const (
	RoleContentReviewer     = "content_reviewer"     // 内容初审
	RoleEducationSpecialist = "education_specialist" // 教学专家
	RoleEditorialReviewer   = "editorial_reviewer"   // 编辑终审
	RoleAssessmentReviewer  = "assessment_reviewer"  // 测评审核
	RoleSeniorReviewer      = "senior_reviewer"      // 资深审核（升级目标）
	RoleAdmin               = "admin"                // 管理员
)

// ============================================================================
// 流水线模板
// ============================================================================

// StepTemplate 流水线中一个审核步骤的定义
type StepTemplate struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	RequiredRole string        `json:"requiredRole"`
	Order        int           `json:"order"`
	// AutoApproveScore 自动通过分数线（含），nil 表示该步骤不支持分数快速通过
	AutoApproveScore  *float64      `json:"autoApproveScore,omitempty"`
	EstimatedDuration time.Duration `json:"estimatedDuration"`
}

// Definition 某内容类型的完整审批流水线
type Definition struct {
	ContentType ContentType    `json:"contentType"`
	Steps       []StepTemplate `json:"steps"`
	// Escalation 升级步骤模板，任何步骤被升级时路由到这里
	Escalation StepTemplate `json:"escalation"`
}

// EstimatedTotal 流水线预计总耗时
func (d *Definition) EstimatedTotal() time.Duration {
	var total time.Duration
	for _, s := range d.Steps {
		total += s.EstimatedDuration
	}
	return total
}

// Registry 流水线定义注册表。定义在进程启动时注册，之后只读；
// 运行中的实例持有步骤快照，注册表变更不影响已创建实例。
type Registry struct {
	mu          sync.RWMutex
	definitions map[ContentType]*Definition
}

// NewRegistry 创建并预置三类内容的流水线
func NewRegistry() *Registry {
	r := &Registry{definitions: make(map[ContentType]*Definition)}
	r.registerDefaults()
	return r
}

func floatPtr(v float64) *float64 { return &v }

// registerDefaults 预置流水线。词汇集两级、故事三级、测验两级；
// 首级均配置分数快速通过线。
func (r *Registry) registerDefaults() {
	r.Register(&Definition{
		ContentType: ContentTypeVocabulary,
		Steps: []StepTemplate{
			{
				ID:                "vocab_content_review",
				Name:              "词汇内容初审",
				RequiredRole:      RoleContentReviewer,
				Order:             1,
				AutoApproveScore:  floatPtr(70),
				EstimatedDuration: 4 * time.Hour,
			},
			{
				ID:                "vocab_education_review",
				Name:              "教学适配审核",
				RequiredRole:      RoleEducationSpecialist,
				Order:             2,
				EstimatedDuration: 8 * time.Hour,
			},
		},
		Escalation: StepTemplate{
			ID:                "vocab_senior_review",
			Name:              "词汇资深复审",
			RequiredRole:      RoleSeniorReviewer,
			EstimatedDuration: 12 * time.Hour,
		},
	})

	r.Register(&Definition{
		ContentType: ContentTypeStory,
		Steps: []StepTemplate{
			{
				ID:                "story_content_review",
				Name:              "故事内容初审",
				RequiredRole:      RoleContentReviewer,
				Order:             1,
				AutoApproveScore:  floatPtr(85),
				EstimatedDuration: 6 * time.Hour,
			},
			{
				ID:                "story_education_review",
				Name:              "教学适配审核",
				RequiredRole:      RoleEducationSpecialist,
				Order:             2,
				EstimatedDuration: 8 * time.Hour,
			},
			{
				ID:                "story_editorial_review",
				Name:              "编辑终审",
				RequiredRole:      RoleEditorialReviewer,
				Order:             3,
				EstimatedDuration: 12 * time.Hour,
			},
		},
		Escalation: StepTemplate{
			ID:                "story_senior_review",
			Name:              "故事资深复审",
			RequiredRole:      RoleSeniorReviewer,
			EstimatedDuration: 12 * time.Hour,
		},
	})

	r.Register(&Definition{
		ContentType: ContentTypeTest,
		Steps: []StepTemplate{
			{
				ID:                "test_content_review",
				Name:              "测验内容初审",
				RequiredRole:      RoleContentReviewer,
				Order:             1,
				AutoApproveScore:  floatPtr(70),
				EstimatedDuration: 4 * time.Hour,
			},
			{
				ID:                "test_assessment_review",
				Name:              "测评质量审核",
				RequiredRole:      RoleAssessmentReviewer,
				Order:             2,
				EstimatedDuration: 8 * time.Hour,
			},
		},
		Escalation: StepTemplate{
			ID:                "test_senior_review",
			Name:              "测验资深复审",
			RequiredRole:      RoleSeniorReviewer,
			EstimatedDuration: 12 * time.Hour,
		},
	})
}

// Register 注册或替换某内容类型的流水线定义
func (r *Registry) Register(def *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[def.ContentType] = def
}

// Get 查询内容类型的流水线定义
func (r *Registry) Get(contentType ContentType) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[contentType]
	if !ok {
		return nil, UnknownWorkflowTypeError(contentType)
	}
	return def, nil
}

// StepAt 按模板位置取步骤（0 起），越界返回 nil
func (d *Definition) StepAt(index int) *StepTemplate {
	if index < 0 || index >= len(d.Steps) {
		return nil
	}
	return &d.Steps[index]
}

// HasNext 判断模板位置之后是否还有步骤
func (d *Definition) HasNext(index int) bool {
	return index+1 < len(d.Steps)
}
