package workflow

// executor.go 纯转换逻辑：给定步骤模板与审批动作，计算步骤裁决与实例去向。
// 不触碰存储，便于穷举测试。

// Decision 单次审批动作的完整裁决
type Decision struct {
	Result       StepResult     // 当前步骤的裁决结果
	Status       WorkflowStatus // 实例的新状态
	Advance      bool           // 是否推进到下一模板步骤
	Escalate     bool           // 是否切入升级步骤
	AutoApproved bool           // 是否由分数线触发自动通过
}

// ResolveAction 应用分数快速通过规则：步骤配置了分数线且评分达到线（含）时，
// 动作强制视为 approve。返回解析后的动作与是否自动通过。
func ResolveAction(tpl *StepTemplate, action ApprovalAction, score *float64) (ApprovalAction, bool) {
	if tpl.AutoApproveScore != nil && score != nil && *score >= *tpl.AutoApproveScore {
		return ActionApprove, action != ActionApprove
	}
	return action, false
}

// Decide 计算审批动作的裁决。hasNext 指当前模板位置之后是否还有步骤。
// 动作枚举为封闭集合，未知动作返回校验错误而非落入默认分支。
func Decide(tpl *StepTemplate, hasNext bool, action ApprovalAction, score *float64) (*Decision, error) {
	if !action.Valid() {
		return nil, ValidationError("未知的审批动作: %s", action)
	}
	if score != nil && (*score < 0 || *score > 100) {
		return nil, ValidationError("评分必须在 0-100 之间, 收到 %.2f", *score)
	}

	resolved, auto := ResolveAction(tpl, action, score)

	switch resolved {
	case ActionApprove:
		if hasNext {
			return &Decision{
				Result:       ResultApproved,
				Status:       StatusInReview,
				Advance:      true,
				AutoApproved: auto,
			}, nil
		}
		return &Decision{
			Result:       ResultApproved,
			Status:       StatusApproved,
			AutoApproved: auto,
		}, nil
	case ActionReject:
		return &Decision{
			Result: ResultRejected,
			Status: StatusRejected,
		}, nil
	case ActionRequestChanges:
		return &Decision{
			Result: ResultChangesRequested,
			Status: StatusChangesRequested,
		}, nil
	case ActionEscalate:
		return &Decision{
			Result:   ResultEscalated,
			Status:   StatusEscalated,
			Escalate: true,
		}, nil
	}
	return nil, ValidationError("未知的审批动作: %s", resolved)
}

// StatusAfterStep 由最后一条已完成步骤的裁决推导实例状态。
// 实例状态始终是步骤历史的纯函数，此处是该映射的唯一出处。
func StatusAfterStep(result StepResult, hasNext bool) WorkflowStatus {
	switch result {
	case ResultApproved:
		if hasNext {
			return StatusInReview
		}
		return StatusApproved
	case ResultRejected:
		return StatusRejected
	case ResultChangesRequested:
		return StatusChangesRequested
	case ResultEscalated:
		return StatusEscalated
	case ResultCancelled:
		return StatusCancelled
	}
	return StatusInReview
}
