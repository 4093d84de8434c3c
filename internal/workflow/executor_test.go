package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide_ApproveAdvances(t *testing.T) {
	tpl := &StepTemplate{ID: "s1", RequiredRole: RoleContentReviewer}

	d, err := Decide(tpl, true, ActionApprove, nil)
	assert.NoError(t, err)
	assert.Equal(t, ResultApproved, d.Result)
	assert.Equal(t, StatusInReview, d.Status)
	assert.True(t, d.Advance)
	assert.False(t, d.Escalate)
	assert.False(t, d.AutoApproved)
}

func TestDecide_ApproveLastStepTerminates(t *testing.T) {
	tpl := &StepTemplate{ID: "s2", RequiredRole: RoleEducationSpecialist}

	d, err := Decide(tpl, false, ActionApprove, nil)
	assert.NoError(t, err)
	assert.Equal(t, StatusApproved, d.Status)
	assert.False(t, d.Advance)
}

func TestDecide_RejectAndRequestChangesAreTerminal(t *testing.T) {
	tpl := &StepTemplate{ID: "s1"}

	d, err := Decide(tpl, true, ActionReject, nil)
	assert.NoError(t, err)
	assert.Equal(t, StatusRejected, d.Status)
	assert.False(t, d.Advance)

	d, err = Decide(tpl, true, ActionRequestChanges, nil)
	assert.NoError(t, err)
	assert.Equal(t, StatusChangesRequested, d.Status)
	assert.True(t, d.Status.Terminal())
}

func TestDecide_Escalate(t *testing.T) {
	tpl := &StepTemplate{ID: "s1"}

	d, err := Decide(tpl, true, ActionEscalate, nil)
	assert.NoError(t, err)
	assert.Equal(t, StatusEscalated, d.Status)
	assert.True(t, d.Escalate)
	assert.False(t, d.Status.Terminal())
}

func TestDecide_UnknownActionRejected(t *testing.T) {
	tpl := &StepTemplate{ID: "s1"}

	_, err := Decide(tpl, true, ApprovalAction("publish"), nil)
	assert.Error(t, err)
	assert.True(t, IsCode(err, CodeValidation))
}

func TestDecide_ScoreRangeValidated(t *testing.T) {
	tpl := &StepTemplate{ID: "s1"}
	bad := 120.0

	_, err := Decide(tpl, true, ActionApprove, &bad)
	assert.True(t, IsCode(err, CodeValidation))
}

func TestResolveAction_ScoreFastPath(t *testing.T) {
	threshold := 70.0
	tpl := &StepTemplate{ID: "s1", AutoApproveScore: &threshold}

	// 达线（含）强制通过
	score := 70.0
	action, auto := ResolveAction(tpl, ActionReject, &score)
	assert.Equal(t, ActionApprove, action)
	assert.True(t, auto)

	// 达线且本就 approve：不算自动通过
	action, auto = ResolveAction(tpl, ActionApprove, &score)
	assert.Equal(t, ActionApprove, action)
	assert.False(t, auto)

	// 未达线：保持原动作
	low := 69.9
	action, auto = ResolveAction(tpl, ActionReject, &low)
	assert.Equal(t, ActionReject, action)
	assert.False(t, auto)

	// 无分数线的步骤不受影响
	plain := &StepTemplate{ID: "s2"}
	action, auto = ResolveAction(plain, ActionEscalate, &score)
	assert.Equal(t, ActionEscalate, action)
	assert.False(t, auto)
}

func TestDecide_ScoreFastPathOverridesEscalate(t *testing.T) {
	threshold := 85.0
	tpl := &StepTemplate{ID: "s1", AutoApproveScore: &threshold}
	score := 90.0

	d, err := Decide(tpl, true, ActionEscalate, &score)
	assert.NoError(t, err)
	assert.Equal(t, ResultApproved, d.Result)
	assert.True(t, d.Advance)
	assert.True(t, d.AutoApproved)
}

func TestStatusAfterStep(t *testing.T) {
	assert.Equal(t, StatusInReview, StatusAfterStep(ResultApproved, true))
	assert.Equal(t, StatusApproved, StatusAfterStep(ResultApproved, false))
	assert.Equal(t, StatusRejected, StatusAfterStep(ResultRejected, false))
	assert.Equal(t, StatusChangesRequested, StatusAfterStep(ResultChangesRequested, true))
	assert.Equal(t, StatusEscalated, StatusAfterStep(ResultEscalated, true))
	assert.Equal(t, StatusCancelled, StatusAfterStep(ResultCancelled, true))
}

func TestPriorityRank(t *testing.T) {
	assert.Equal(t, 4, PriorityUrgent.Rank())
	assert.Equal(t, 3, PriorityHigh.Rank())
	assert.Equal(t, 2, PriorityMedium.Rank())
	assert.Equal(t, 1, PriorityLow.Rank())
	assert.Greater(t, PriorityUrgent.Rank(), PriorityHigh.Rank())
}
