package workflow

import (
	"context"
	"strings"
	"testing"
	"time"
)

func newTestScheduler(t *testing.T) (*Scheduler, *Manager) {
	t.Helper()
	db := setupWorkflowTestDB(t)
	roles := newStubDirectory()
	manager := NewManager(db, NewRegistry(), roles)
	return NewScheduler(db, manager, roles), manager
}

func submitWithPriority(t *testing.T, manager *Manager, priority Priority) *WorkflowInstance {
	t.Helper()
	req := sampleSubmitRequest(ContentTypeVocabulary)
	req.Priority = priority
	instance, err := manager.SubmitContent(context.Background(), "submitter-1", req)
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	// 保证 started_at 单调递增，排序断言稳定
	time.Sleep(2 * time.Millisecond)
	return instance
}

func TestGetPendingReviewsOrdering(t *testing.T) {
	ctx := context.Background()
	scheduler, manager := newTestScheduler(t)

	low := submitWithPriority(t, manager, PriorityLow)
	urgentOld := submitWithPriority(t, manager, PriorityUrgent)
	high := submitWithPriority(t, manager, PriorityHigh)
	urgentNew := submitWithPriority(t, manager, PriorityUrgent)

	queue, err := scheduler.GetPendingReviews(ctx, "reviewer-1", nil)
	if err != nil {
		t.Fatalf("查询待审队列失败: %v", err)
	}
	if len(queue) != 4 {
		t.Fatalf("队列应有四条, 实际 %d", len(queue))
	}

	// 优先级降序，同级新提交在前
	expected := []string{urgentNew.ID, urgentOld.ID, high.ID, low.ID}
	for i, want := range expected {
		if queue[i].ID != want {
			t.Fatalf("第 %d 位应为 %s, 实际 %s", i, want, queue[i].ID)
		}
	}
}

func TestGetPendingReviewsScopedByRole(t *testing.T) {
	ctx := context.Background()
	scheduler, manager := newTestScheduler(t)

	submitWithPriority(t, manager, PriorityMedium)

	// 教学专家此刻无初审任务
	queue, err := scheduler.GetPendingReviews(ctx, "reviewer-2", nil)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(queue) != 0 {
		t.Fatalf("角色不匹配时队列应为空, 实际 %d", len(queue))
	}

	// 无任何角色的用户得到空队列
	queue, err = scheduler.GetPendingReviews(ctx, "submitter-1", nil)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(queue) != 0 {
		t.Fatalf("无角色用户队列应为空, 实际 %d", len(queue))
	}
}

func TestGetPendingReviewsStatusScope(t *testing.T) {
	ctx := context.Background()
	scheduler, manager := newTestScheduler(t)

	escalated := submitWithPriority(t, manager, PriorityMedium)
	rejected := submitWithPriority(t, manager, PriorityMedium)

	if _, err := manager.ExecuteApprovalAction(ctx, &ApprovalActionRequest{
		InstanceID: escalated.ID,
		StepID:     "vocab_content_review",
		ReviewerID: "reviewer-1",
		Action:     ActionEscalate,
	}); err != nil {
		t.Fatalf("升级失败: %v", err)
	}
	if _, err := manager.ExecuteApprovalAction(ctx, &ApprovalActionRequest{
		InstanceID: rejected.ID,
		StepID:     "vocab_content_review",
		ReviewerID: "reviewer-1",
		Action:     ActionReject,
	}); err != nil {
		t.Fatalf("拒绝失败: %v", err)
	}

	// 升级中的实例进入资深审核队列
	queue, err := scheduler.GetPendingReviews(ctx, "senior-1", nil)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(queue) != 1 || queue[0].ID != escalated.ID {
		t.Fatalf("资深审核队列应只含升级实例: %+v", queue)
	}
	if queue[0].CurrentStatus != StatusEscalated {
		t.Fatalf("队列实例状态应为 escalated, 实际 %s", queue[0].CurrentStatus)
	}

	// 初审人队列不再包含已升级或已拒绝的实例
	queue, err = scheduler.GetPendingReviews(ctx, "reviewer-1", nil)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(queue) != 0 {
		t.Fatalf("初审队列应为空, 实际 %d", len(queue))
	}
}

func TestGetPendingReviewsFilters(t *testing.T) {
	ctx := context.Background()
	scheduler, manager := newTestScheduler(t)

	submitWithPriority(t, manager, PriorityUrgent)
	req := sampleSubmitRequest(ContentTypeStory)
	req.Priority = PriorityLow
	if _, err := manager.SubmitContent(ctx, "submitter-1", req); err != nil {
		t.Fatalf("提交失败: %v", err)
	}

	queue, err := scheduler.GetPendingReviews(ctx, "reviewer-1", &PendingReviewFilter{ContentType: ContentTypeStory})
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(queue) != 1 || queue[0].ContentType != ContentTypeStory {
		t.Fatalf("类型过滤结果不正确: %+v", queue)
	}

	queue, err = scheduler.GetPendingReviews(ctx, "reviewer-1", &PendingReviewFilter{Priority: PriorityUrgent})
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(queue) != 1 || queue[0].Priority != PriorityUrgent {
		t.Fatalf("优先级过滤结果不正确: %+v", queue)
	}
}

func TestBulkApprovePerItemIsolation(t *testing.T) {
	ctx := context.Background()
	scheduler, manager := newTestScheduler(t)

	a := submitWithPriority(t, manager, PriorityMedium)
	b := submitWithPriority(t, manager, PriorityMedium)

	// b 先被单独拒绝，批量时对它的动作会失败
	if _, err := manager.ExecuteApprovalAction(ctx, &ApprovalActionRequest{
		InstanceID: b.ID,
		StepID:     "vocab_content_review",
		ReviewerID: "reviewer-1",
		Action:     ActionReject,
	}); err != nil {
		t.Fatalf("预置拒绝失败: %v", err)
	}

	result, err := scheduler.BulkApprove(ctx, "reviewer-1", &BulkApproveRequest{
		InstanceIDs: []string{a.ID, b.ID, "no-such-id"},
		Action:      ActionApprove,
		Comments:    "批量初审通过",
	})
	if err != nil {
		t.Fatalf("批量审批失败: %v", err)
	}
	if result.Successful != 1 {
		t.Fatalf("应成功一条, 实际 %d", result.Successful)
	}
	if result.Failed != 2 {
		t.Fatalf("应失败两条, 实际 %d", result.Failed)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("错误列表应有两条, 实际 %+v", result.Errors)
	}
	for _, msg := range result.Errors {
		if !strings.Contains(msg, "实例 ") {
			t.Fatalf("错误信息应标注实例: %s", msg)
		}
	}

	// a 已推进到第二级
	updated, err := manager.GetInstance(ctx, a.ID)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if *updated.CurrentStepID != "vocab_education_review" {
		t.Fatalf("成功项应已推进, 实际 %s", *updated.CurrentStepID)
	}
}

func TestBulkApproveValidation(t *testing.T) {
	ctx := context.Background()
	scheduler, _ := newTestScheduler(t)

	if _, err := scheduler.BulkApprove(ctx, "reviewer-1", &BulkApproveRequest{
		InstanceIDs: []string{},
		Action:      ActionApprove,
	}); !IsCode(err, CodeValidation) {
		t.Fatalf("空列表应返回校验错误, 实际 %v", err)
	}

	if _, err := scheduler.BulkApprove(ctx, "reviewer-1", &BulkApproveRequest{
		InstanceIDs: []string{"x"},
		Action:      ApprovalAction("ship"),
	}); !IsCode(err, CodeValidation) {
		t.Fatalf("非法动作应返回校验错误, 实际 %v", err)
	}
}
