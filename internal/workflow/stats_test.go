package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeProgress(t *testing.T) {
	def := &Definition{
		ContentType: ContentTypeStory,
		Steps: []StepTemplate{
			{ID: "s1", EstimatedDuration: time.Hour},
			{ID: "s2", EstimatedDuration: 2 * time.Hour},
			{ID: "s3", EstimatedDuration: time.Hour},
		},
	}

	// 无步骤：0%
	empty := &WorkflowInstance{}
	p := ComputeProgress(empty, def)
	assert.Equal(t, 0, p.ProgressPercentage)
	assert.Equal(t, 0, p.TotalSteps)

	// 三步完成一步，第二步进行中：round(1/2*...) -> 1/2 已有记录
	now := time.Now()
	instance := &WorkflowInstance{
		StepHistory: []StepRecord{
			{StepID: "s1", TemplateIndex: 0, Status: StepCompleted},
			{StepID: "s2", TemplateIndex: 1, Status: StepInProgress, StartedAt: now},
		},
	}
	p = ComputeProgress(instance, def)
	assert.Equal(t, 2, p.TotalSteps)
	assert.Equal(t, 1, p.CompletedSteps)
	assert.Equal(t, 50, p.ProgressPercentage)
	if assert.NotNil(t, p.EstimatedSecondsRemaining) {
		// 实例无预计完成时间，剩余退化为模板估算 = s2 的 2h + s3 的 1h
		assert.InDelta(t, (3 * time.Hour).Seconds(), float64(*p.EstimatedSecondsRemaining), 60)
	}

	// 实例带预计完成时间：剩余以该时间为准，不再按模板累计
	future := now.Add(30 * time.Minute)
	instance.EstimatedCompletionAt = &future
	p = ComputeProgress(instance, def)
	if assert.NotNil(t, p.EstimatedSecondsRemaining) {
		assert.InDelta(t, (30 * time.Minute).Seconds(), float64(*p.EstimatedSecondsRemaining), 60)
	}

	// 预计完成时间已过期：剩余钳制为 0，而不是模板估算的数小时
	past := now.Add(-time.Hour)
	instance.EstimatedCompletionAt = &past
	p = ComputeProgress(instance, def)
	if assert.NotNil(t, p.EstimatedSecondsRemaining) {
		assert.Equal(t, int64(0), *p.EstimatedSecondsRemaining)
	}

	// 全部完成：100%，无剩余估算
	instance = &WorkflowInstance{
		StepHistory: []StepRecord{
			{StepID: "s1", TemplateIndex: 0, Status: StepCompleted},
			{StepID: "s2", TemplateIndex: 1, Status: StepCompleted},
			{StepID: "s3", TemplateIndex: 2, Status: StepCompleted},
		},
	}
	p = ComputeProgress(instance, def)
	assert.Equal(t, 100, p.ProgressPercentage)
	assert.Nil(t, p.EstimatedSecondsRemaining)

	// 三分之一完成：round(33.33) = 33
	instance = &WorkflowInstance{
		StepHistory: []StepRecord{
			{StepID: "s1", TemplateIndex: 0, Status: StepCompleted},
			{StepID: "s2", TemplateIndex: 1, Status: StepInProgress, StartedAt: now},
			{StepID: "s2b", TemplateIndex: 1, Status: StepPending},
		},
	}
	p = ComputeProgress(instance, def)
	assert.Equal(t, 33, p.ProgressPercentage)
}

func TestGetStatistics(t *testing.T) {
	ctx := context.Background()
	db := setupWorkflowTestDB(t)
	roles := newStubDirectory()
	manager := NewManager(db, NewRegistry(), roles)
	stats := NewStats(db, nil)

	if _, err := manager.SubmitContent(ctx, "submitter-1", sampleSubmitRequest(ContentTypeVocabulary)); err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	story, err := manager.SubmitContent(ctx, "submitter-1", sampleSubmitRequest(ContentTypeStory))
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	if _, err := manager.ExecuteApprovalAction(ctx, &ApprovalActionRequest{
		InstanceID: story.ID,
		StepID:     "story_content_review",
		ReviewerID: "reviewer-1",
		Action:     ActionReject,
	}); err != nil {
		t.Fatalf("拒绝失败: %v", err)
	}

	result, err := stats.GetStatistics(ctx)
	if err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("总数应为 2, 实际 %d", result.Total)
	}
	if result.ByStatus[StatusInReview] != 1 || result.ByStatus[StatusRejected] != 1 {
		t.Fatalf("状态分布不正确: %+v", result.ByStatus)
	}
	if result.ByContentType[ContentTypeVocabulary] != 1 || result.ByContentType[ContentTypeStory] != 1 {
		t.Fatalf("类型分布不正确: %+v", result.ByContentType)
	}
}

func TestGetInstanceProgressFromStore(t *testing.T) {
	ctx := context.Background()
	db := setupWorkflowTestDB(t)
	roles := newStubDirectory()
	registry := NewRegistry()
	manager := NewManager(db, registry, roles)
	stats := NewStats(db, nil)

	instance, err := manager.SubmitContent(ctx, "submitter-1", sampleSubmitRequest(ContentTypeVocabulary))
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}

	p, err := stats.GetInstanceProgress(ctx, manager, registry, instance.ID)
	if err != nil {
		t.Fatalf("查询进度失败: %v", err)
	}
	if p.TotalSteps != 1 || p.CompletedSteps != 0 || p.ProgressPercentage != 0 {
		t.Fatalf("初始进度不正确: %+v", p)
	}
}
