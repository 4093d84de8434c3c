package workflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupWorkflowTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:workflow_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("打开 sqlite 失败: %v", err)
	}
	if err := db.AutoMigrate(&WorkflowInstance{}, &StepRecord{}, &Notification{}); err != nil {
		t.Fatalf("迁移 schema 失败: %v", err)
	}
	return db
}

// stubDirectory 角色目录桩实现
type stubDirectory struct {
	roles map[string][]string
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{roles: map[string][]string{
		"submitter-1": {},
		"reviewer-1":  {RoleContentReviewer},
		"reviewer-2":  {RoleEducationSpecialist},
		"reviewer-3":  {RoleEditorialReviewer},
		"senior-1":    {RoleSeniorReviewer},
		"assess-1":    {RoleAssessmentReviewer},
		"admin-1":     {RoleAdmin},
	}}
}

func (d *stubDirectory) RolesOf(_ context.Context, userID string) ([]string, error) {
	return d.roles[userID], nil
}

func (d *stubDirectory) UsersWithRole(_ context.Context, role string) ([]string, error) {
	var users []string
	for userID, roles := range d.roles {
		for _, r := range roles {
			if r == role {
				users = append(users, userID)
			}
		}
	}
	return users, nil
}

func sampleSubmitRequest(contentType ContentType) *SubmitContentRequest {
	return &SubmitContentRequest{
		ContentID:   fmt.Sprintf("content-%d", time.Now().UnixNano()),
		ContentType: contentType,
		Metadata: Metadata{
			Title:       "四级核心词汇 Unit 1",
			Description: "大学英语四级高频词 200 个",
		},
		Priority: PriorityMedium,
	}
}

func newTestManager(t *testing.T) (*Manager, *gorm.DB) {
	t.Helper()
	db := setupWorkflowTestDB(t)
	manager := NewManager(db, NewRegistry(), newStubDirectory())
	return manager, db
}
