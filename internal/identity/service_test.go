package identity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func setupIdentityTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:identity_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("打开 sqlite 失败: %v", err)
	}
	if err := db.AutoMigrate(&User{}, &UserRole{}); err != nil {
		t.Fatalf("迁移 schema 失败: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string, active bool) *User {
	t.Helper()
	user := &User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Active:       active,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	return user
}

func TestGrantAndRevokeRole(t *testing.T) {
	ctx := context.Background()
	db := setupIdentityTestDB(t)
	svc := NewService(db)
	user := createTestUser(t, db, "reviewer_zhang", true)

	if err := svc.GrantRole(ctx, user.ID, "content_reviewer", "admin-1"); err != nil {
		t.Fatalf("授予角色失败: %v", err)
	}
	// 重复授予为空操作
	if err := svc.GrantRole(ctx, user.ID, "content_reviewer", "admin-1"); err != nil {
		t.Fatalf("重复授予应成功: %v", err)
	}
	if err := svc.GrantRole(ctx, user.ID, "senior_reviewer", "admin-1"); err != nil {
		t.Fatalf("授予第二个角色失败: %v", err)
	}

	roles, err := svc.RolesOf(ctx, user.ID)
	if err != nil {
		t.Fatalf("查询角色失败: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("应有两个角色, 实际 %v", roles)
	}

	if err := svc.RevokeRole(ctx, user.ID, "content_reviewer"); err != nil {
		t.Fatalf("撤销角色失败: %v", err)
	}
	roles, _ = svc.RolesOf(ctx, user.ID)
	if len(roles) != 1 || roles[0] != "senior_reviewer" {
		t.Fatalf("撤销后角色不正确: %v", roles)
	}
}

func TestUsersWithRoleSkipsInactive(t *testing.T) {
	ctx := context.Background()
	db := setupIdentityTestDB(t)
	svc := NewService(db)

	active := createTestUser(t, db, "reviewer_li", true)
	inactive := createTestUser(t, db, "reviewer_wang", false)

	if err := svc.GrantRole(ctx, active.ID, "content_reviewer", "admin-1"); err != nil {
		t.Fatalf("授予角色失败: %v", err)
	}
	if err := svc.GrantRole(ctx, inactive.ID, "content_reviewer", "admin-1"); err != nil {
		t.Fatalf("授予角色失败: %v", err)
	}

	users, err := svc.UsersWithRole(ctx, "content_reviewer")
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(users) != 1 || users[0] != active.ID {
		t.Fatalf("只应返回激活用户, 实际 %v", users)
	}
}
