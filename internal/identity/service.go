package identity

import (
	"context"
	"time"

	"backend/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service 用户角色目录服务，为审批引擎提供角色查询
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService 创建角色目录服务
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:     db,
		logger: logger.Get(),
	}
}

// RolesOf 返回用户持有的全部角色
func (s *Service) RolesOf(ctx context.Context, userID string) ([]string, error) {
	var roles []string
	err := s.db.WithContext(ctx).Model(&UserRole{}).
		Where("user_id = ?", userID).
		Pluck("role", &roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// UsersWithRole 返回持有指定角色且处于激活状态的用户ID
func (s *Service) UsersWithRole(ctx context.Context, role string) ([]string, error) {
	var userIDs []string
	err := s.db.WithContext(ctx).Model(&UserRole{}).
		Joins("JOIN users ON users.id = user_roles.user_id AND users.active = ?", true).
		Where("user_roles.role = ?", role).
		Pluck("user_roles.user_id", &userIDs).Error
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}

// GrantRole 为用户授予角色，重复授予为空操作
func (s *Service) GrantRole(ctx context.Context, userID, role, grantedBy string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&UserRole{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	grant := &UserRole{
		ID:        uuid.New().String(),
		UserID:    userID,
		Role:      role,
		GrantedBy: grantedBy,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(grant).Error; err != nil {
		return err
	}
	s.logger.Info("角色已授予",
		zap.String("user_id", userID),
		zap.String("role", role))
	return nil
}

// RevokeRole 撤销用户角色
func (s *Service) RevokeRole(ctx context.Context, userID, role string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		Delete(&UserRole{}).Error
}
