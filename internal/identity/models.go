package identity

import (
	"time"
)

// User 平台用户（提交者与审核人共用同一用户表）
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:uuid"`
	Username     string    `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Email        string    `json:"email" gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	DisplayName  string    `json:"displayName" gorm:"size:100"`
	Active       bool      `json:"active" gorm:"default:true;index"`
	CreatedAt    time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// UserRole 用户角色授予记录，一个用户可持有多个审核角色
type UserRole struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    string    `json:"userId" gorm:"type:uuid;not null;index:idx_user_roles_user_role,unique"`
	Role      string    `json:"role" gorm:"size:50;not null;index:idx_user_roles_user_role,unique;index"`
	GrantedBy string    `json:"grantedBy" gorm:"type:uuid"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
}

// TableName 指定表名
func (UserRole) TableName() string {
	return "user_roles"
}
