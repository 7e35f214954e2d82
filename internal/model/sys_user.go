package model

import "time"

// SysUser 平台用户账号
type SysUser struct {
	BaseModel
	AuditMixin
	// 基础信息
	Email    string `gorm:"size:100;uniqueIndex;not null"`
	Username string `gorm:"size:100"`
	Password string `gorm:"size:255"` // 哈希密码；受邀未激活的用户此字段为空

	// 平台级超管，跳过所有租户内权限检查
	// 注意区分：这是平台层面的标记，合同内的角色在 ContractSeat 里
	IsSuperuser bool `gorm:"default:false"`

	// 是否已完成激活（邮箱验证流程在本仓库之外）
	IsActive bool `gorm:"default:true"`

	LastLoginAt *time.Time

	// 用户在各合同下的席位
	Seats []ContractSeat `gorm:"foreignKey:SysUserID"`
}

func (SysUser) TableName() string {
	return "sys_users"
}
