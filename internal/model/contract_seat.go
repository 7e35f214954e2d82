package model

import (
	"time"

	"gorm.io/datatypes"
)

// 席位状态常量
const (
	SeatStatusPending   = "pending"   // 已邀请，等待激活
	SeatStatusActive    = "active"    // 正常
	SeatStatusSuspended = "suspended" // 已封停，可恢复
	SeatStatusRevoked   = "revoked"   // 已吊销，终态
)

// 访问范围常量
// 显式标记代替"空列表=全部"的旧约定：
// 清空 listed 列表表示收回全部店铺访问，而不是放开全部
const (
	ScopeAllStores = "all_stores" // 默认角色适用于合同下全部店铺
	ScopeListed    = "listed"     // 仅 StoreAccess 列出的店铺可访问
)

// StoreAccessEntry 单店铺角色覆盖
type StoreAccessEntry struct {
	StoreID int64 `json:"store_id"`
	RoleID  int64 `json:"role_id"`
}

// StoreAccessList 覆盖列表，整体存一列 jsonb
// 席位文档内嵌数组，更新时整列替换（单行原子写）
type StoreAccessList []StoreAccessEntry

// ContractSeat 席位：用户在一个合同内的成员资格
// 联合唯一索引保证一个用户在一个合同里只有一条席位记录，
// 并发邀请靠该约束兜底，不依赖应用层先查后插
type ContractSeat struct {
	BaseModel
	AuditMixin
	SysUserID  int64 `gorm:"index;uniqueIndex:idx_user_contract;not null"`
	ContractID int64 `gorm:"index;uniqueIndex:idx_user_contract;not null"`

	// 合同范围内的默认角色
	DefaultRoleID int64 `gorm:"not null"`

	// 访问范围 + 按店铺覆盖
	AccessScope string          `gorm:"size:20;default:'all_stores'"`
	StoreAccess StoreAccessList `gorm:"type:jsonb;serializer:json"`

	// 旧版按店铺打标数据（key 为店铺 ID 字符串）
	// 已废弃，裁决不再读取；店铺删除级联仍负责清理
	StoreTags datatypes.JSONMap `gorm:"type:jsonb"`

	// 生命周期
	Status          string `gorm:"size:20;index;default:'pending'"`
	InvitedBy       int64
	InvitationToken string `gorm:"size:36;index"`

	InvitationSentAt *time.Time
	ActivatedAt      *time.Time
	SuspendedAt      *time.Time
	SuspendedBy      int64
	RevokedAt        *time.Time
	RevokedBy        int64

	// 关联对象 (Belongs To)
	SysUser     *SysUser  `gorm:"foreignKey:SysUserID"`
	Contract    *Contract `gorm:"foreignKey:ContractID"`
	DefaultRole *Role     `gorm:"foreignKey:DefaultRoleID"`
}

func (ContractSeat) TableName() string {
	return "contract_seats"
}

// FindStoreAccess 在覆盖列表中查找指定店铺
func (s *ContractSeat) FindStoreAccess(storeID int64) (StoreAccessEntry, bool) {
	for _, e := range s.StoreAccess {
		if e.StoreID == storeID {
			return e, true
		}
	}
	return StoreAccessEntry{}, false
}

// RemoveStoreAccess 从覆盖列表中移除指定店铺，返回是否有变更
func (s *ContractSeat) RemoveStoreAccess(storeID int64) bool {
	kept := s.StoreAccess[:0]
	changed := false
	for _, e := range s.StoreAccess {
		if e.StoreID == storeID {
			changed = true
			continue
		}
		kept = append(kept, e)
	}
	if changed {
		s.StoreAccess = kept
	}
	return changed
}

// IsActiveSeat 席位当前是否可用
func (s *ContractSeat) IsActiveSeat() bool {
	return s.Status == SeatStatusActive
}
