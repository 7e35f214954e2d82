package model

import (
	"time"

	"gorm.io/gorm"
)

type BaseModel struct {
	ID        int64          `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// AuditMixin 审计字段 (只记录，不参与权限判断)
type AuditMixin struct {
	CreatedBy int64 `gorm:"index"`     // 创建人的 SysUserID
	UpdatedBy int64 `gorm:"index"`     // 最后修改人的 SysUserID
	DeletedBy int64 `gorm:"default:0"` // 删除人的 SysUserID
}
