package model

import (
	"time"

	"gorm.io/datatypes"
)

// Token 状态常量
const (
	TokenStatusValid   = "valid"        // 有效
	TokenStatusExpired = "expired"      // 已过期
	TokenStatusInvalid = "auth_invalid" // 需重新授权
)

// Store 店铺（被管理的营销资源）
// 归属且仅归属一个合同，合同归属创建后不可变更
type Store struct {
	BaseModel
	AuditMixin
	// 对外暴露的稳定 ID（uuid），请求一律用它定位店铺
	ExternalID string `gorm:"size:36;uniqueIndex;not null"`
	Name       string `gorm:"size:100;not null"`

	// 归属合同
	ContractID int64     `gorm:"index;not null"`
	Contract   *Contract `gorm:"foreignKey:ContractID"`

	// 第三方邮件平台绑定信息（平台侧 shop/list id 等）
	Platform    string            `gorm:"size:30;default:'mailsend'"`
	Integration datatypes.JSONMap `gorm:"type:jsonb"`

	// 平台 API Token，周期性检测是否过期
	TokenStatus    string `gorm:"index;size:20;default:'auth_invalid'"`
	AccessToken    string `gorm:"size:255"`
	RefreshToken   string `gorm:"size:255"`
	TokenExpiresAt time.Time

	// 软删除标记
	// 注意：店铺删除不走 gorm 的 DeletedAt，显式打标并级联清理席位引用
	IsActive      bool       `gorm:"default:true"`
	IsDeleted     bool       `gorm:"index;default:false"`
	DeletedFlagAt *time.Time `gorm:"comment:打删除标记的时间"`
}

func (Store) TableName() string {
	return "stores"
}
