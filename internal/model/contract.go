package model

import "github.com/lib/pq"

// Contract 合同（租户/计费主体）
// 一个合同拥有若干店铺，通过席位向用户授权
type Contract struct {
	BaseModel
	AuditMixin
	Name         string `gorm:"size:100;not null"`
	BillingEmail string `gorm:"size:100"`

	// 所有者，建合同时确定，同时写入一条 owner 席位
	OwnerUserID int64 `gorm:"index;not null"`

	// 店铺计数与套餐上限
	StoreCount int `gorm:"default:0"`
	MaxStores  int `gorm:"default:10"`
	MaxUsers   int `gorm:"default:20"`

	// 套餐开通的功能开关
	FeatureFlags pq.StringArray `gorm:"type:text[]"`

	// 关联关系
	Owner  *SysUser       `gorm:"foreignKey:OwnerUserID"`
	Stores []Store        `gorm:"foreignKey:ContractID"`
	Seats  []ContractSeat `gorm:"foreignKey:ContractID"`
}

func (Contract) TableName() string {
	return "contracts"
}
