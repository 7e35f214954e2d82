package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"mktops_dev_v1_202609/internal/model"
)

// ==================== ContractRepository 合同仓库 ====================

// ContractRepository 合同仓库接口
type ContractRepository interface {
	Create(ctx context.Context, contract *model.Contract) error
	GetByID(ctx context.Context, id int64) (*model.Contract, error)
	Update(ctx context.Context, contract *model.Contract) error
	RecountStores(ctx context.Context, contractID int64) error
}

type contractRepository struct {
	db *gorm.DB
}

// NewContractRepository 创建合同仓库
func NewContractRepository(db *gorm.DB) ContractRepository {
	return &contractRepository{db: db}
}

// Create 创建合同
func (r *contractRepository) Create(ctx context.Context, contract *model.Contract) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

// GetByID 根据 ID 获取合同
func (r *contractRepository) GetByID(ctx context.Context, id int64) (*model.Contract, error) {
	var contract model.Contract
	err := r.db.WithContext(ctx).First(&contract, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &contract, err
}

// Update 更新合同
func (r *contractRepository) Update(ctx context.Context, contract *model.Contract) error {
	return r.db.WithContext(ctx).Save(contract).Error
}

// RecountStores 重算合同下的存活店铺数
// 用重算代替自减：删除级联重跑时结果不变，天然幂等
func (r *contractRepository) RecountStores(ctx context.Context, contractID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Contract{}).
		Where("id = ?", contractID).
		Update("store_count", r.db.WithContext(ctx).
			Model(&model.Store{}).
			Select("COUNT(*)").
			Where("contract_id = ? AND is_deleted = ?", contractID, false),
		).Error
}
