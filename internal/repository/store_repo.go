package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"mktops_dev_v1_202609/internal/model"
)

// ==================== StoreRepository 店铺仓库 ====================

// StoreRepository 店铺仓库接口
type StoreRepository interface {
	Create(ctx context.Context, store *model.Store) error
	GetByID(ctx context.Context, id int64) (*model.Store, error)
	// GetByExternalID 只返回未删除的店铺
	GetByExternalID(ctx context.Context, externalID string) (*model.Store, error)
	ListByContract(ctx context.Context, contractID int64) ([]model.Store, error)
	CountLiveByContract(ctx context.Context, contractID int64) (int64, error)
	Update(ctx context.Context, store *model.Store) error
	// MarkDeleted 打软删除标记，已删除的店铺重复打标是空操作
	MarkDeleted(ctx context.Context, storeID int64, deletedBy int64) error
	UpdateToken(ctx context.Context, storeID int64, accessToken, refreshToken, status string, expiresAt time.Time) error
	FindExpiringTokens(ctx context.Context, before time.Time) ([]model.Store, error)
}

type storeRepository struct {
	db *gorm.DB
}

// NewStoreRepository 创建店铺仓库
func NewStoreRepository(db *gorm.DB) StoreRepository {
	return &storeRepository{db: db}
}

// Create 创建店铺
func (r *storeRepository) Create(ctx context.Context, store *model.Store) error {
	return r.db.WithContext(ctx).Create(store).Error
}

// GetByID 根据主键获取店铺（含已删除）
func (r *storeRepository) GetByID(ctx context.Context, id int64) (*model.Store, error) {
	var store model.Store
	err := r.db.WithContext(ctx).First(&store, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &store, err
}

// GetByExternalID 根据对外 ID 获取未删除的店铺
func (r *storeRepository) GetByExternalID(ctx context.Context, externalID string) (*model.Store, error) {
	var store model.Store
	err := r.db.WithContext(ctx).
		Where("external_id = ? AND is_deleted = ?", externalID, false).
		First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &store, err
}

// ListByContract 合同下未删除的店铺列表
func (r *storeRepository) ListByContract(ctx context.Context, contractID int64) ([]model.Store, error) {
	var stores []model.Store
	err := r.db.WithContext(ctx).
		Where("contract_id = ? AND is_deleted = ?", contractID, false).
		Order("id ASC").
		Find(&stores).Error
	return stores, err
}

// CountLiveByContract 合同下存活店铺数
func (r *storeRepository) CountLiveByContract(ctx context.Context, contractID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Store{}).
		Where("contract_id = ? AND is_deleted = ?", contractID, false).
		Count(&count).Error
	return count, err
}

// Update 更新店铺
func (r *storeRepository) Update(ctx context.Context, store *model.Store) error {
	return r.db.WithContext(ctx).Save(store).Error
}

// MarkDeleted 打软删除标记
// WHERE is_deleted = false 保证重复执行不覆盖首次的删除时间
func (r *storeRepository) MarkDeleted(ctx context.Context, storeID int64, deletedBy int64) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&model.Store{}).
		Where("id = ? AND is_deleted = ?", storeID, false).
		Updates(map[string]interface{}{
			"is_active":       false,
			"is_deleted":      true,
			"deleted_flag_at": &now,
			"deleted_by":      deletedBy,
		}).Error
}

// UpdateToken 更新平台 Token
func (r *storeRepository) UpdateToken(ctx context.Context, storeID int64, accessToken, refreshToken, status string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Store{}).
		Where("id = ?", storeID).
		Updates(map[string]interface{}{
			"access_token":     accessToken,
			"refresh_token":    refreshToken,
			"token_status":     status,
			"token_expires_at": expiresAt,
		}).Error
}

// FindExpiringTokens 查询 Token 即将过期的存活店铺
func (r *storeRepository) FindExpiringTokens(ctx context.Context, before time.Time) ([]model.Store, error) {
	var stores []model.Store
	err := r.db.WithContext(ctx).
		Where("is_deleted = ? AND is_active = ? AND token_status <> ? AND token_expires_at < ?",
			false, true, model.TokenStatusInvalid, before).
		Find(&stores).Error
	return stores, err
}
