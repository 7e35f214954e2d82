package repository

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mktops_dev_v1_202609/internal/model"
)

// ErrSeatExists 违反 (sys_user_id, contract_id) 唯一约束
// 并发邀请时两个请求都可能通过应用层检查，靠数据库唯一索引兜底，
// 撞到约束的一方拿到这个错误
var ErrSeatExists = errors.New("席位已存在 (user, contract 唯一约束冲突)")

// ==================== SeatRepository 席位仓库 ====================

// SeatRepository 席位仓库接口
type SeatRepository interface {
	Create(ctx context.Context, seat *model.ContractSeat) error
	GetByID(ctx context.Context, id int64) (*model.ContractSeat, error)
	GetByUserAndContract(ctx context.Context, userID, contractID int64) (*model.ContractSeat, error)
	GetActiveByUserAndContract(ctx context.Context, userID, contractID int64) (*model.ContractSeat, error)
	GetByInvitationToken(ctx context.Context, token string) (*model.ContractSeat, error)
	ListByContract(ctx context.Context, contractID int64) ([]model.ContractSeat, error)
	// ListByStoreTagKey 反查旧版标签中含指定店铺键的席位（不限合同）
	ListByStoreTagKey(ctx context.Context, key string) ([]model.ContractSeat, error)
	CountOccupiedByContract(ctx context.Context, contractID int64) (int64, error)
	Update(ctx context.Context, seat *model.ContractSeat) error
	// ReplaceStoreRefs 整列替换单个席位的覆盖列表与旧版标签（单行原子写）
	ReplaceStoreRefs(ctx context.Context, seatID int64, access model.StoreAccessList, tags map[string]interface{}) error
}

type seatRepository struct {
	db *gorm.DB
}

// NewSeatRepository 创建席位仓库
func NewSeatRepository(db *gorm.DB) SeatRepository {
	return &seatRepository{db: db}
}

// Create 创建席位
func (r *seatRepository) Create(ctx context.Context, seat *model.ContractSeat) error {
	err := r.db.WithContext(ctx).Create(seat).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSeatExists
	}
	return err
}

// GetByID 根据 ID 获取席位（带默认角色）
func (r *seatRepository) GetByID(ctx context.Context, id int64) (*model.ContractSeat, error) {
	var seat model.ContractSeat
	err := r.db.WithContext(ctx).
		Preload("DefaultRole").
		First(&seat, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &seat, err
}

// GetByUserAndContract 获取用户在合同下的席位（不限状态）
func (r *seatRepository) GetByUserAndContract(ctx context.Context, userID, contractID int64) (*model.ContractSeat, error) {
	var seat model.ContractSeat
	err := r.db.WithContext(ctx).
		Preload("DefaultRole").
		Where("sys_user_id = ? AND contract_id = ?", userID, contractID).
		First(&seat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &seat, err
}

// GetActiveByUserAndContract 获取用户在合同下 active 状态的席位
func (r *seatRepository) GetActiveByUserAndContract(ctx context.Context, userID, contractID int64) (*model.ContractSeat, error) {
	var seat model.ContractSeat
	err := r.db.WithContext(ctx).
		Preload("DefaultRole").
		Where("sys_user_id = ? AND contract_id = ? AND status = ?",
			userID, contractID, model.SeatStatusActive).
		First(&seat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &seat, err
}

// GetByInvitationToken 根据邀请令牌获取席位
func (r *seatRepository) GetByInvitationToken(ctx context.Context, token string) (*model.ContractSeat, error) {
	if token == "" {
		return nil, nil
	}
	var seat model.ContractSeat
	err := r.db.WithContext(ctx).
		Preload("DefaultRole").
		Where("invitation_token = ?", token).
		First(&seat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &seat, err
}

// ListByContract 合同下全部席位（带用户和默认角色）
func (r *seatRepository) ListByContract(ctx context.Context, contractID int64) ([]model.ContractSeat, error) {
	var seats []model.ContractSeat
	err := r.db.WithContext(ctx).
		Preload("SysUser").
		Preload("DefaultRole").
		Where("contract_id = ?", contractID).
		Order("id ASC").
		Find(&seats).Error
	return seats, err
}

// ListByStoreTagKey 反查旧版标签中含指定店铺键的席位
// 历史数据里标签可能挂在任意合同的席位上，店铺删除级联用它做全库兜底
func (r *seatRepository) ListByStoreTagKey(ctx context.Context, key string) ([]model.ContractSeat, error) {
	var seats []model.ContractSeat
	err := r.db.WithContext(ctx).
		Where(datatypes.JSONQuery("store_tags").HasKey(key)).
		Order("id ASC").
		Find(&seats).Error
	return seats, err
}

// CountOccupiedByContract 合同下占用名额的席位数 (pending + active + suspended)
// revoked 是终态，不再占名额
func (r *seatRepository) CountOccupiedByContract(ctx context.Context, contractID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ContractSeat{}).
		Where("contract_id = ? AND status <> ?", contractID, model.SeatStatusRevoked).
		Count(&count).Error
	return count, err
}

// Update 更新席位
// Omit 关联对象，避免 Save 连带回写 Preload 进来的角色
func (r *seatRepository) Update(ctx context.Context, seat *model.ContractSeat) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(seat).Error
}

// ReplaceStoreRefs 整列替换覆盖列表与旧版标签
func (r *seatRepository) ReplaceStoreRefs(ctx context.Context, seatID int64, access model.StoreAccessList, tags map[string]interface{}) error {
	if access == nil {
		access = model.StoreAccessList{}
	}
	accessRaw, err := json.Marshal(access)
	if err != nil {
		return err
	}
	tagsRaw, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&model.ContractSeat{}).
		Where("id = ?", seatID).
		Updates(map[string]interface{}{
			"store_access": datatypes.JSON(accessRaw),
			"store_tags":   datatypes.JSON(tagsRaw),
		}).Error
}
