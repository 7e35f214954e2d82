package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/google/uuid"

	"mktops_dev_v1_202609/internal/model"
	"mktops_dev_v1_202609/internal/repository"
)

// ==================== 错误定义 ====================

var (
	ErrStoreNotFound     = errors.New("店铺不存在")
	ErrStoreLimitReached = errors.New("合同店铺数已达上限")
)

// ==================== StoreService 店铺服务 ====================

// StoreService 店铺创建/查询 + 删除级联
type StoreService struct {
	storeRepo    repository.StoreRepository
	contractRepo repository.ContractRepository
	seatRepo     repository.SeatRepository
}

// NewStoreService 创建店铺服务
func NewStoreService(
	storeRepo repository.StoreRepository,
	contractRepo repository.ContractRepository,
	seatRepo repository.SeatRepository,
) *StoreService {
	return &StoreService{
		storeRepo:    storeRepo,
		contractRepo: contractRepo,
		seatRepo:     seatRepo,
	}
}

// CreateStoreReq 建店参数
type CreateStoreReq struct {
	Name        string
	Platform    string
	Integration map[string]interface{}
}

// Create 在合同下创建店铺
func (s *StoreService) Create(ctx context.Context, contractID int64, req CreateStoreReq, createdBy int64) (*model.Store, error) {
	contract, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("查询合同失败: %w", err)
	}
	if contract == nil {
		return nil, ErrContractNotFound
	}

	live, err := s.storeRepo.CountLiveByContract(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("统计店铺失败: %w", err)
	}
	if contract.MaxStores > 0 && live >= int64(contract.MaxStores) {
		return nil, ErrStoreLimitReached
	}

	store := &model.Store{
		ExternalID:  uuid.NewString(),
		Name:        req.Name,
		ContractID:  contractID,
		Platform:    req.Platform,
		Integration: req.Integration,
		TokenStatus: model.TokenStatusInvalid,
		IsActive:    true,
	}
	store.CreatedBy = createdBy
	if err := s.storeRepo.Create(ctx, store); err != nil {
		return nil, fmt.Errorf("创建店铺失败: %w", err)
	}

	if err := s.contractRepo.RecountStores(ctx, contractID); err != nil {
		// 计数失败不回滚店铺，下一次删除/创建的重算会修正
		log.Printf("[Store] 店铺计数更新失败 contract=%d: %v", contractID, err)
	}

	log.Printf("[Store] 创建成功 contract=%d store=%d external=%s", contractID, store.ID, store.ExternalID)
	return store, nil
}

// GetByExternalID 查询未删除的店铺
func (s *StoreService) GetByExternalID(ctx context.Context, externalID string) (*model.Store, error) {
	return s.storeRepo.GetByExternalID(ctx, externalID)
}

// ListByContract 合同下店铺列表
func (s *StoreService) ListByContract(ctx context.Context, contractID int64) ([]model.Store, error) {
	return s.storeRepo.ListByContract(ctx, contractID)
}

// ==================== 删除级联 ====================

// OnStoreDeleted 店铺软删除入口
// 没有跨文档事务可用，级联写成三个各自幂等、可独立重试的步骤：
//  1. 清理合同下每个席位对该店铺的覆盖条目和旧版标签（逐席位单行写，
//     已清理过的席位重跑是空操作）
//  2. 给店铺本体打删除标记（重复打标是空操作）
//  3. 重算合同店铺计数（重算代替自减，重跑结果不变）
// 任何一步失败后整个方法可以安全重跑
func (s *StoreService) OnStoreDeleted(ctx context.Context, store *model.Store, deletedBy int64) error {
	if store == nil {
		return ErrStoreNotFound
	}

	// 步骤 1：清理席位引用
	if err := s.scrubSeatRefs(ctx, store); err != nil {
		return fmt.Errorf("清理席位引用失败: %w", err)
	}

	// 步骤 2：打删除标记
	if err := s.storeRepo.MarkDeleted(ctx, store.ID, deletedBy); err != nil {
		return fmt.Errorf("打删除标记失败: %w", err)
	}

	// 步骤 3：重算店铺计数
	if err := s.contractRepo.RecountStores(ctx, store.ContractID); err != nil {
		return fmt.Errorf("重算店铺计数失败: %w", err)
	}

	log.Printf("[Store] 删除完成 contract=%d store=%d by=%d", store.ContractID, store.ID, deletedBy)
	return nil
}

// DeleteByExternalID 按对外 ID 删除店铺
// 店铺已经不存在（或已删除）时视为删除已完成，返回 nil 保证幂等
func (s *StoreService) DeleteByExternalID(ctx context.Context, externalID string, deletedBy int64) error {
	store, err := s.storeRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		return fmt.Errorf("查询店铺失败: %w", err)
	}
	if store == nil {
		return nil
	}
	return s.OnStoreDeleted(ctx, store, deletedBy)
}

// scrubSeatRefs 移除所有席位对店铺的引用
// 每个席位一次单行原子写，无变更的席位跳过。
// 覆盖列表只可能出现在本合同的席位上；旧版标签是历史遗留数据，
// 可能挂在任意合同的席位上，必须按键反查全库补齐
func (s *StoreService) scrubSeatRefs(ctx context.Context, store *model.Store) error {
	tagKey := strconv.FormatInt(store.ID, 10)

	seats, err := s.seatRepo.ListByContract(ctx, store.ContractID)
	if err != nil {
		return err
	}
	tagged, err := s.seatRepo.ListByStoreTagKey(ctx, tagKey)
	if err != nil {
		return err
	}
	seen := make(map[int64]bool, len(seats))
	for i := range seats {
		seen[seats[i].ID] = true
	}
	for i := range tagged {
		if !seen[tagged[i].ID] {
			seats = append(seats, tagged[i])
		}
	}

	for i := range seats {
		seat := &seats[i]

		changed := seat.RemoveStoreAccess(store.ID)

		tags := map[string]interface{}(seat.StoreTags)
		if tags != nil {
			if _, ok := tags[tagKey]; ok {
				delete(tags, tagKey)
				changed = true
			}
		}

		if !changed {
			continue
		}
		if err := s.seatRepo.ReplaceStoreRefs(ctx, seat.ID, seat.StoreAccess, tags); err != nil {
			return fmt.Errorf("清理席位 %d 失败: %w", seat.ID, err)
		}
	}
	return nil
}
