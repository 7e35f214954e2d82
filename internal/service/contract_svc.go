package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"mktops_dev_v1_202609/internal/model"
	"mktops_dev_v1_202609/internal/repository"
)

// ==================== 错误定义 ====================

var (
	ErrOwnerNotFound    = errors.New("所有者用户不存在")
	ErrOwnerRoleMissing = errors.New("owner 角色参考数据缺失")
)

// ==================== ContractService 合同服务 ====================

// ContractService 合同创建与查询
// 合同与 owner 席位同批创建，owner 席位直接 active、范围 all_stores，
// 保证"每个合同恰好一个 owner 席位"从建档起就成立
type ContractService struct {
	contractRepo repository.ContractRepository
	seatRepo     repository.SeatRepository
	roleRepo     repository.RoleRepository
	userRepo     repository.UserRepository
}

// NewContractService 创建合同服务
func NewContractService(
	contractRepo repository.ContractRepository,
	seatRepo repository.SeatRepository,
	roleRepo repository.RoleRepository,
	userRepo repository.UserRepository,
) *ContractService {
	return &ContractService{
		contractRepo: contractRepo,
		seatRepo:     seatRepo,
		roleRepo:     roleRepo,
		userRepo:     userRepo,
	}
}

// CreateContractReq 建档参数
type CreateContractReq struct {
	Name         string
	BillingEmail string
	OwnerUserID  int64
	MaxStores    int
	MaxUsers     int
	FeatureFlags []string
}

// Create 创建合同并写入 owner 席位
func (s *ContractService) Create(ctx context.Context, req CreateContractReq) (*model.Contract, error) {
	owner, err := s.userRepo.GetByID(ctx, req.OwnerUserID)
	if err != nil {
		return nil, fmt.Errorf("查询所有者失败: %w", err)
	}
	if owner == nil {
		return nil, ErrOwnerNotFound
	}

	ownerRole, err := s.roleRepo.GetByName(ctx, model.RoleOwner)
	if err != nil {
		return nil, fmt.Errorf("查询 owner 角色失败: %w", err)
	}
	if ownerRole == nil {
		return nil, ErrOwnerRoleMissing
	}

	contract := &model.Contract{
		Name:         req.Name,
		BillingEmail: req.BillingEmail,
		OwnerUserID:  owner.ID,
		MaxStores:    req.MaxStores,
		MaxUsers:     req.MaxUsers,
		FeatureFlags: pq.StringArray(req.FeatureFlags),
	}
	if err := s.contractRepo.Create(ctx, contract); err != nil {
		return nil, fmt.Errorf("创建合同失败: %w", err)
	}

	now := time.Now()
	seat := &model.ContractSeat{
		SysUserID:     owner.ID,
		ContractID:    contract.ID,
		DefaultRoleID: ownerRole.ID,
		AccessScope:   model.ScopeAllStores,
		Status:        model.SeatStatusActive,
		InvitedBy:     owner.ID,
		ActivatedAt:   &now,
	}
	if err := s.seatRepo.Create(ctx, seat); err != nil {
		// 合同已落库但 owner 席位写失败，留日志供人工补偿
		log.Printf("[Contract] owner 席位创建失败 contract=%d owner=%d: %v", contract.ID, owner.ID, err)
		return nil, fmt.Errorf("创建 owner 席位失败: %w", err)
	}

	log.Printf("[Contract] 建档成功 contract=%d owner=%d", contract.ID, owner.ID)
	return contract, nil
}

// GetByID 查询合同
func (s *ContractService) GetByID(ctx context.Context, id int64) (*model.Contract, error) {
	return s.contractRepo.GetByID(ctx, id)
}

// ListSeats 合同下席位列表
func (s *ContractService) ListSeats(ctx context.Context, contractID int64) ([]model.ContractSeat, error) {
	return s.seatRepo.ListByContract(ctx, contractID)
}

// ListRoles 可授予的角色目录（按等级降序）
func (s *ContractService) ListRoles(ctx context.Context) ([]model.Role, error) {
	return s.roleRepo.List(ctx)
}
