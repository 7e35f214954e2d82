package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"mktops_dev_v1_202609/internal/model"
	"mktops_dev_v1_202609/internal/repository"
	"mktops_dev_v1_202609/pkg/mailer"
)

// ==================== 错误定义 ====================

var (
	ErrContractNotFound    = errors.New("合同不存在")
	ErrSeatNotFound        = errors.New("席位不存在")
	ErrRoleNotFound        = errors.New("角色不存在")
	ErrActorNoActiveSeat   = errors.New("操作者在该合同下没有有效席位")
	ErrDuplicateActiveSeat = errors.New("该用户在合同下已有有效席位")
	ErrRoleEscalation      = errors.New("不能授予不低于自身等级的角色")
	ErrCannotGrantOwner    = errors.New("owner 角色仅在合同建档时授予")
	ErrOwnerProtected      = errors.New("owner 席位不可变更")
	ErrSeatRevoked         = errors.New("席位已吊销，不可再变更")
	ErrUserLimitReached    = errors.New("合同席位数已达上限")
	ErrStoreNotInContract  = errors.New("店铺不属于该合同")
	ErrInvalidStatus       = errors.New("非法的席位状态")
	ErrInvitationInvalid   = errors.New("邀请令牌无效")
)

// ==================== 请求参数 ====================

// InviteSeatReq 邀请参数
type InviteSeatReq struct {
	Email       string
	RoleID      int64
	AccessScope string // 缺省 all_stores
	StoreAccess model.StoreAccessList
}

// UpdateSeatReq 席位更新参数，nil 字段表示不变
type UpdateSeatReq struct {
	RoleID      *int64
	AccessScope *string
	StoreAccess *model.StoreAccessList
	Status      *string
}

// ==================== SeatService 席位生命周期 ====================

// SeatService 席位生命周期服务：邀请 / 更新 / 封停 / 吊销
// 所有写操作要求操作者在同一合同下持有 active 席位（或为平台超管），
// 且操作者角色等级必须严格高于被授予/被操作的等级
type SeatService struct {
	userRepo     repository.UserRepository
	seatRepo     repository.SeatRepository
	roleRepo     repository.RoleRepository
	contractRepo repository.ContractRepository
	storeRepo    repository.StoreRepository
	mail         *mailer.Client
}

// NewSeatService 创建席位服务
func NewSeatService(
	userRepo repository.UserRepository,
	seatRepo repository.SeatRepository,
	roleRepo repository.RoleRepository,
	contractRepo repository.ContractRepository,
	storeRepo repository.StoreRepository,
	mail *mailer.Client,
) *SeatService {
	return &SeatService{
		userRepo:     userRepo,
		seatRepo:     seatRepo,
		roleRepo:     roleRepo,
		contractRepo: contractRepo,
		storeRepo:    storeRepo,
		mail:         mail,
	}
}

// ==================== 操作者校验 ====================

// actorContext 写操作的操作者上下文
type actorContext struct {
	user  *model.SysUser
	seat  *model.ContractSeat // 超管可能为 nil
	level int
}

// requireActor 校验操作者：同合同 active 席位，或平台超管
func (s *SeatService) requireActor(ctx context.Context, actingUser *model.SysUser, contractID int64) (*actorContext, error) {
	if actingUser.IsSuperuser {
		return &actorContext{user: actingUser, level: model.LevelSuperuser}, nil
	}

	seat, err := s.seatRepo.GetActiveByUserAndContract(ctx, actingUser.ID, contractID)
	if err != nil {
		return nil, fmt.Errorf("查询操作者席位失败: %w", err)
	}
	if seat == nil || seat.DefaultRole == nil {
		return nil, ErrActorNoActiveSeat
	}
	return &actorContext{user: actingUser, seat: seat, level: seat.DefaultRole.Level}, nil
}

// validateStoreAccess 校验覆盖列表：店铺必须属于本合同，角色必须存在
// 且覆盖角色等级必须低于操作者等级（授予即受越级限制）
func (s *SeatService) validateStoreAccess(ctx context.Context, contractID int64, actor *actorContext, access model.StoreAccessList) error {
	for _, entry := range access {
		store, err := s.storeRepo.GetByID(ctx, entry.StoreID)
		if err != nil {
			return fmt.Errorf("查询店铺失败: %w", err)
		}
		if store == nil || store.IsDeleted || store.ContractID != contractID {
			return ErrStoreNotInContract
		}

		role, err := s.roleRepo.GetByID(ctx, entry.RoleID)
		if err != nil {
			return fmt.Errorf("查询角色失败: %w", err)
		}
		if role == nil {
			return ErrRoleNotFound
		}
		if role.IsOwner() {
			return ErrCannotGrantOwner
		}
		if actor.level <= role.Level {
			return ErrRoleEscalation
		}
	}
	return nil
}

// ==================== 邀请 ====================

// Invite 邀请用户加入合同
// 目标用户不存在时创建未激活账号；已有非 active 席位则重置为 pending 重新邀请；
// 已有 active 席位返回 ErrDuplicateActiveSeat。
// 并发双邀靠 (sys_user_id, contract_id) 唯一索引兜底，撞约束的一方同样报重复
func (s *SeatService) Invite(ctx context.Context, contractID int64, req InviteSeatReq, actingUser *model.SysUser) (*model.ContractSeat, error) {
	contract, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("查询合同失败: %w", err)
	}
	if contract == nil {
		return nil, ErrContractNotFound
	}

	actor, err := s.requireActor(ctx, actingUser, contractID)
	if err != nil {
		return nil, err
	}

	role, err := s.roleRepo.GetByID(ctx, req.RoleID)
	if err != nil {
		return nil, fmt.Errorf("查询角色失败: %w", err)
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	// owner 只在建档时随合同写入，事后任何人（包括超管）都不能再授予，
	// 否则"每个合同恰好一个 owner 席位"就守不住
	if role.IsOwner() {
		return nil, ErrCannotGrantOwner
	}
	// 等级必须严格高于被授予的角色，相同等级也不允许
	if actor.level <= role.Level {
		return nil, ErrRoleEscalation
	}

	scope := req.AccessScope
	if scope == "" {
		scope = model.ScopeAllStores
	}
	if scope != model.ScopeAllStores && scope != model.ScopeListed {
		return nil, ErrInvalidStatus
	}
	if err := s.validateStoreAccess(ctx, contractID, actor, req.StoreAccess); err != nil {
		return nil, err
	}

	// 名额检查
	occupied, err := s.seatRepo.CountOccupiedByContract(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("统计席位失败: %w", err)
	}
	if contract.MaxUsers > 0 && occupied >= int64(contract.MaxUsers) {
		return nil, ErrUserLimitReached
	}

	// 目标用户：不存在则创建未激活账号（激活走库外的邮箱验证流程）
	target, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if target == nil {
		target = &model.SysUser{
			Email:    req.Email,
			IsActive: false,
		}
		if err := s.userRepo.Create(ctx, target); err != nil {
			return nil, fmt.Errorf("创建用户失败: %w", err)
		}
	}

	now := time.Now()
	existing, err := s.seatRepo.GetByUserAndContract(ctx, target.ID, contractID)
	if err != nil {
		return nil, fmt.Errorf("查询席位失败: %w", err)
	}

	var seat *model.ContractSeat
	switch {
	case existing != nil && existing.Status == model.SeatStatusActive:
		return nil, ErrDuplicateActiveSeat

	case existing != nil:
		// 重新邀请：重置为 pending，覆盖角色和范围，清掉历史状态戳
		existing.DefaultRoleID = role.ID
		existing.AccessScope = scope
		existing.StoreAccess = req.StoreAccess
		existing.Status = model.SeatStatusPending
		existing.InvitedBy = actingUser.ID
		existing.InvitationToken = uuid.NewString()
		existing.InvitationSentAt = &now
		existing.ActivatedAt = nil
		existing.SuspendedAt = nil
		existing.SuspendedBy = 0
		existing.RevokedAt = nil
		existing.RevokedBy = 0
		if err := s.seatRepo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("更新席位失败: %w", err)
		}
		seat = existing

	default:
		seat = &model.ContractSeat{
			SysUserID:        target.ID,
			ContractID:       contractID,
			DefaultRoleID:    role.ID,
			AccessScope:      scope,
			StoreAccess:      req.StoreAccess,
			Status:           model.SeatStatusPending,
			InvitedBy:        actingUser.ID,
			InvitationToken:  uuid.NewString(),
			InvitationSentAt: &now,
		}
		if err := s.seatRepo.Create(ctx, seat); err != nil {
			if errors.Is(err, repository.ErrSeatExists) {
				// 并发邀请输掉的一方
				return nil, ErrDuplicateActiveSeat
			}
			return nil, fmt.Errorf("创建席位失败: %w", err)
		}
	}

	// 邀请邮件尽力而为，失败只记日志不回滚席位
	if s.mail != nil {
		if err := s.mail.SendInvitation(ctx, req.Email, contract.Name, seat.InvitationToken); err != nil {
			log.Printf("[Seat] 邀请邮件发送失败 email=%s contract=%d: %v", req.Email, contractID, err)
		}
	}

	log.Printf("[Seat] 邀请成功 contract=%d user=%d role=%s by=%d", contractID, target.ID, role.Name, actingUser.ID)
	return seat, nil
}

// ==================== 更新 ====================

// UpdateSeat 更新席位角色/范围/状态
func (s *SeatService) UpdateSeat(ctx context.Context, seatID int64, req UpdateSeatReq, actingUser *model.SysUser) (*model.ContractSeat, error) {
	seat, err := s.seatRepo.GetByID(ctx, seatID)
	if err != nil {
		return nil, fmt.Errorf("查询席位失败: %w", err)
	}
	if seat == nil {
		return nil, ErrSeatNotFound
	}

	actor, err := s.requireActor(ctx, actingUser, seat.ContractID)
	if err != nil {
		return nil, err
	}

	// revoked 是终态
	if seat.Status == model.SeatStatusRevoked {
		return nil, ErrSeatRevoked
	}

	isOwnerSeat := seat.DefaultRole != nil && seat.DefaultRole.IsOwner()

	// owner 席位：角色不可改，不可封停/吊销，无条件拒绝（超管也不行）
	if isOwnerSeat {
		if req.RoleID != nil && *req.RoleID != seat.DefaultRoleID {
			return nil, ErrOwnerProtected
		}
		if req.Status != nil && (*req.Status == model.SeatStatusSuspended || *req.Status == model.SeatStatusRevoked) {
			return nil, ErrOwnerProtected
		}
	}

	if req.RoleID != nil && *req.RoleID != seat.DefaultRoleID {
		newRole, err := s.roleRepo.GetByID(ctx, *req.RoleID)
		if err != nil {
			return nil, fmt.Errorf("查询角色失败: %w", err)
		}
		if newRole == nil {
			return nil, ErrRoleNotFound
		}
		// 不允许把既有席位提成 owner，owner 只在建档时产生
		if newRole.IsOwner() {
			return nil, ErrCannotGrantOwner
		}
		if actor.level <= newRole.Level {
			return nil, ErrRoleEscalation
		}
		seat.DefaultRoleID = newRole.ID
		seat.DefaultRole = newRole
	}

	if req.AccessScope != nil {
		if *req.AccessScope != model.ScopeAllStores && *req.AccessScope != model.ScopeListed {
			return nil, ErrInvalidStatus
		}
		seat.AccessScope = *req.AccessScope
	}
	if req.StoreAccess != nil {
		if err := s.validateStoreAccess(ctx, seat.ContractID, actor, *req.StoreAccess); err != nil {
			return nil, err
		}
		seat.StoreAccess = *req.StoreAccess
	}

	if req.Status != nil && *req.Status != seat.Status {
		// 封停/吊销属于"对人操作"，要求等级严格高于目标当前角色
		if seat.DefaultRole != nil && actor.level <= seat.DefaultRole.Level {
			return nil, ErrRoleEscalation
		}
		if err := s.applyStatusChange(seat, *req.Status, actingUser.ID); err != nil {
			return nil, err
		}
	}

	if err := s.seatRepo.Update(ctx, seat); err != nil {
		return nil, fmt.Errorf("更新席位失败: %w", err)
	}

	log.Printf("[Seat] 更新成功 seat=%d contract=%d by=%d", seat.ID, seat.ContractID, actingUser.ID)
	return seat, nil
}

// applyStatusChange 执行状态迁移并打时间戳
// pending→active→{suspended↔active}→revoked，revoked 为终态
func (s *SeatService) applyStatusChange(seat *model.ContractSeat, newStatus string, byUserID int64) error {
	now := time.Now()
	switch newStatus {
	case model.SeatStatusActive:
		seat.Status = model.SeatStatusActive
		seat.ActivatedAt = &now
		seat.SuspendedAt = nil
		seat.SuspendedBy = 0
	case model.SeatStatusSuspended:
		seat.Status = model.SeatStatusSuspended
		seat.SuspendedAt = &now
		seat.SuspendedBy = byUserID
	case model.SeatStatusRevoked:
		seat.Status = model.SeatStatusRevoked
		seat.RevokedAt = &now
		seat.RevokedBy = byUserID
	default:
		return ErrInvalidStatus
	}
	return nil
}

// ==================== 吊销 ====================

// Revoke 吊销席位（终态）
func (s *SeatService) Revoke(ctx context.Context, seatID int64, actingUser *model.SysUser) error {
	status := model.SeatStatusRevoked
	_, err := s.UpdateSeat(ctx, seatID, UpdateSeatReq{Status: &status}, actingUser)
	return err
}

// ==================== 激活 ====================

// Activate 通过邀请令牌激活席位
// 邮箱验证在库外完成，这里只负责 pending→active 的状态迁移；
// 令牌一次性，激活后作废
func (s *SeatService) Activate(ctx context.Context, token string) (*model.ContractSeat, error) {
	seat, err := s.seatRepo.GetByInvitationToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("查询席位失败: %w", err)
	}
	if seat == nil {
		return nil, ErrInvitationInvalid
	}
	if seat.Status == model.SeatStatusRevoked {
		return nil, ErrSeatRevoked
	}
	if seat.Status != model.SeatStatusPending {
		return nil, ErrInvalidStatus
	}

	if err := s.applyStatusChange(seat, model.SeatStatusActive, seat.SysUserID); err != nil {
		return nil, err
	}
	seat.InvitationToken = ""
	if err := s.seatRepo.Update(ctx, seat); err != nil {
		return nil, fmt.Errorf("更新席位失败: %w", err)
	}

	log.Printf("[Seat] 激活成功 seat=%d contract=%d user=%d", seat.ID, seat.ContractID, seat.SysUserID)
	return seat, nil
}
