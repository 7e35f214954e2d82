package service

import (
	"context"
	"fmt"
	"log"

	"mktops_dev_v1_202609/internal/model"
	"mktops_dev_v1_202609/internal/repository"
)

// ==================== 裁决结果 ====================

// DenyReason 拒绝原因代码
// 仅用于内部日志和审计，不能原样返回给终端用户（会暴露租户结构）
type DenyReason string

const (
	DenyNotFound               DenyReason = "not_found"               // 店铺不存在或已删除
	DenyNoActiveSeat           DenyReason = "no_active_seat"          // 无 active 席位
	DenyStoreNotListed         DenyReason = "store_not_listed"        // 覆盖列表未包含该店铺
	DenyInsufficientPermission DenyReason = "insufficient_permission" // 角色能力不足
	DenyRoleEscalation         DenyReason = "role_escalation_attempt" // 越级授权
	DenyOwnerProtected         DenyReason = "owner_protected"         // owner 席位受保护
)

// AccessResult 访问裁决结果
// Allowed 为 false 时 Reason 必填，其余字段可能为空
type AccessResult struct {
	Allowed   bool
	Reason    DenyReason
	Superuser bool

	Store    *model.Store
	Contract *model.Contract
	Seat     *model.ContractSeat
	Role     *model.Role
}

// Deny 构造拒绝结果
func Deny(reason DenyReason) *AccessResult {
	return &AccessResult{Allowed: false, Reason: reason}
}

// ==================== AccessService 访问裁决 ====================

// AccessService 席位访问裁决服务
// Resolve 是"空列表含义"等访问策略的唯一实现点，任何处理函数
// 不得绕过它自行拼 WHERE 条件判断访问权
type AccessService struct {
	storeRepo    repository.StoreRepository
	contractRepo repository.ContractRepository
	seatRepo     repository.SeatRepository
	roleRepo     repository.RoleRepository
}

// NewAccessService 创建访问裁决服务
func NewAccessService(
	storeRepo repository.StoreRepository,
	contractRepo repository.ContractRepository,
	seatRepo repository.SeatRepository,
	roleRepo repository.RoleRepository,
) *AccessService {
	return &AccessService{
		storeRepo:    storeRepo,
		contractRepo: contractRepo,
		seatRepo:     seatRepo,
		roleRepo:     roleRepo,
	}
}

// Resolve 裁决用户对店铺的访问
// 纯读操作，无副作用，可重复调用。判定顺序：
//  1. 店铺必须存在且未删除
//  2. 超管直接放行（合成角色，不要求席位）
//  3. 必须持有该合同下 active 状态的席位
//  4. listed 范围：覆盖列表即白名单，未列出的店铺一律拒绝，
//     不回退默认角色（单条覆盖也表示"只有这一家"）
//  5. all_stores 范围：默认角色适用于合同下全部店铺
func (s *AccessService) Resolve(ctx context.Context, user *model.SysUser, storeExternalID string) (*AccessResult, error) {
	store, err := s.storeRepo.GetByExternalID(ctx, storeExternalID)
	if err != nil {
		return nil, fmt.Errorf("查询店铺失败: %w", err)
	}
	if store == nil {
		return Deny(DenyNotFound), nil
	}

	if user.IsSuperuser {
		return &AccessResult{
			Allowed:   true,
			Superuser: true,
			Store:     store,
			Role:      model.SuperuserRole(),
		}, nil
	}

	seat, err := s.seatRepo.GetActiveByUserAndContract(ctx, user.ID, store.ContractID)
	if err != nil {
		return nil, fmt.Errorf("查询席位失败: %w", err)
	}
	if seat == nil {
		log.Printf("[Access] 拒绝 user=%d store=%s reason=%s", user.ID, storeExternalID, DenyNoActiveSeat)
		return Deny(DenyNoActiveSeat), nil
	}

	contract, err := s.contractRepo.GetByID(ctx, store.ContractID)
	if err != nil {
		return nil, fmt.Errorf("查询合同失败: %w", err)
	}

	var roleID int64
	switch seat.AccessScope {
	case model.ScopeListed:
		entry, ok := seat.FindStoreAccess(store.ID)
		if !ok {
			log.Printf("[Access] 拒绝 user=%d store=%s reason=%s", user.ID, storeExternalID, DenyStoreNotListed)
			return Deny(DenyStoreNotListed), nil
		}
		roleID = entry.RoleID
	default:
		// all_stores：合同内所有店铺共用默认角色
		roleID = seat.DefaultRoleID
	}

	role, err := s.roleRepo.GetByID(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("查询角色失败: %w", err)
	}
	if role == nil {
		// 参考数据缺失属于数据异常，按无权处理并留日志
		log.Printf("[Access] 角色缺失 role_id=%d seat=%d", roleID, seat.ID)
		return Deny(DenyInsufficientPermission), nil
	}

	return &AccessResult{
		Allowed:  true,
		Store:    store,
		Contract: contract,
		Seat:     seat,
		Role:     role,
	}, nil
}

// ResolveContract 裁决用户对合同本身的访问（建店、看席位列表等合同级操作）
// 与 Resolve 同一套规则，只是没有店铺维度：listed 范围的席位也能
// 通过合同级裁决，具体店铺能不能碰仍由 Resolve 决定
func (s *AccessService) ResolveContract(ctx context.Context, user *model.SysUser, contractID int64) (*AccessResult, error) {
	contract, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("查询合同失败: %w", err)
	}
	if contract == nil {
		return Deny(DenyNotFound), nil
	}

	if user.IsSuperuser {
		return &AccessResult{
			Allowed:   true,
			Superuser: true,
			Contract:  contract,
			Role:      model.SuperuserRole(),
		}, nil
	}

	seat, err := s.seatRepo.GetActiveByUserAndContract(ctx, user.ID, contractID)
	if err != nil {
		return nil, fmt.Errorf("查询席位失败: %w", err)
	}
	if seat == nil || seat.DefaultRole == nil {
		log.Printf("[Access] 拒绝 user=%d contract=%d reason=%s", user.ID, contractID, DenyNoActiveSeat)
		return Deny(DenyNoActiveSeat), nil
	}

	return &AccessResult{
		Allowed:  true,
		Contract: contract,
		Seat:     seat,
		Role:     seat.DefaultRole,
	}, nil
}

// ==================== 能力检查 ====================

// HasCapability 能力位检查（超管短路放行）
func (s *AccessService) HasCapability(result *AccessResult, cap model.Capability) bool {
	if result == nil || !result.Allowed || result.Role == nil {
		return false
	}
	if result.Superuser {
		return true
	}
	return result.Role.HasCapability(cap)
}

// HasLevel 等级门槛检查（超管短路放行）
func (s *AccessService) HasLevel(result *AccessResult, minLevel int) bool {
	if result == nil || !result.Allowed || result.Role == nil {
		return false
	}
	if result.Superuser {
		return true
	}
	return result.Role.AtLeast(minLevel)
}
