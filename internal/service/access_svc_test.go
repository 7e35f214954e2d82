package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mktops_dev_v1_202609/internal/model"
	"mktops_dev_v1_202609/internal/repository"
	"mktops_dev_v1_202609/pkg/database"
)

// ==================== 测试辅助 ====================

// newSvcTestDB 内存库 + 全部模型建表 + 内置角色播种
// TranslateError 必须开启，席位唯一约束冲突的判定依赖 gorm.ErrDuplicatedKey
func newSvcTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	if err := db.AutoMigrate(
		&model.Role{}, &model.SysUser{}, &model.Contract{},
		&model.Store{}, &model.ContractSeat{},
	); err != nil {
		t.Fatalf("建表失败: %v", err)
	}
	if err := database.SeedRoles(context.Background(), db); err != nil {
		t.Fatalf("角色播种失败: %v", err)
	}
	return db
}

func roleByName(t *testing.T, db *gorm.DB, name string) *model.Role {
	var role model.Role
	if err := db.Where("name = ?", name).First(&role).Error; err != nil {
		t.Fatalf("查询角色 %s 失败: %v", name, err)
	}
	return &role
}

func createTestUser(t *testing.T, db *gorm.DB, email string, superuser bool) *model.SysUser {
	user := &model.SysUser{Email: email, IsSuperuser: superuser, IsActive: true}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	return user
}

func createTestContract(t *testing.T, db *gorm.DB, ownerID int64, maxStores, maxUsers int) *model.Contract {
	contract := &model.Contract{
		Name:        "测试合同",
		OwnerUserID: ownerID,
		MaxStores:   maxStores,
		MaxUsers:    maxUsers,
	}
	if err := db.Create(contract).Error; err != nil {
		t.Fatalf("创建合同失败: %v", err)
	}
	return contract
}

func createTestStore(t *testing.T, db *gorm.DB, contractID int64, name string) *model.Store {
	store := &model.Store{
		ExternalID: uuid.NewString(),
		Name:       name,
		ContractID: contractID,
		IsActive:   true,
	}
	if err := db.Create(store).Error; err != nil {
		t.Fatalf("创建店铺失败: %v", err)
	}
	return store
}

func createTestSeat(t *testing.T, db *gorm.DB, userID, contractID, roleID int64,
	status, scope string, access model.StoreAccessList) *model.ContractSeat {
	seat := &model.ContractSeat{
		SysUserID:     userID,
		ContractID:    contractID,
		DefaultRoleID: roleID,
		Status:        status,
		AccessScope:   scope,
		StoreAccess:   access,
	}
	if err := db.Create(seat).Error; err != nil {
		t.Fatalf("创建席位失败: %v", err)
	}
	return seat
}

func newAccessService(db *gorm.DB) *AccessService {
	return NewAccessService(
		repository.NewStoreRepository(db),
		repository.NewContractRepository(db),
		repository.NewSeatRepository(db),
		repository.NewRoleRepository(db),
	)
}

// ==================== 单元测试 ====================

func TestAccessService_AllStoresScope(t *testing.T) {
	db := newSvcTestDB(t)
	svc := newAccessService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner@test.com", false)
	member := createTestUser(t, db, "member@test.com", false)
	contract := createTestContract(t, db, owner.ID, 10, 20)
	store := createTestStore(t, db, contract.ID, "店铺A")

	manager := roleByName(t, db, model.RoleManager)
	createTestSeat(t, db, member.ID, contract.ID, manager.ID,
		model.SeatStatusActive, model.ScopeAllStores, nil)

	result, err := svc.Resolve(ctx, member, store.ExternalID)
	if err != nil {
		t.Fatalf("Resolve 失败: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("allowed = false (reason=%s), want true", result.Reason)
	}
	if result.Role.Name != model.RoleManager {
		t.Errorf("role = %s, want manager", result.Role.Name)
	}

	// manager 能建店不能删店
	if !svc.HasCapability(result, model.CapStoresEdit) {
		t.Errorf("HasCapability(stores.edit) = false, want true")
	}
	if svc.HasCapability(result, model.CapStoresDelete) {
		t.Errorf("HasCapability(stores.delete) = true, want false")
	}
}

func TestAccessService_ListedScope(t *testing.T) {
	db := newSvcTestDB(t)
	svc := newAccessService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner@test.com", false)
	member := createTestUser(t, db, "member@test.com", false)
	contract := createTestContract(t, db, owner.ID, 10, 20)
	storeA := createTestStore(t, db, contract.ID, "店铺A")
	storeB := createTestStore(t, db, contract.ID, "店铺B")

	manager := roleByName(t, db, model.RoleManager)
	editor := roleByName(t, db, model.RoleEditor)

	// 默认角色 manager，但范围是 listed：只有列出的店铺可访问
	createTestSeat(t, db, member.ID, contract.ID, manager.ID,
		model.SeatStatusActive, model.ScopeListed,
		model.StoreAccessList{{StoreID: storeA.ID, RoleID: editor.ID}})

	// 列出的店铺：生效角色是覆盖条目里的 editor，不是默认角色
	result, err := svc.Resolve(ctx, member, storeA.ExternalID)
	if err != nil {
		t.Fatalf("Resolve 失败: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("storeA allowed = false (reason=%s), want true", result.Reason)
	}
	if result.Role.Name != model.RoleEditor {
		t.Errorf("storeA role = %s, want editor", result.Role.Name)
	}

	// 未列出的店铺：一律拒绝，不回退默认角色
	result, err = svc.Resolve(ctx, member, storeB.ExternalID)
	if err != nil {
		t.Fatalf("Resolve 失败: %v", err)
	}
	if result.Allowed {
		t.Fatalf("storeB allowed = true, want false")
	}
	if result.Reason != DenyStoreNotListed {
		t.Errorf("storeB reason = %s, want %s", result.Reason, DenyStoreNotListed)
	}
}

func TestAccessService_ListedScopeEmptyList(t *testing.T) {
	db := newSvcTestDB(t)
	svc := newAccessService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner@test.com", false)
	member := createTestUser(t, db, "member@test.com", false)
	contract := createTestContract(t, db, owner.ID, 10, 20)
	store := createTestStore(t, db, contract.ID, "店铺A")

	manager := roleByName(t, db, model.RoleManager)
	// 清空列表表示收回全部访问，而不是放开全部
	createTestSeat(t, db, member.ID, contract.ID, manager.ID,
		model.SeatStatusActive, model.ScopeListed, model.StoreAccessList{})

	result, err := svc.Resolve(ctx, member, store.ExternalID)
	if err != nil {
		t.Fatalf("Resolve 失败: %v", err)
	}
	if result.Allowed {
		t.Fatalf("allowed = true, want false")
	}
	if result.Reason != DenyStoreNotListed {
		t.Errorf("reason = %s, want %s", result.Reason, DenyStoreNotListed)
	}
}

func TestAccessService_SuperuserBypass(t *testing.T) {
	db := newSvcTestDB(t)
	svc := newAccessService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner@test.com", false)
	super := createTestUser(t, db, "admin@platform.com", true)
	contract := createTestContract(t, db, owner.ID, 10, 20)
	store := createTestStore(t, db, contract.ID, "店铺A")

	// 超管没有任何席位也放行
	result, err := svc.Resolve(ctx, super, store.ExternalID)
	if err != nil {
		t.Fatalf("Resolve 失败: %v", err)
	}
	if !result.Allowed || !result.Superuser {
		t.Fatalf("allowed=%v superuser=%v, want true/true", result.Allowed, result.Superuser)
	}
	if !svc.HasCapability(result, model.CapStoresDelete) {
		t.Errorf("HasCapability(stores.delete) = false, want true")
	}
	if !svc.HasLevel(result, model.LevelOwner) {
		t.Errorf("HasLevel(owner) = false, want true")
	}
}

func TestAccessService_StoreNotFound(t *testing.T) {
	db := newSvcTestDB(t)
	svc := newAccessService(db)
	ctx := context.Background()

	user := createTestUser(t, db, "member@test.com", false)

	// 不存在的对外 ID
	result, err := svc.Resolve(ctx, user, uuid.NewString())
	if err != nil {
		t.Fatalf("Resolve 失败: %v", err)
	}
	if result.Allowed || result.Reason != DenyNotFound {
		t.Errorf("result = (%v, %s), want (false, %s)", result.Allowed, result.Reason, DenyNotFound)
	}

	// 已删除的店铺按不存在处理
	contract := createTestContract(t, db, user.ID, 10, 20)
	store := createTestStore(t, db, contract.ID, "店铺A")
	db.Model(store).Update("is_deleted", true)

	result, err = svc.Resolve(ctx, user, store.ExternalID)
	if err != nil {
		t.Fatalf("Resolve 失败: %v", err)
	}
	if result.Allowed || result.Reason != DenyNotFound {
		t.Errorf("deleted store result = (%v, %s), want (false, %s)", result.Allowed, result.Reason, DenyNotFound)
	}
}

func TestAccessService_NoActiveSeat(t *testing.T) {
	db := newSvcTestDB(t)
	svc := newAccessService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner@test.com", false)
	member := createTestUser(t, db, "member@test.com", false)
	contract := createTestContract(t, db, owner.ID, 10, 20)
	store := createTestStore(t, db, contract.ID, "店铺A")

	manager := roleByName(t, db, model.RoleManager)
	// 封停的席位不放行
	createTestSeat(t, db, member.ID, contract.ID, manager.ID,
		model.SeatStatusSuspended, model.ScopeAllStores, nil)

	result, err := svc.Resolve(ctx, member, store.ExternalID)
	if err != nil {
		t.Fatalf("Resolve 失败: %v", err)
	}
	if result.Allowed || result.Reason != DenyNoActiveSeat {
		t.Errorf("result = (%v, %s), want (false, %s)", result.Allowed, result.Reason, DenyNoActiveSeat)
	}
}

func TestAccessService_ResolveContract(t *testing.T) {
	db := newSvcTestDB(t)
	svc := newAccessService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner@test.com", false)
	member := createTestUser(t, db, "member@test.com", false)
	outsider := createTestUser(t, db, "outsider@test.com", false)
	contract := createTestContract(t, db, owner.ID, 10, 20)

	admin := roleByName(t, db, model.RoleAdmin)
	createTestSeat(t, db, member.ID, contract.ID, admin.ID,
		model.SeatStatusActive, model.ScopeAllStores, nil)

	result, err := svc.ResolveContract(ctx, member, contract.ID)
	if err != nil {
		t.Fatalf("ResolveContract 失败: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("allowed = false (reason=%s), want true", result.Reason)
	}
	if !svc.HasCapability(result, model.CapTeamInviteMembers) {
		t.Errorf("HasCapability(team.invite_members) = false, want true")
	}

	// 无席位的用户拒绝
	result, err = svc.ResolveContract(ctx, outsider, contract.ID)
	if err != nil {
		t.Fatalf("ResolveContract 失败: %v", err)
	}
	if result.Allowed || result.Reason != DenyNoActiveSeat {
		t.Errorf("outsider result = (%v, %s), want (false, %s)", result.Allowed, result.Reason, DenyNoActiveSeat)
	}

	// 不存在的合同
	result, err = svc.ResolveContract(ctx, member, 99999)
	if err != nil {
		t.Fatalf("ResolveContract 失败: %v", err)
	}
	if result.Allowed || result.Reason != DenyNotFound {
		t.Errorf("missing contract result = (%v, %s), want (false, %s)", result.Allowed, result.Reason, DenyNotFound)
	}
}
