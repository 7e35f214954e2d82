package service

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"mktops_dev_v1_202609/internal/model"
	"mktops_dev_v1_202609/internal/repository"
)

func newContractService(db *gorm.DB) *ContractService {
	return NewContractService(
		repository.NewContractRepository(db),
		repository.NewSeatRepository(db),
		repository.NewRoleRepository(db),
		repository.NewUserRepository(db),
	)
}

func TestContractService_Create(t *testing.T) {
	db := newSvcTestDB(t)
	svc := newContractService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner@test.com", false)

	contract, err := svc.Create(ctx, CreateContractReq{
		Name:         "新租户",
		BillingEmail: "billing@test.com",
		OwnerUserID:  owner.ID,
		MaxStores:    5,
		MaxUsers:     10,
		FeatureFlags: []string{"campaigns", "analytics"},
	})
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	if contract.OwnerUserID != owner.ID {
		t.Errorf("owner_user_id = %d, want %d", contract.OwnerUserID, owner.ID)
	}

	// owner 席位与合同同批建立：active、all_stores、角色 owner
	var seat model.ContractSeat
	err = db.Preload("DefaultRole").
		Where("contract_id = ? AND sys_user_id = ?", contract.ID, owner.ID).
		First(&seat).Error
	if err != nil {
		t.Fatalf("owner 席位未创建: %v", err)
	}
	if seat.Status != model.SeatStatusActive {
		t.Errorf("status = %s, want active", seat.Status)
	}
	if seat.AccessScope != model.ScopeAllStores {
		t.Errorf("access_scope = %s, want all_stores", seat.AccessScope)
	}
	if seat.DefaultRole == nil || !seat.DefaultRole.IsOwner() {
		t.Errorf("default_role = %+v, want owner", seat.DefaultRole)
	}
	if seat.ActivatedAt == nil {
		t.Errorf("activated_at 为空")
	}
}

func TestContractService_ListSeats(t *testing.T) {
	db := newSvcTestDB(t)
	svc := newContractService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner@test.com", false)
	contract, err := svc.Create(ctx, CreateContractReq{Name: "租户", OwnerUserID: owner.ID})
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}

	seats, err := svc.ListSeats(ctx, contract.ID)
	if err != nil {
		t.Fatalf("ListSeats 失败: %v", err)
	}
	if len(seats) != 1 {
		t.Fatalf("席位数 = %d, want 1", len(seats))
	}

	// 列表要带出用户和角色，响应里才有邮箱和角色名
	if seats[0].SysUser == nil || seats[0].SysUser.Email != "owner@test.com" {
		t.Errorf("sys_user = %+v, want owner@test.com", seats[0].SysUser)
	}
	if seats[0].DefaultRole == nil || !seats[0].DefaultRole.IsOwner() {
		t.Errorf("default_role = %+v, want owner", seats[0].DefaultRole)
	}
}

func TestContractService_Create_OwnerMissing(t *testing.T) {
	db := newSvcTestDB(t)
	svc := newContractService(db)

	_, err := svc.Create(context.Background(), CreateContractReq{
		Name:        "无主合同",
		OwnerUserID: 99999,
	})
	if !errors.Is(err, ErrOwnerNotFound) {
		t.Errorf("err = %v, want ErrOwnerNotFound", err)
	}
}
