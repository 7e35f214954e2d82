package model

import "testing"

func TestPermissionMatrix_Has(t *testing.T) {
	var m PermissionMatrix
	m.Stores.View = true
	m.Campaigns.Edit = true

	if !m.Has(CapStoresView) {
		t.Errorf("Has(CapStoresView) = false, want true")
	}
	if !m.Has(CapCampaignsEdit) {
		t.Errorf("Has(CapCampaignsEdit) = false, want true")
	}
	if m.Has(CapStoresDelete) {
		t.Errorf("Has(CapStoresDelete) = true, want false")
	}
	if m.Has(CapTeamManageRoles) {
		t.Errorf("Has(CapTeamManageRoles) = true, want false")
	}

	// 未知能力位必须拒绝
	if m.Has(Capability(999)) {
		t.Errorf("Has(unknown) = true, want false")
	}
}

func TestFullPermissions(t *testing.T) {
	m := FullPermissions()

	caps := []Capability{
		CapTeamManageRoles, CapTeamInviteMembers,
		CapStoresView, CapStoresEdit, CapStoresDelete, CapStoresManageIntegration,
		CapCampaignsView, CapCampaignsEdit, CapCampaignsSchedule,
		CapTemplatesView, CapTemplatesEdit,
		CapAnalyticsViewAll, CapAnalyticsExport,
	}
	for _, c := range caps {
		if !m.Has(c) {
			t.Errorf("FullPermissions().Has(%d) = false, want true", c)
		}
	}
}

func TestRole_AtLeast(t *testing.T) {
	role := &Role{Name: RoleManager, Level: LevelManager}

	if !role.AtLeast(LevelEditor) {
		t.Errorf("AtLeast(%d) = false, want true", LevelEditor)
	}
	if !role.AtLeast(LevelManager) {
		t.Errorf("AtLeast(%d) = false, want true", LevelManager)
	}
	if role.AtLeast(LevelAdmin) {
		t.Errorf("AtLeast(%d) = true, want false", LevelAdmin)
	}
}

func TestRole_IsOwner(t *testing.T) {
	if !(&Role{Name: RoleOwner}).IsOwner() {
		t.Errorf("owner IsOwner() = false, want true")
	}
	if (&Role{Name: RoleAdmin}).IsOwner() {
		t.Errorf("admin IsOwner() = true, want false")
	}
}

func TestSuperuserRole(t *testing.T) {
	r := SuperuserRole()

	if r.Level != LevelSuperuser {
		t.Errorf("level = %d, want %d", r.Level, LevelSuperuser)
	}
	// 虚拟角色全能力放行，且等级高于任何租户内角色
	if !r.HasCapability(CapStoresDelete) {
		t.Errorf("HasCapability(CapStoresDelete) = false, want true")
	}
	if !r.AtLeast(LevelOwner) {
		t.Errorf("AtLeast(LevelOwner) = false, want true")
	}
}

func TestContractSeat_StoreAccess(t *testing.T) {
	seat := &ContractSeat{
		StoreAccess: StoreAccessList{
			{StoreID: 1, RoleID: 10},
			{StoreID: 2, RoleID: 20},
		},
	}

	entry, ok := seat.FindStoreAccess(2)
	if !ok || entry.RoleID != 20 {
		t.Errorf("FindStoreAccess(2) = (%+v, %v), want role 20", entry, ok)
	}
	if _, ok := seat.FindStoreAccess(3); ok {
		t.Errorf("FindStoreAccess(3) = true, want false")
	}

	if !seat.RemoveStoreAccess(1) {
		t.Errorf("RemoveStoreAccess(1) = false, want true")
	}
	if len(seat.StoreAccess) != 1 || seat.StoreAccess[0].StoreID != 2 {
		t.Errorf("store_access = %+v, want [{2 20}]", seat.StoreAccess)
	}
	// 再删一次是空操作
	if seat.RemoveStoreAccess(1) {
		t.Errorf("RemoveStoreAccess(1) second = true, want false")
	}
}
