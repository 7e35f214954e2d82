package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mktops_dev_v1_202609/internal/middleware"
	"mktops_dev_v1_202609/internal/model"
	"mktops_dev_v1_202609/internal/repository"
	"mktops_dev_v1_202609/internal/service"
	"mktops_dev_v1_202609/pkg/database"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ==================== 测试环境 ====================

type ctlTestEnv struct {
	db     *gorm.DB
	router *gin.Engine
}

// setupCtlTestEnv 真实服务栈 + 内存库，路由挂载与生产一致的中间件
func setupCtlTestEnv(t *testing.T) *ctlTestEnv {
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

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	contractRepo := repository.NewContractRepository(db)
	storeRepo := repository.NewStoreRepository(db)
	seatRepo := repository.NewSeatRepository(db)

	userSvc := service.NewUserService(userRepo)
	accessSvc := service.NewAccessService(storeRepo, contractRepo, seatRepo, roleRepo)
	seatSvc := service.NewSeatService(userRepo, seatRepo, roleRepo, contractRepo, storeRepo, nil)
	storeSvc := service.NewStoreService(storeRepo, contractRepo, seatRepo)

	storeCtl := NewStoreController(storeSvc, accessSvc, userSvc, nil)
	seatCtl := NewSeatController(seatSvc, accessSvc, userSvc)

	r := gin.New()
	authed := r.Group("/api", middleware.JWTAuth(), middleware.AuditContext())
	{
		authed.GET("/stores/:external_id", storeCtl.Get)
		authed.DELETE("/stores/:external_id", storeCtl.Delete)
		authed.POST("/contracts/:contract_id/seats", seatCtl.Invite)
	}

	return &ctlTestEnv{db: db, router: r}
}

func (e *ctlTestEnv) role(t *testing.T, name string) *model.Role {
	var role model.Role
	if err := e.db.Where("name = ?", name).First(&role).Error; err != nil {
		t.Fatalf("查询角色 %s 失败: %v", name, err)
	}
	return &role
}

func (e *ctlTestEnv) user(t *testing.T, email string) *model.SysUser {
	u := &model.SysUser{Email: email, IsActive: true}
	if err := e.db.Create(u).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	return u
}

func (e *ctlTestEnv) token(t *testing.T, u *model.SysUser) string {
	access, _, err := middleware.GenerateTokenPair(u.ID, u.Email, u.IsSuperuser)
	if err != nil {
		t.Fatalf("签发 token 失败: %v", err)
	}
	return access
}

func (e *ctlTestEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// ==================== HTTP 状态映射 ====================

func TestStoreEndpoints_AuthRequired(t *testing.T) {
	env := setupCtlTestEnv(t)

	w := env.do("GET", "/api/stores/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStoreEndpoints_NotFound(t *testing.T) {
	env := setupCtlTestEnv(t)
	user := env.user(t, "user@test.com")

	w := env.do("GET", "/api/stores/"+uuid.NewString(), env.token(t, user), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStoreEndpoints_ForbiddenIsGeneric(t *testing.T) {
	env := setupCtlTestEnv(t)

	owner := env.user(t, "owner@test.com")
	viewer := env.user(t, "viewer@test.com")
	contract := &model.Contract{Name: "合同", OwnerUserID: owner.ID, MaxStores: 10, MaxUsers: 20}
	env.db.Create(contract)
	store := &model.Store{
		ExternalID: uuid.NewString(), Name: "店铺A",
		ContractID: contract.ID, IsActive: true,
	}
	env.db.Create(store)

	viewerRole := env.role(t, model.RoleViewer)
	env.db.Create(&model.ContractSeat{
		SysUserID: viewer.ID, ContractID: contract.ID,
		DefaultRoleID: viewerRole.ID, Status: model.SeatStatusActive,
		AccessScope: model.ScopeAllStores,
	})

	// viewer 可以看
	w := env.do("GET", "/api/stores/"+store.ExternalID, env.token(t, viewer), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// viewer 不能删，响应体只有笼统提示，不含拒绝原因代码
	w = env.do("DELETE", "/api/stores/"+store.ExternalID, env.token(t, viewer), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "无权限访问", resp["message"])
	assert.NotContains(t, w.Body.String(), "insufficient_permission")
}

func TestStoreEndpoints_ListedScopeHidesUnlisted(t *testing.T) {
	env := setupCtlTestEnv(t)

	owner := env.user(t, "owner@test.com")
	member := env.user(t, "member@test.com")
	contract := &model.Contract{Name: "合同", OwnerUserID: owner.ID, MaxStores: 10, MaxUsers: 20}
	env.db.Create(contract)
	storeA := &model.Store{ExternalID: uuid.NewString(), Name: "A", ContractID: contract.ID, IsActive: true}
	storeB := &model.Store{ExternalID: uuid.NewString(), Name: "B", ContractID: contract.ID, IsActive: true}
	env.db.Create(storeA)
	env.db.Create(storeB)

	editor := env.role(t, model.RoleEditor)
	env.db.Create(&model.ContractSeat{
		SysUserID: member.ID, ContractID: contract.ID,
		DefaultRoleID: editor.ID, Status: model.SeatStatusActive,
		AccessScope: model.ScopeListed,
		StoreAccess: model.StoreAccessList{{StoreID: storeA.ID, RoleID: editor.ID}},
	})

	token := env.token(t, member)

	w := env.do("GET", "/api/stores/"+storeA.ExternalID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 名单外的店铺：403 而不是 404，响应体同样笼统
	w = env.do("GET", "/api/stores/"+storeB.ExternalID, token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "store_not_listed")
}

func TestInviteEndpoint_DuplicateConflict(t *testing.T) {
	env := setupCtlTestEnv(t)

	owner := env.user(t, "owner@test.com")
	member := env.user(t, "member@test.com")
	contract := &model.Contract{Name: "合同", OwnerUserID: owner.ID, MaxStores: 10, MaxUsers: 20}
	env.db.Create(contract)

	ownerRole := env.role(t, model.RoleOwner)
	editorRole := env.role(t, model.RoleEditor)
	env.db.Create(&model.ContractSeat{
		SysUserID: owner.ID, ContractID: contract.ID,
		DefaultRoleID: ownerRole.ID, Status: model.SeatStatusActive,
		AccessScope: model.ScopeAllStores,
	})
	env.db.Create(&model.ContractSeat{
		SysUserID: member.ID, ContractID: contract.ID,
		DefaultRoleID: editorRole.ID, Status: model.SeatStatusActive,
		AccessScope: model.ScopeAllStores,
	})

	body := map[string]interface{}{
		"email":   member.Email,
		"role_id": editorRole.ID,
	}
	w := env.do("POST", fmt.Sprintf("/api/contracts/%d/seats", contract.ID), env.token(t, owner), body)
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, float64(409), resp["code"])
}
