package controller

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"mktops_dev_v1_202609/internal/api/dto"
	"mktops_dev_v1_202609/internal/middleware"
	"mktops_dev_v1_202609/internal/model"
	"mktops_dev_v1_202609/internal/service"
)

// StoreController 店铺控制器
// 访问控制统一走 AccessService：按对外 ID 裁决，再做能力位检查
type StoreController struct {
	storeService   *service.StoreService
	accessService  *service.AccessService
	userService    *service.UserService
	storageService *service.StorageService
}

// NewStoreController 创建店铺控制器
func NewStoreController(
	storeService *service.StoreService,
	accessService *service.AccessService,
	userService *service.UserService,
	storageService *service.StorageService,
) *StoreController {
	return &StoreController{
		storeService:   storeService,
		accessService:  accessService,
		userService:    userService,
		storageService: storageService,
	}
}

// currentUser 从 JWT 上下文加载当前用户
func (h *StoreController) currentUser(c *gin.Context) *model.SysUser {
	user, err := h.userService.GetByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil || user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "用户状态异常"})
		c.Abort()
		return nil
	}
	return user
}

// Create 在合同下创建店铺
func (h *StoreController) Create(c *gin.Context) {
	contractID, err := strconv.ParseInt(c.Param("contract_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "contract_id 非法"})
		return
	}

	var req dto.CreateStoreReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}

	result, err := h.accessService.ResolveContract(c.Request.Context(), user, contractID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if !result.Allowed {
		abortDenied(c, result.Reason)
		return
	}
	if !h.accessService.HasCapability(result, model.CapStoresEdit) {
		abortDenied(c, service.DenyInsufficientPermission)
		return
	}

	store, err := h.storeService.Create(c.Request.Context(), contractID, service.CreateStoreReq{
		Name:        req.Name,
		Platform:    req.Platform,
		Integration: req.Integration,
	}, user.ID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toStoreResp(store))
}

// List 合同下店铺列表
func (h *StoreController) List(c *gin.Context) {
	contractID, err := strconv.ParseInt(c.Param("contract_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "contract_id 非法"})
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}

	result, err := h.accessService.ResolveContract(c.Request.Context(), user, contractID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if !result.Allowed {
		abortDenied(c, result.Reason)
		return
	}

	stores, err := h.storeService.ListByContract(c.Request.Context(), contractID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	// listed 范围的席位只展示名单内的店铺
	list := make([]*dto.StoreResp, 0, len(stores))
	for i := range stores {
		store := &stores[i]
		if !result.Superuser && result.Seat != nil && result.Seat.AccessScope == model.ScopeListed {
			if _, ok := result.Seat.FindStoreAccess(store.ID); !ok {
				continue
			}
		}
		list = append(list, toStoreResp(store))
	}

	c.JSON(http.StatusOK, gin.H{"data": list, "total": len(list)})
}

// Get 店铺详情
func (h *StoreController) Get(c *gin.Context) {
	user := h.currentUser(c)
	if user == nil {
		return
	}

	result, err := h.accessService.Resolve(c.Request.Context(), user, c.Param("external_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if !result.Allowed {
		abortDenied(c, result.Reason)
		return
	}
	if !h.accessService.HasCapability(result, model.CapStoresView) {
		abortDenied(c, service.DenyInsufficientPermission)
		return
	}

	c.JSON(http.StatusOK, toStoreResp(result.Store))
}

// Delete 软删除店铺（触发级联清理）
func (h *StoreController) Delete(c *gin.Context) {
	user := h.currentUser(c)
	if user == nil {
		return
	}

	result, err := h.accessService.Resolve(c.Request.Context(), user, c.Param("external_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if !result.Allowed {
		abortDenied(c, result.Reason)
		return
	}
	if !h.accessService.HasCapability(result, model.CapStoresDelete) {
		abortDenied(c, service.DenyInsufficientPermission)
		return
	}

	if err := h.storeService.OnStoreDeleted(c.Request.Context(), result.Store, user.ID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "success"})
}

// PresignAsset 生成模板素材直传 URL
func (h *StoreController) PresignAsset(c *gin.Context) {
	var req dto.PresignAssetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}

	result, err := h.accessService.Resolve(c.Request.Context(), user, c.Param("external_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if !result.Allowed {
		abortDenied(c, result.Reason)
		return
	}
	if !h.accessService.HasCapability(result, model.CapTemplatesEdit) {
		abortDenied(c, service.DenyInsufficientPermission)
		return
	}
	if h.storageService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": 503, "message": "素材存储未配置"})
		return
	}

	uploadURL, objectKey, err := h.storageService.PresignUpload(
		c.Request.Context(), result.Store.ContractID, req.FileName, req.ContentType)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PresignAssetResp{
		UploadURL: uploadURL,
		ObjectKey: objectKey,
		PublicURL: h.storageService.PublicURL(objectKey),
	})
}

// DeleteAsset 删除模板素材
// 对象 key 必须落在店铺所属合同的路径下，防止跨合同删除
func (h *StoreController) DeleteAsset(c *gin.Context) {
	var req dto.DeleteAssetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}

	result, err := h.accessService.Resolve(c.Request.Context(), user, c.Param("external_id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if !result.Allowed {
		abortDenied(c, result.Reason)
		return
	}
	if !h.accessService.HasCapability(result, model.CapTemplatesEdit) {
		abortDenied(c, service.DenyInsufficientPermission)
		return
	}
	if h.storageService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": 503, "message": "素材存储未配置"})
		return
	}

	contractPrefix := fmt.Sprintf("/contracts/%d/assets/", result.Store.ContractID)
	if !strings.Contains(req.ObjectKey, contractPrefix) {
		abortDenied(c, service.DenyInsufficientPermission)
		return
	}

	if err := h.storageService.Delete(c.Request.Context(), req.ObjectKey); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "success"})
}

// toStoreResp 转换为 DTO
func toStoreResp(store *model.Store) *dto.StoreResp {
	return &dto.StoreResp{
		ExternalID:  store.ExternalID,
		Name:        store.Name,
		ContractID:  store.ContractID,
		Platform:    store.Platform,
		TokenStatus: store.TokenStatus,
		IsActive:    store.IsActive,
		CreatedAt:   store.CreatedAt,
	}
}
