package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mktops_dev_v1_202609/internal/api/dto"
	"mktops_dev_v1_202609/internal/middleware"
	"mktops_dev_v1_202609/internal/model"
	"mktops_dev_v1_202609/internal/service"
)

// ContractController 合同控制器
type ContractController struct {
	contractService *service.ContractService
	accessService   *service.AccessService
	userService     *service.UserService
}

// NewContractController 创建合同控制器
func NewContractController(
	contractService *service.ContractService,
	accessService *service.AccessService,
	userService *service.UserService,
) *ContractController {
	return &ContractController{
		contractService: contractService,
		accessService:   accessService,
		userService:     userService,
	}
}

func (h *ContractController) currentUser(c *gin.Context) *model.SysUser {
	user, err := h.userService.GetByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil || user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "用户状态异常"})
		c.Abort()
		return nil
	}
	return user
}

// Create 合同建档（仅平台超管）
func (h *ContractController) Create(c *gin.Context) {
	var req dto.CreateContractReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}
	if !user.IsSuperuser {
		abortDenied(c, service.DenyInsufficientPermission)
		return
	}

	contract, err := h.contractService.Create(c.Request.Context(), service.CreateContractReq{
		Name:         req.Name,
		BillingEmail: req.BillingEmail,
		OwnerUserID:  req.OwnerUserID,
		MaxStores:    req.MaxStores,
		MaxUsers:     req.MaxUsers,
		FeatureFlags: req.FeatureFlags,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toContractResp(contract))
}

// Get 合同详情
func (h *ContractController) Get(c *gin.Context) {
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

	c.JSON(http.StatusOK, toContractResp(result.Contract))
}

// ListSeats 合同下席位列表（需要 team.manage_roles 能力）
func (h *ContractController) ListSeats(c *gin.Context) {
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
	if !h.accessService.HasCapability(result, model.CapTeamManageRoles) {
		abortDenied(c, service.DenyInsufficientPermission)
		return
	}

	seats, err := h.contractService.ListSeats(c.Request.Context(), contractID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	list := make([]*dto.SeatResp, 0, len(seats))
	for i := range seats {
		list = append(list, toSeatResp(&seats[i]))
	}

	c.JSON(http.StatusOK, gin.H{"data": list, "total": len(list)})
}

// ListRoles 角色目录，邀请界面用来挑选可授予的角色
func (h *ContractController) ListRoles(c *gin.Context) {
	if h.currentUser(c) == nil {
		return
	}

	roles, err := h.contractService.ListRoles(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	list := make([]*dto.RoleResp, 0, len(roles))
	for i := range roles {
		list = append(list, &dto.RoleResp{
			ID:    roles[i].ID,
			Name:  roles[i].Name,
			Level: roles[i].Level,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": list})
}

// toContractResp 转换为 DTO
func toContractResp(contract *model.Contract) *dto.ContractResp {
	return &dto.ContractResp{
		ID:           contract.ID,
		Name:         contract.Name,
		OwnerUserID:  contract.OwnerUserID,
		StoreCount:   contract.StoreCount,
		MaxStores:    contract.MaxStores,
		MaxUsers:     contract.MaxUsers,
		BillingEmail: contract.BillingEmail,
	}
}
