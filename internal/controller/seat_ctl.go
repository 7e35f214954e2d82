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

// SeatController 席位控制器
type SeatController struct {
	seatService   *service.SeatService
	accessService *service.AccessService
	userService   *service.UserService
}

// NewSeatController 创建席位控制器
func NewSeatController(
	seatService *service.SeatService,
	accessService *service.AccessService,
	userService *service.UserService,
) *SeatController {
	return &SeatController{
		seatService:   seatService,
		accessService: accessService,
		userService:   userService,
	}
}

func (h *SeatController) currentUser(c *gin.Context) *model.SysUser {
	user, err := h.userService.GetByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil || user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "用户状态异常"})
		c.Abort()
		return nil
	}
	return user
}

// Invite 邀请用户加入合同
func (h *SeatController) Invite(c *gin.Context) {
	contractID, err := strconv.ParseInt(c.Param("contract_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "contract_id 非法"})
		return
	}

	var req dto.InviteSeatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}

	// 邀请需要 team.invite_members 能力
	result, err := h.accessService.ResolveContract(c.Request.Context(), user, contractID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if !result.Allowed {
		abortDenied(c, result.Reason)
		return
	}
	if !h.accessService.HasCapability(result, model.CapTeamInviteMembers) {
		abortDenied(c, service.DenyInsufficientPermission)
		return
	}

	seat, err := h.seatService.Invite(c.Request.Context(), contractID, service.InviteSeatReq{
		Email:       req.Email,
		RoleID:      req.RoleID,
		AccessScope: req.AccessScope,
		StoreAccess: toAccessList(req.StoreAccess),
	}, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSeatResp(seat))
}

// Update 更新席位
func (h *SeatController) Update(c *gin.Context) {
	seatID, err := strconv.ParseInt(c.Param("seat_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "seat_id 非法"})
		return
	}

	var req dto.UpdateSeatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}

	svcReq := service.UpdateSeatReq{
		RoleID:      req.RoleID,
		AccessScope: req.AccessScope,
		Status:      req.Status,
	}
	if req.StoreAccess != nil {
		list := toAccessList(*req.StoreAccess)
		svcReq.StoreAccess = &list
	}

	seat, err := h.seatService.UpdateSeat(c.Request.Context(), seatID, svcReq, user)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSeatResp(seat))
}

// Revoke 吊销席位
func (h *SeatController) Revoke(c *gin.Context) {
	seatID, err := strconv.ParseInt(c.Param("seat_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "seat_id 非法"})
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}

	if err := h.seatService.Revoke(c.Request.Context(), seatID, user); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "success"})
}

// Activate 通过邀请令牌激活席位（免登录，令牌即凭证）
func (h *SeatController) Activate(c *gin.Context) {
	var req dto.ActivateSeatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	seat, err := h.seatService.Activate(c.Request.Context(), req.Token)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSeatResp(seat))
}

// ==================== 辅助转换 ====================

func toAccessList(items []dto.StoreAccessItem) model.StoreAccessList {
	list := make(model.StoreAccessList, 0, len(items))
	for _, item := range items {
		list = append(list, model.StoreAccessEntry{StoreID: item.StoreID, RoleID: item.RoleID})
	}
	return list
}

func toSeatResp(seat *model.ContractSeat) *dto.SeatResp {
	resp := &dto.SeatResp{
		ID:           seat.ID,
		ContractID:   seat.ContractID,
		UserID:       seat.SysUserID,
		RoleID:       seat.DefaultRoleID,
		AccessScope:  seat.AccessScope,
		Status:       seat.Status,
		InvitedBy:    seat.InvitedBy,
		InvitationAt: seat.InvitationSentAt,
		ActivatedAt:  seat.ActivatedAt,
		SuspendedAt:  seat.SuspendedAt,
		RevokedAt:    seat.RevokedAt,
	}
	if seat.DefaultRole != nil {
		resp.RoleName = seat.DefaultRole.Name
	}
	if seat.SysUser != nil {
		resp.Email = seat.SysUser.Email
	}
	resp.StoreAccess = make([]dto.StoreAccessItem, 0, len(seat.StoreAccess))
	for _, e := range seat.StoreAccess {
		resp.StoreAccess = append(resp.StoreAccess, dto.StoreAccessItem{StoreID: e.StoreID, RoleID: e.RoleID})
	}
	return resp
}
