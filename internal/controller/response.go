package controller

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"mktops_dev_v1_202609/internal/middleware"
	"mktops_dev_v1_202609/internal/service"
)

// ==================== 统一错误映射 ====================

// 对外只返回笼统提示：拒绝原因代码会暴露租户内部结构（有没有席位、
// 有哪些店铺），只进日志和审计，不进响应体

// abortDenied 按拒绝原因返回 HTTP 状态
func abortDenied(c *gin.Context, reason service.DenyReason) {
	log.Printf("[HTTP] %s %s 拒绝 user=%d email=%s reason=%s",
		c.Request.Method, c.FullPath(), middleware.GetUserID(c), middleware.GetEmail(c), reason)

	if reason == service.DenyNotFound {
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "资源不存在"})
		return
	}
	c.JSON(http.StatusForbidden, gin.H{"code": 403, "message": "无权限访问"})
}

// handleServiceError 服务层错误 → HTTP 状态
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrContractNotFound),
		errors.Is(err, service.ErrSeatNotFound),
		errors.Is(err, service.ErrStoreNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrRoleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "资源不存在"})

	case errors.Is(err, service.ErrDuplicateActiveSeat):
		c.JSON(http.StatusConflict, gin.H{"code": 409, "message": "席位已存在"})

	case errors.Is(err, service.ErrActorNoActiveSeat),
		errors.Is(err, service.ErrRoleEscalation),
		errors.Is(err, service.ErrCannotGrantOwner),
		errors.Is(err, service.ErrOwnerProtected),
		errors.Is(err, service.ErrSeatRevoked):
		log.Printf("[HTTP] %s %s 拒绝: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusForbidden, gin.H{"code": 403, "message": "无权限访问"})

	case errors.Is(err, service.ErrUserLimitReached),
		errors.Is(err, service.ErrStoreLimitReached),
		errors.Is(err, service.ErrStoreNotInContract),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvitationInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})

	default:
		log.Printf("[HTTP] %s %s 内部错误: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "服务器内部错误"})
	}
}
