package router

import (
	"github.com/gin-gonic/gin"

	"mktops_dev_v1_202609/internal/controller"
	"mktops_dev_v1_202609/internal/middleware"
)

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	authCtl *controller.AuthController,
	contractCtl *controller.ContractController,
	storeCtl *controller.StoreController,
	seatCtl *controller.SeatController) {

	api := r.Group("/api")
	{
		// auth 鉴权组，登录/刷新不需要 Token
		auth := api.Group("/auth")
		{
			// POST /api/auth/login
			auth.POST("/login", authCtl.Login)
			// POST /api/auth/refresh
			auth.POST("/refresh", authCtl.RefreshToken)
			// GET /api/auth/profile
			auth.GET("/profile", middleware.JWTAuth(), authCtl.Profile)
			// POST /api/auth/password
			auth.POST("/password", middleware.JWTAuth(), authCtl.ChangePassword)
		}

		// POST /api/seats/activate 邀请令牌激活，令牌即凭证，免登录
		api.POST("/seats/activate", seatCtl.Activate)

		// 其余业务路由统一要求 JWT + 审计上下文
		authed := api.Group("")
		authed.Use(middleware.JWTAuth(), middleware.AuditContext())
		{
			// contract 合同管理
			contracts := authed.Group("/contracts")
			{
				// POST /api/contracts（仅平台超管）
				contracts.POST("", contractCtl.Create)
				contracts.GET("/:contract_id", contractCtl.Get)

				// 合同下店铺
				contracts.POST("/:contract_id/stores", storeCtl.Create)
				contracts.GET("/:contract_id/stores", storeCtl.List)

				// 合同下席位
				contracts.GET("/:contract_id/seats", contractCtl.ListSeats)
				contracts.POST("/:contract_id/seats", seatCtl.Invite)
			}

			// store 按对外 ID 操作
			stores := authed.Group("/stores")
			{
				stores.GET("/:external_id", storeCtl.Get)
				stores.DELETE("/:external_id", storeCtl.Delete)
				// POST /api/stores/:external_id/assets/presign 素材直传
				stores.POST("/:external_id/assets/presign", storeCtl.PresignAsset)
				// DELETE /api/stores/:external_id/assets 素材删除
				stores.DELETE("/:external_id/assets", storeCtl.DeleteAsset)
			}

			// GET /api/roles 角色目录
			authed.GET("/roles", contractCtl.ListRoles)

			// seat 按席位 ID 操作
			seats := authed.Group("/seats")
			{
				seats.PUT("/:seat_id", seatCtl.Update)
				seats.DELETE("/:seat_id", seatCtl.Revoke)
			}
		}
	}
}
