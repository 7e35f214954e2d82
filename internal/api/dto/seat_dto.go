package dto

import "time"

// StoreAccessItem 单店铺角色覆盖
type StoreAccessItem struct {
	StoreID int64 `json:"store_id" binding:"required"`
	RoleID  int64 `json:"role_id" binding:"required"`
}

// InviteSeatReq 邀请请求
type InviteSeatReq struct {
	Email       string            `json:"email" binding:"required,email"`
	RoleID      int64             `json:"role_id" binding:"required"`
	AccessScope string            `json:"access_scope" binding:"omitempty,oneof=all_stores listed"`
	StoreAccess []StoreAccessItem `json:"store_access"`
}

// UpdateSeatReq 席位更新请求，空字段表示不变
type UpdateSeatReq struct {
	RoleID      *int64             `json:"role_id"`
	AccessScope *string            `json:"access_scope" binding:"omitempty,oneof=all_stores listed"`
	StoreAccess *[]StoreAccessItem `json:"store_access"`
	Status      *string            `json:"status" binding:"omitempty,oneof=pending active suspended revoked"`
}

// RoleResp 角色目录条目
type RoleResp struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// ActivateSeatReq 激活请求
type ActivateSeatReq struct {
	Token string `json:"token" binding:"required"`
}

// SeatResp 席位响应
type SeatResp struct {
	ID            int64             `json:"id"`
	ContractID    int64             `json:"contract_id"`
	UserID        int64             `json:"user_id"`
	Email         string            `json:"email,omitempty"`
	RoleID        int64             `json:"role_id"`
	RoleName      string            `json:"role_name,omitempty"`
	AccessScope   string            `json:"access_scope"`
	StoreAccess   []StoreAccessItem `json:"store_access"`
	Status        string            `json:"status"`
	InvitedBy     int64             `json:"invited_by,omitempty"`
	InvitationAt  *time.Time        `json:"invitation_sent_at,omitempty"`
	ActivatedAt   *time.Time        `json:"activated_at,omitempty"`
	SuspendedAt   *time.Time        `json:"suspended_at,omitempty"`
	RevokedAt     *time.Time        `json:"revoked_at,omitempty"`
}
