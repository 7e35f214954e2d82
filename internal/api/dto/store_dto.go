package dto

import "time"

// CreateStoreReq 建店请求
type CreateStoreReq struct {
	Name        string                 `json:"name" binding:"required"`
	Platform    string                 `json:"platform"`
	Integration map[string]interface{} `json:"integration"`
}

// StoreResp 店铺响应
type StoreResp struct {
	ExternalID  string    `json:"external_id"`
	Name        string    `json:"name"`
	ContractID  int64     `json:"contract_id"`
	Platform    string    `json:"platform"`
	TokenStatus string    `json:"token_status"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateContractReq 合同建档请求
type CreateContractReq struct {
	Name         string   `json:"name" binding:"required"`
	BillingEmail string   `json:"billing_email" binding:"omitempty,email"`
	OwnerUserID  int64    `json:"owner_user_id" binding:"required"`
	MaxStores    int      `json:"max_stores"`
	MaxUsers     int      `json:"max_users"`
	FeatureFlags []string `json:"feature_flags"`
}

// ContractResp 合同响应
type ContractResp struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	OwnerUserID  int64  `json:"owner_user_id"`
	StoreCount   int    `json:"store_count"`
	MaxStores    int    `json:"max_stores"`
	MaxUsers     int    `json:"max_users"`
	BillingEmail string `json:"billing_email,omitempty"`
}

// PresignAssetReq 模板素材直传请求
type PresignAssetReq struct {
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// PresignAssetResp 模板素材直传响应
type PresignAssetResp struct {
	UploadURL string `json:"upload_url"`
	ObjectKey string `json:"object_key"`
	PublicURL string `json:"public_url,omitempty"`
}

// DeleteAssetReq 模板素材删除请求
type DeleteAssetReq struct {
	ObjectKey string `json:"object_key" binding:"required"`
}
