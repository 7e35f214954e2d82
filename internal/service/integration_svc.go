package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mktops_dev_v1_202609/internal/model"
	"mktops_dev_v1_202609/internal/repository"
	"mktops_dev_v1_202609/pkg/mailer"
)

// ==================== IntegrationService 平台集成 ====================

// IntegrationService 第三方邮件平台授权维护
// 店铺绑定平台后持有一对 Token，周期刷新，刷新失败标记为需重新授权
type IntegrationService struct {
	storeRepo repository.StoreRepository
	platform  *mailer.Client
}

// NewIntegrationService 创建集成服务
func NewIntegrationService(storeRepo repository.StoreRepository, platform *mailer.Client) *IntegrationService {
	return &IntegrationService{storeRepo: storeRepo, platform: platform}
}

// RefreshAccessToken 刷新店铺的平台授权 Token
func (s *IntegrationService) RefreshAccessToken(ctx context.Context, store *model.Store) error {
	if store.RefreshToken == "" {
		return s.markInvalid(ctx, store, "缺少 refresh_token")
	}

	pair, err := s.platform.RefreshToken(ctx, store.ID, store.RefreshToken)
	if err != nil {
		if errors.Is(err, mailer.ErrCooldown) {
			// 冷却中不算失败，下一轮再试
			return nil
		}
		if errors.Is(err, mailer.ErrPlatformAuth) {
			return s.markInvalid(ctx, store, "平台拒绝刷新")
		}
		return fmt.Errorf("刷新店铺 %d Token 失败: %w", store.ID, err)
	}

	expiresAt := time.Now().Add(time.Duration(pair.ExpiresIn) * time.Second)
	if err := s.storeRepo.UpdateToken(ctx, store.ID, pair.AccessToken, pair.RefreshToken,
		model.TokenStatusValid, expiresAt); err != nil {
		return fmt.Errorf("保存店铺 %d Token 失败: %w", store.ID, err)
	}
	return nil
}

// FindExpiringStores 查询需要刷新授权的店铺
func (s *IntegrationService) FindExpiringStores(ctx context.Context) ([]model.Store, error) {
	// 提前一小时续期，给重试留余量
	return s.storeRepo.FindExpiringTokens(ctx, time.Now().Add(1*time.Hour))
}

// markInvalid 标记店铺需要重新授权
func (s *IntegrationService) markInvalid(ctx context.Context, store *model.Store, why string) error {
	log.Printf("[Integration] 店铺 %d 授权失效: %s", store.ID, why)
	return s.storeRepo.UpdateToken(ctx, store.ID, "", store.RefreshToken,
		model.TokenStatusInvalid, store.TokenExpiresAt)
}
