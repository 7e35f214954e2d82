package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ==================== 邮件平台客户端 ====================

// 平台 API 错误
var (
	ErrCooldown     = errors.New("操作过于频繁，冷却中")
	ErrPlatformAuth = errors.New("平台授权无效，需要重新授权")
)

// Config 平台客户端配置
type Config struct {
	BaseURL   string        // 平台 API 地址
	APIKey    string        // 应用密钥
	Timeout   time.Duration // 请求超时
	RetryNum  int           // 重试次数
	TokenCool time.Duration // 单店铺 Token 刷新冷却
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		BaseURL:   "https://api.mailsend.example.com/v1",
		Timeout:   10 * time.Second,
		RetryNum:  3,
		TokenCool: 5 * time.Minute,
	}
}

// Client 第三方邮件平台客户端
// 负责邀请邮件投递和店铺授权 Token 刷新，限流器注入而非全局
type Client struct {
	http *resty.Client
	cool *Cooldown
	cfg  Config
}

// NewClient 创建平台客户端
func NewClient(cfg Config, cool *Cooldown) *Client {
	if cool == nil {
		cool = NewCooldown()
	}

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryNum).
		SetHeader("x-api-key", cfg.APIKey)

	return &Client{http: http, cool: cool, cfg: cfg}
}

// ==================== 邀请邮件 ====================

// SendInvitation 投递席位邀请邮件
func (c *Client) SendInvitation(ctx context.Context, email, contractName, token string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"template": "seat_invitation",
			"to":       email,
			"vars": map[string]string{
				"contract_name": contractName,
				"invite_token":  token,
			},
		}).
		Post("/transactional/send")
	if err != nil {
		return fmt.Errorf("邀请邮件请求失败: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("邀请邮件被平台拒绝 (状态码 %d): %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// ==================== Token 刷新 ====================

// TokenPair 平台授权 Token
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // 秒
}

// RefreshToken 刷新店铺的平台授权
// 同一店铺在冷却期内重复刷新直接拒绝
func (c *Client) RefreshToken(ctx context.Context, storeID int64, refreshToken string) (*TokenPair, error) {
	if check := c.cool.Check(StoreKey(storeID, "token_refresh"), c.cfg.TokenCool); !check.Allowed {
		return nil, fmt.Errorf("%w (还需等待 %s)", ErrCooldown, check.RetryAfter.Round(time.Second))
	}

	var pair TokenPair
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": refreshToken,
		}).
		SetResult(&pair).
		Post("/oauth/token")
	if err != nil {
		return nil, fmt.Errorf("Token 刷新请求失败: %w", err)
	}
	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return nil, ErrPlatformAuth
	}
	if resp.IsError() {
		return nil, fmt.Errorf("Token 刷新被平台拒绝 (状态码 %d): %s", resp.StatusCode(), resp.String())
	}
	return &pair, nil
}
