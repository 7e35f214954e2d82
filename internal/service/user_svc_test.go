package service

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"mktops_dev_v1_202609/internal/api/dto"
	"mktops_dev_v1_202609/internal/model"
	"mktops_dev_v1_202609/internal/repository"
)

func TestUserService_Login(t *testing.T) {
	db := newSvcTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db))
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	db.Create(&model.SysUser{
		Email:    "user@test.com",
		Password: string(hash),
		IsActive: true,
	})

	resp, err := svc.Login(ctx, &dto.LoginRequest{Email: "user@test.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login 失败: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Errorf("token 为空: access=%q refresh=%q", resp.AccessToken, resp.RefreshToken)
	}

	// 错误密码
	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "user@test.com", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("错误密码 err = %v, want ErrInvalidCredentials", err)
	}

	// 不存在的邮箱
	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "nobody@test.com", Password: "x"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("未知邮箱 err = %v, want ErrInvalidCredentials", err)
	}
}

func TestUserService_Login_InactiveUser(t *testing.T) {
	db := newSvcTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db))
	ctx := context.Background()

	// 受邀未激活的账号没有密码，不允许登录
	db.Create(&model.SysUser{Email: "invited@test.com", IsActive: false})

	_, err := svc.Login(ctx, &dto.LoginRequest{Email: "invited@test.com", Password: "any"})
	if !errors.Is(err, ErrUserDisabled) {
		t.Errorf("err = %v, want ErrUserDisabled", err)
	}
}

func TestUserService_ChangePassword(t *testing.T) {
	db := newSvcTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db))
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("oldpass123"), bcrypt.DefaultCost)
	user := &model.SysUser{Email: "user@test.com", Password: string(hash), IsActive: true}
	db.Create(user)

	// 旧密码不对
	err := svc.ChangePassword(ctx, user.ID, "wrong", "newpass456")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "oldpass123", "newpass456"); err != nil {
		t.Fatalf("ChangePassword 失败: %v", err)
	}

	// 新密码可登录，旧密码失效
	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "user@test.com", Password: "newpass456"}); err != nil {
		t.Errorf("新密码登录失败: %v", err)
	}
	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "user@test.com", Password: "oldpass123"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("旧密码仍可登录: err = %v", err)
	}
}

func TestUserService_RefreshToken(t *testing.T) {
	db := newSvcTestDB(t)
	svc := NewUserService(repository.NewUserRepository(db))
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	db.Create(&model.SysUser{
		Email:    "user@test.com",
		Password: string(hash),
		IsActive: true,
	})

	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "user@test.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login 失败: %v", err)
	}

	resp, err := svc.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("RefreshToken 失败: %v", err)
	}
	if resp.AccessToken == "" {
		t.Errorf("access_token 为空")
	}

	// access token 不能拿来刷新
	_, err = svc.RefreshToken(ctx, &dto.RefreshTokenRequest{RefreshToken: login.AccessToken})
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}
