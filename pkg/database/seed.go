package database

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"mktops_dev_v1_202609/internal/model"
)

// ==================== 内置角色矩阵 ====================

func viewerMatrix() model.PermissionMatrix {
	var m model.PermissionMatrix
	m.Stores.View = true
	m.Campaigns.View = true
	m.Templates.View = true
	return m
}

func editorMatrix() model.PermissionMatrix {
	m := viewerMatrix()
	m.Campaigns.Edit = true
	m.Templates.Edit = true
	return m
}

func managerMatrix() model.PermissionMatrix {
	m := editorMatrix()
	m.Team.InviteMembers = true
	m.Stores.Edit = true
	m.Campaigns.Schedule = true
	m.Analytics.ViewAll = true
	return m
}

func adminMatrix() model.PermissionMatrix {
	m := managerMatrix()
	m.Team.ManageRoles = true
	m.Stores.Delete = true
	m.Stores.ManageIntegration = true
	m.Analytics.Export = true
	return m
}

// builtinRoles 内置角色表，按 Name 幂等写入
// owner 不通过邀请授予，只在合同建档时落在所有者席位上
func builtinRoles() []model.Role {
	return []model.Role{
		{Name: model.RoleViewer, Level: model.LevelViewer, Permissions: viewerMatrix()},
		{Name: model.RoleEditor, Level: model.LevelEditor, Permissions: editorMatrix()},
		{Name: model.RoleManager, Level: model.LevelManager, Permissions: managerMatrix()},
		{Name: model.RoleAdmin, Level: model.LevelAdmin, Permissions: adminMatrix()},
		{Name: model.RoleOwner, Level: model.LevelOwner, Permissions: model.FullPermissions()},
	}
}

// SeedRoles 幂等写入内置角色
// 已存在的角色按 Name 更新等级和矩阵，保持库里定义与代码一致
func SeedRoles(ctx context.Context, db *gorm.DB) error {
	for _, role := range builtinRoles() {
		var existing model.Role
		err := db.WithContext(ctx).Where("name = ?", role.Name).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := db.WithContext(ctx).Create(&role).Error; err != nil {
				return fmt.Errorf("创建角色 %s 失败: %w", role.Name, err)
			}
			log.Printf("[DB] 角色 %s (level=%d) 已创建", role.Name, role.Level)
		case err != nil:
			return fmt.Errorf("查询角色 %s 失败: %w", role.Name, err)
		default:
			update := model.Role{Level: role.Level, Permissions: role.Permissions}
			if err := db.WithContext(ctx).Model(&existing).
				Select("level", "permissions").Updates(&update).Error; err != nil {
				return fmt.Errorf("更新角色 %s 失败: %w", role.Name, err)
			}
		}
	}
	return nil
}
