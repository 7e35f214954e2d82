package model

// ==================== 角色常量 ====================

// 内置角色名称
const (
	RoleOwner   = "owner"   // 合同所有者，唯一
	RoleAdmin   = "admin"   // 管理员
	RoleManager = "manager" // 运营主管
	RoleEditor  = "editor"  // 编辑
	RoleViewer  = "viewer"  // 只读
)

// 内置角色等级，数值越大权限越高
const (
	LevelViewer  = 20
	LevelEditor  = 40
	LevelManager = 60
	LevelAdmin   = 80
	LevelOwner   = 100

	// LevelSuperuser 平台超管的虚拟等级，高于任何租户内角色
	LevelSuperuser = 1000
)

// Role 角色参考数据
// 初始化时种子写入，之后基本不变
type Role struct {
	BaseModel
	Name  string `gorm:"size:20;uniqueIndex;not null"`
	Level int    `gorm:"not null;comment:等级 数值越大权限越高"`

	// 权限矩阵，整体存一列 jsonb
	// 注意：矩阵是强类型结构体，禁止用字符串 key 动态取值
	Permissions PermissionMatrix `gorm:"type:jsonb;serializer:json"`
}

func (Role) TableName() string {
	return "roles"
}

// ==================== 权限矩阵 ====================

// PermissionMatrix 资源 x 动作 权限矩阵
// 每个叶子都是显式布尔位，新增权限必须同时扩充 Capability 枚举和 Has 的 switch
type PermissionMatrix struct {
	Team struct {
		ManageRoles   bool `json:"manage_roles"`   // 调整成员角色/封停成员
		InviteMembers bool `json:"invite_members"` // 邀请新成员
	} `json:"team"`
	Stores struct {
		View              bool `json:"view"`               // 查看店铺
		Edit              bool `json:"edit"`               // 编辑店铺配置
		Delete            bool `json:"delete"`             // 删除店铺
		ManageIntegration bool `json:"manage_integration"` // 绑定/刷新第三方平台授权
	} `json:"stores"`
	Campaigns struct {
		View     bool `json:"view"`     // 查看营销活动
		Edit     bool `json:"edit"`     // 编辑营销活动
		Schedule bool `json:"schedule"` // 排期发送
	} `json:"campaigns"`
	Templates struct {
		View bool `json:"view"` // 查看邮件模板
		Edit bool `json:"edit"` // 编辑邮件模板/上传素材
	} `json:"templates"`
	Analytics struct {
		ViewAll bool `json:"view_all"` // 查看全部报表
		Export  bool `json:"export"`   // 导出数据
	} `json:"analytics"`
}

// Capability 权限枚举
// 处理函数只能通过枚举做能力检查，避免字符串拼写错误导致的静默放行
type Capability int

const (
	CapTeamManageRoles Capability = iota
	CapTeamInviteMembers
	CapStoresView
	CapStoresEdit
	CapStoresDelete
	CapStoresManageIntegration
	CapCampaignsView
	CapCampaignsEdit
	CapCampaignsSchedule
	CapTemplatesView
	CapTemplatesEdit
	CapAnalyticsViewAll
	CapAnalyticsExport
)

// Has 查询矩阵上的单个能力位
func (m PermissionMatrix) Has(cap Capability) bool {
	switch cap {
	case CapTeamManageRoles:
		return m.Team.ManageRoles
	case CapTeamInviteMembers:
		return m.Team.InviteMembers
	case CapStoresView:
		return m.Stores.View
	case CapStoresEdit:
		return m.Stores.Edit
	case CapStoresDelete:
		return m.Stores.Delete
	case CapStoresManageIntegration:
		return m.Stores.ManageIntegration
	case CapCampaignsView:
		return m.Campaigns.View
	case CapCampaignsEdit:
		return m.Campaigns.Edit
	case CapCampaignsSchedule:
		return m.Campaigns.Schedule
	case CapTemplatesView:
		return m.Templates.View
	case CapTemplatesEdit:
		return m.Templates.Edit
	case CapAnalyticsViewAll:
		return m.Analytics.ViewAll
	case CapAnalyticsExport:
		return m.Analytics.Export
	}
	// 未知能力一律拒绝
	return false
}

// ==================== Role 方法 ====================

// HasCapability 能力位检查
func (r *Role) HasCapability(cap Capability) bool {
	return r.Permissions.Has(cap)
}

// AtLeast 等级门槛检查
func (r *Role) AtLeast(level int) bool {
	return r.Level >= level
}

// IsOwner 是否为所有者角色
func (r *Role) IsOwner() bool {
	return r.Name == RoleOwner
}

// ==================== 超管虚拟角色 ====================

// SuperuserRole 平台超管的合成角色
// 不落库，仅在访问裁决时返回，所有能力位全开
func SuperuserRole() *Role {
	r := &Role{
		Name:        "superuser",
		Level:       LevelSuperuser,
		Permissions: FullPermissions(),
	}
	return r
}

// FullPermissions 全开的权限矩阵 (owner / superuser 共用)
func FullPermissions() PermissionMatrix {
	var m PermissionMatrix
	m.Team.ManageRoles = true
	m.Team.InviteMembers = true
	m.Stores.View = true
	m.Stores.Edit = true
	m.Stores.Delete = true
	m.Stores.ManageIntegration = true
	m.Campaigns.View = true
	m.Campaigns.Edit = true
	m.Campaigns.Schedule = true
	m.Templates.View = true
	m.Templates.Edit = true
	m.Analytics.ViewAll = true
	m.Analytics.Export = true
	return m
}
