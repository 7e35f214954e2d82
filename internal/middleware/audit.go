package middleware

import (
	"context"
	"reflect"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ==================== 审计上下文 ====================

// 审计只记录操作者 ID，写进 CreatedBy/UpdatedBy 两列

type actorKey struct{}

// WithActor 把操作者 ID 注入 context
func WithActor(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorID 从 context 取操作者 ID，未注入返回 0
func ActorID(ctx context.Context) int64 {
	if id, ok := ctx.Value(actorKey{}).(int64); ok {
		return id
	}
	return 0
}

// AuditContext 把 JWT 中的用户 ID 注入 request context，供 GORM 回调读取
func AuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := GetUserID(c); userID > 0 {
			c.Request = c.Request.WithContext(WithActor(c.Request.Context(), userID))
		}
		c.Next()
	}
}

// ==================== GORM 回调 ====================

// RegisterAuditCallbacks 注册审计回调：Create 填 CreatedBy/UpdatedBy，Update 填 UpdatedBy
// 字段已有值（服务层显式指定操作者）时不覆盖
func RegisterAuditCallbacks(db *gorm.DB) {
	db.Callback().Create().Before("gorm:create").Register("audit:create", func(tx *gorm.DB) {
		stampActor(tx, "CreatedBy", "UpdatedBy")
	})
	db.Callback().Update().Before("gorm:update").Register("audit:update", func(tx *gorm.DB) {
		stampActor(tx, "UpdatedBy")
	})
}

// stampActor 把 context 里的操作者 ID 写入指定审计字段（仅当模型有该字段且值为零）
func stampActor(tx *gorm.DB, fieldNames ...string) {
	if tx.Statement.Context == nil || tx.Statement.Schema == nil {
		return
	}
	actor := ActorID(tx.Statement.Context)
	if actor == 0 {
		return
	}

	for _, name := range fieldNames {
		field := tx.Statement.Schema.LookUpField(name)
		if field == nil {
			continue
		}

		rv := tx.Statement.ReflectValue
		switch rv.Kind() {
		case reflect.Struct:
			if _, isZero := field.ValueOf(tx.Statement.Context, rv); isZero {
				_ = field.Set(tx.Statement.Context, rv, actor)
			}
		case reflect.Slice:
			// 批量写入逐行打标
			for i := 0; i < rv.Len(); i++ {
				row := rv.Index(i)
				if _, isZero := field.ValueOf(tx.Statement.Context, row); isZero {
					_ = field.Set(tx.Statement.Context, row, actor)
				}
			}
		}
	}
}
