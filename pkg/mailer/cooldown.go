package mailer

import (
	"fmt"
	"sync"
	"time"
)

// ==================== Cooldown 冷却限流器 ====================

// Cooldown 按 key 的冷却限流器
// 防止对邮件平台的刷新/发信请求过于频繁触发平台限流。
// 作为组件注入到 Client，不做进程级全局变量，多实例部署下各自独立冷却
type Cooldown struct {
	locks sync.Map // key -> *cooldownEntry
}

type cooldownEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// NewCooldown 创建冷却限流器
func NewCooldown() *Cooldown {
	return &Cooldown{}
}

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查是否允许执行，允许时刷新最后执行时间
// key: 限流键，如 "store:123:token_refresh"
func (c *Cooldown) Check(key string, interval time.Duration) CheckResult {
	actual, _ := c.locks.LoadOrStore(key, &cooldownEntry{})
	entry := actual.(*cooldownEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(entry.lastTime)

	if elapsed < interval {
		return CheckResult{
			Allowed:    false,
			RetryAfter: interval - elapsed,
		}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// Reset 重置指定 key 的冷却
func (c *Cooldown) Reset(key string) {
	c.locks.Delete(key)
}

// StoreKey 生成店铺级限流 Key
func StoreKey(storeID int64, action string) string {
	return fmt.Sprintf("store:%d:%s", storeID, action)
}
