package task

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mktops_dev_v1_202609/internal/model"
	"mktops_dev_v1_202609/internal/service"
)

// TokenTask 平台授权保活任务
// 周期扫描即将过期的店铺授权并刷新
type TokenTask struct {
	Integration *service.IntegrationService
	Cron        *cron.Cron

	// 控制并发刷新的数量，避免对平台 API 造成突发压力
	concurrencyLimit int
	sleepTime        time.Duration
}

// NewTokenTask 创建保活任务
func NewTokenTask(integration *service.IntegrationService) *TokenTask {
	return &TokenTask{
		Integration:      integration,
		Cron:             cron.New(cron.WithSeconds()), // 支持秒级控制
		concurrencyLimit: 20,
		sleepTime:        50 * time.Millisecond, // 每个协程启动间隔，平滑波峰
	}
}

// Start 启动定时任务
func (t *TokenTask) Start() {
	// 首次执行
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		log.Println("[Task] 服务启动，正在执行首次授权检查...")
		t.refreshJob(ctx)
	}()

	_, err := t.Cron.AddFunc("0 0/40 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		t.refreshJob(ctx)
	})

	if err != nil {
		log.Fatalf("无法启动授权保活任务: %v", err)
	}

	t.Cron.Start()
	log.Println("平台授权保活任务已启动 (每40分钟检查一次)")
}

// Stop 停止定时任务
func (t *TokenTask) Stop() {
	t.Cron.Stop()
}

// refreshJob 自动刷新逻辑
func (t *TokenTask) refreshJob(ctx context.Context) {
	stores, err := t.Integration.FindExpiringStores(ctx)
	if err != nil {
		log.Printf("[Cron] 授权过期状态查询失败: %v", err)
		return
	}

	// 信号量通道限制并发上限
	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup

	log.Printf("[Cron] 开始刷新 %d 个店铺的平台授权，并发上限: %d", len(stores), t.concurrencyLimit)

	for _, store := range stores {
		select {
		case <-ctx.Done():
			log.Println("[Cron] 任务超时停止")
			return
		default:
		}

		sem <- struct{}{}
		wg.Add(1)

		// 平滑波峰
		time.Sleep(t.sleepTime)

		go func(s model.Store) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := t.Integration.RefreshAccessToken(ctx, &s); err != nil {
				// 日志仅记录，不中断其他协程
				log.Printf("[Cron] 店铺 [%s] 刷新失败: %v", s.Name, err)
			}
		}(store)
	}

	wg.Wait()
	log.Println("[Cron] 本轮授权刷新任务完成")
}
