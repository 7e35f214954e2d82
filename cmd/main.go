package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mktops_dev_v1_202609/internal/controller"
	"mktops_dev_v1_202609/internal/middleware"
	"mktops_dev_v1_202609/internal/model"
	"mktops_dev_v1_202609/internal/repository"
	"mktops_dev_v1_202609/internal/router"
	"mktops_dev_v1_202609/internal/service"
	"mktops_dev_v1_202609/internal/task"
	"mktops_dev_v1_202609/pkg/database"
	"mktops_dev_v1_202609/pkg/mailer"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func main() {
	// 1. 初始化数据库
	db := initDatabase()

	// 2. 初始化依赖
	deps := initDependencies(db)

	// 3. 启动定时任务
	initTasks(deps)

	// 4. 初始化路由
	r := gin.Default()
	router.InitRoutes(r, deps.Controllers.Auth, deps.Controllers.Contract,
		deps.Controllers.Store, deps.Controllers.Seat)

	// 5. 启动服务
	startServer(r)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Controllers *Controllers
}

// Repositories 仓库集合
type Repositories struct {
	User     repository.UserRepository
	Role     repository.RoleRepository
	Contract repository.ContractRepository
	Store    repository.StoreRepository
	Seat     repository.SeatRepository
}

// Services 服务集合
type Services struct {
	User        *service.UserService
	Access      *service.AccessService
	Seat        *service.SeatService
	Store       *service.StoreService
	Contract    *service.ContractService
	Storage     *service.StorageService
	Integration *service.IntegrationService
}

// Controllers 控制器集合
type Controllers struct {
	Auth     *controller.AuthController
	Contract *controller.ContractController
	Store    *controller.StoreController
	Seat     *controller.SeatController
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库并播种内置角色
func initDatabase() *gorm.DB {
	dsn := getEnv("DATABASE_DSN",
		"host=localhost user=postgres password=postgres dbname=mktops port=5432 sslmode=disable")

	db := database.InitDB(dsn,
		// 参考数据
		&model.Role{},
		// 账号与租户
		&model.SysUser{}, &model.Contract{},
		// 店铺与席位
		&model.Store{}, &model.ContractSeat{},
	)

	// 审计字段回填
	middleware.RegisterAuditCallbacks(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.SeedRoles(ctx, db); err != nil {
		log.Fatalf("角色播种失败: %v", err)
	}

	return db
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- JWT 配置 --------
	jwtCfg := middleware.DefaultJWTConfig()
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		jwtCfg.SecretKey = secret
	}
	middleware.SetJWTConfig(jwtCfg)

	// -------- Repo 层 --------
	repos := &Repositories{
		User:     repository.NewUserRepository(db),
		Role:     repository.NewRoleRepository(db),
		Contract: repository.NewContractRepository(db),
		Store:    repository.NewStoreRepository(db),
		Seat:     repository.NewSeatRepository(db),
	}

	// -------- 平台客户端 --------
	mailCfg := mailer.DefaultConfig()
	if base := os.Getenv("MAILSEND_BASE_URL"); base != "" {
		mailCfg.BaseURL = base
	}
	mailCfg.APIKey = getEnv("MAILSEND_API_KEY", "")
	mailClient := mailer.NewClient(mailCfg, mailer.NewCooldown())

	// -------- 业务服务 --------
	services := &Services{
		User:        service.NewUserService(repos.User),
		Access:      service.NewAccessService(repos.Store, repos.Contract, repos.Seat, repos.Role),
		Storage:     initStorageService(),
		Integration: service.NewIntegrationService(repos.Store, mailClient),
	}
	services.Seat = service.NewSeatService(repos.User, repos.Seat, repos.Role, repos.Contract, repos.Store, mailClient)
	services.Store = service.NewStoreService(repos.Store, repos.Contract, repos.Seat)
	services.Contract = service.NewContractService(repos.Contract, repos.Seat, repos.Role, repos.User)

	// -------- Controller 层 --------
	controllers := &Controllers{
		Auth:     controller.NewAuthController(services.User),
		Contract: controller.NewContractController(services.Contract, services.Access, services.User),
		Store:    controller.NewStoreController(services.Store, services.Access, services.User, services.Storage),
		Seat:     controller.NewSeatController(services.Seat, services.Access, services.User),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    services,
		Controllers: controllers,
	}
}

// initStorageService 初始化素材存储服务
func initStorageService() *service.StorageService {
	storageSvc, err := service.NewStorageService(&service.StorageConfig{
		Bucket:    getEnv("AWS_BUCKET", ""),
		Region:    getEnv("AWS_REGION", ""),
		AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		CDNDomain: getEnv("AWS_CDN_DOMAIN", ""),
		BasePath:  getEnv("STORAGE_BASE_PATH", "mktops"),
	})
	if err != nil {
		log.Printf("警告: 存储服务初始化失败: %v", err)
		return nil
	}
	return storageSvc
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(deps *Dependencies) {
	// 平台授权 Token 刷新
	tokenTask := task.NewTokenTask(deps.Services.Integration)
	tokenTask.Start()

	log.Println("定时任务已启动")
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine) {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
