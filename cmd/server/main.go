package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"backend/api"
	"backend/internal/config"
	"backend/internal/identity"
	"backend/internal/infra"
	"backend/internal/logger"
	"backend/internal/metrics"
	"backend/internal/worker"
	"backend/internal/workflow"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// @title VocabFlow Approval API
// @version 1.0
// @description 词汇学习平台内容审批流程服务
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 统一加载 .env，便于集中管理 APP_* 环境变量
	loadEnvFile()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	cfg, err := config.Load(env, "")
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.String("env", env),
		zap.String("mode", cfg.Server.Mode),
	)
	metrics.RecordBuildInfo("1.0", runtime.Version(), os.Getenv("GIT_COMMIT"))

	db, err := infra.InitDatabase(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer func() {
		if err := infra.CloseDatabase(db); err != nil {
			logger.Error("数据库关闭异常", zap.Error(err))
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := runMigrations(db); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
	} else {
		logger.Info("跳过自动迁移（配置已禁用）")
	}

	rdb, err := infra.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Fatal("初始化 Redis 失败", zap.Error(err))
	}
	defer rdb.Close()

	queue := worker.NewQueueClient(cfg.Redis)
	defer queue.Close()

	services := api.BuildServices(cfg, db, rdb, queue)
	router := api.SetupRouter(cfg, db, services)

	workerServer := worker.NewServer(
		cfg.Redis,
		cfg.Worker.Concurrency,
		db,
		services.Notifier,
		enabledChannels(cfg),
		logger.Get(),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器启动",
			zap.Int("port", cfg.Server.Port),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器启动失败", zap.Error(err))
		}
	}()

	go func() {
		if err := workerServer.Run(); err != nil {
			logger.Fatal("Worker 服务器启动失败", zap.Error(err))
		}
	}()

	// 连接池指标定期上报
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			infra.ReportDBStats(db)
		}
	}()

	gracefulShutdown(server, workerServer)
}

// enabledChannels 根据配置得到启用的投递渠道，websocket 始终开启
func enabledChannels(cfg *config.Config) []string {
	channels := []string{"websocket"}
	if cfg.Notify.Email.Enabled {
		channels = append(channels, "email")
	}
	if cfg.Notify.Webhook.Enabled {
		channels = append(channels, "webhook")
	}
	return channels
}

// loadEnvFile 依次尝试加载当前目录及上级目录的 .env 文件
func loadEnvFile() {
	if path := resolveEnvPath(); path != "" {
		if err := godotenv.Load(path); err != nil {
			fmt.Printf("加载环境变量文件 %s 失败: %v\n", path, err)
		} else {
			fmt.Printf("已加载环境变量文件: %s\n", path)
		}
	} else {
		fmt.Println("未找到 .env 文件，将仅使用系统环境变量和 config/* 配置")
	}
}

// resolveEnvPath 尝试从当前工作目录、可执行文件目录向上查找根目录 .env
func resolveEnvPath() string {
	for _, path := range collectEnvCandidates() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func collectEnvCandidates() []string {
	seen := make(map[string]struct{})
	var candidates []string
	add := func(path string) {
		if path == "" {
			return
		}
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		candidates = append(candidates, path)
	}

	traverse := func(start string) {
		dir := filepath.Clean(start)
		for i := 0; i < 8; i++ {
			if dir == "" || dir == string(filepath.Separator) || dir == "." {
				break
			}
			add(filepath.Join(dir, ".env"))
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if wd, err := os.Getwd(); err == nil {
		traverse(wd)
	}
	if exe, err := os.Executable(); err == nil {
		traverse(filepath.Dir(exe))
	}

	return candidates
}

// runMigrations 执行数据库迁移
func runMigrations(db *gorm.DB) error {
	logger.Info("执行核心表自动迁移...")
	if err := infra.AutoMigrate(db,
		&identity.User{},
		&identity.UserRole{},
		&workflow.WorkflowInstance{},
		&workflow.StepRecord{},
		&workflow.Notification{},
	); err != nil {
		return err
	}
	logger.Info("核心表迁移完成")
	return nil
}

// gracefulShutdown 优雅关闭
func gracefulShutdown(server *http.Server, workerServer *worker.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	workerServer.Shutdown()

	logger.Info("服务器已安全关闭")
}
