package api

import (
	"time"

	"backend/internal/auth"
	"backend/internal/config"
	"backend/internal/identity"
	"backend/internal/notification"
	"backend/internal/worker"
	"backend/internal/workflow"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services 进程内显式构造的服务集合，不使用全局单例
type Services struct {
	Registry   *workflow.Registry
	Identity   *identity.Service
	Dispatcher *workflow.Dispatcher
	Manager    *workflow.Manager
	Scheduler  *workflow.Scheduler
	Stats      *workflow.Stats
	Hub        *notification.WebSocketHub
	Notifier   *notification.MultiNotifier
	JWT        *auth.JWTService
	Queue      *worker.QueueClient
}

// BuildServices 构造全部服务。queue 可为 nil（如测试或无 redis 环境），
// 此时通知只落库不投递。
func BuildServices(cfg *config.Config, db *gorm.DB, rdb redis.UniversalClient, queue *worker.QueueClient) *Services {
	registry := workflow.NewRegistry()
	identitySvc := identity.NewService(db)

	var offline notification.OfflineStore
	if rdb != nil {
		offline = notification.NewRedisOfflineStore(rdb, 100, time.Hour)
	} else {
		offline = notification.NewMemoryOfflineStore(50)
	}
	hub := notification.NewWebSocketHub(notification.WithOfflineStore(offline))

	var email *notification.EmailNotifier
	if cfg.Notify.Email.Enabled {
		email = notification.NewEmailNotifier(&notification.EmailConfig{
			SMTPHost: cfg.Notify.Email.Host,
			SMTPPort: cfg.Notify.Email.Port,
			Username: cfg.Notify.Email.Username,
			Password: cfg.Notify.Email.Password,
			From:     cfg.Notify.Email.From,
			FromName: "VocabFlow",
		})
	}
	var webhook *notification.WebhookNotifier
	if cfg.Notify.Webhook.Enabled {
		webhook = notification.NewWebhookNotifier(&notification.WebhookConfig{
			DefaultURL: cfg.Notify.Webhook.URL,
			Timeout:    time.Duration(cfg.Notify.Webhook.TimeoutSeconds) * time.Second,
		})
	}
	notifier := notification.NewMultiNotifier(email, webhook, hub)

	dispatcherOpts := []workflow.DispatcherOption{}
	if queue != nil {
		dispatcherOpts = append(dispatcherOpts, workflow.WithEnqueuer(queue))
	}
	dispatcher := workflow.NewDispatcher(db, identitySvc, dispatcherOpts...)

	manager := workflow.NewManager(db, registry, identitySvc,
		workflow.WithDispatcher(dispatcher))
	scheduler := workflow.NewScheduler(db, manager, identitySvc)
	stats := workflow.NewStats(db, rdb)

	jwtSvc := auth.NewJWTService(
		cfg.Auth.JWTSecret,
		cfg.Auth.Issuer,
		time.Duration(cfg.Auth.AccessTokenExpire)*time.Minute,
		time.Duration(cfg.Auth.RefreshTokenExpire)*time.Hour,
		rdb,
	)

	return &Services{
		Registry:   registry,
		Identity:   identitySvc,
		Dispatcher: dispatcher,
		Manager:    manager,
		Scheduler:  scheduler,
		Stats:      stats,
		Hub:        hub,
		Notifier:   notifier,
		JWT:        jwtSvc,
		Queue:      queue,
	}
}
