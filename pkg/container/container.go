package container

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/KurisuuChan/medcore/internal/config"
	infraCache "github.com/KurisuuChan/medcore/internal/infrastructure/cache"
	"github.com/KurisuuChan/medcore/internal/infrastructure/database"
	"github.com/KurisuuChan/medcore/internal/infrastructure/email"
	"github.com/KurisuuChan/medcore/internal/infrastructure/products"
	"github.com/KurisuuChan/medcore/internal/infrastructure/settings"
	"github.com/KurisuuChan/medcore/internal/infrastructure/users"
	"github.com/KurisuuChan/medcore/pkg/cache"
	"github.com/KurisuuChan/medcore/pkg/jwt"

	"github.com/KurisuuChan/medcore/internal/domains/notification/dedupe"
	notificationHandler "github.com/KurisuuChan/medcore/internal/domains/notification/handler"
	notificationRepo "github.com/KurisuuChan/medcore/internal/domains/notification/repository"
	notificationService "github.com/KurisuuChan/medcore/internal/domains/notification/service"
)

// Container wires the notification core's infrastructure, repositories,
// services and handlers in dependency order, narrowed to what this module
// needs.
type Container struct {
	Config      *config.Config
	DB          *database.PostgresDB
	Cache       cache.Cache
	JWTManager  *jwt.Manager
	AsynqClient *asynq.Client

	EmailSender email.Sender

	// Repositories
	NotificationRepo   notificationRepo.NotificationRepository
	CooldownRepo       notificationRepo.CooldownRepository
	ScanScheduleRepo   notificationRepo.ScanScheduleRepository

	// Reference adapters (ports into the surrounding pharmacy system)
	ProductSource  notificationService.ProductSource
	UserSource     notificationService.UserSource
	SettingsSource notificationService.SettingsSource
	ScanLock       notificationService.ScanLock

	// Services
	Deduper     *dedupe.Deduper
	Dispatcher  notificationService.Dispatcher
	EmailRouter notificationService.EmailRouter
	Scanner     notificationService.Scanner
	RealtimeBus notificationService.RealtimeBus

	// Handlers
	NotificationHandler notificationHandler.NotificationHandler
	RealtimeHandler     notificationHandler.RealtimeHandler
}

// ========================================
// CONSTRUCTOR
// ========================================
func NewContainer() (*Container, error) {
	c := &Container{}

	if err := c.initInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to init infrastructure: %w", err)
	}

	if err := c.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := c.initAdapters(); err != nil {
		return nil, fmt.Errorf("failed to init adapters: %w", err)
	}

	if err := c.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := c.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	log.Println("✅ Container initialized successfully")
	return c, nil
}

// ========================================
// STEP 1: INFRASTRUCTURE
// ========================================
func (c *Container) initInfrastructure() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	log.Println("✅ Config loaded")

	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.HealthCheck(context.Background()); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	c.DB = db
	log.Println("✅ Database connected")

	redisCache := infraCache.NewRedisCache(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if rc, ok := redisCache.(*infraCache.RedisCache); ok {
		if err := rc.Connect(context.Background()); err != nil {
			log.Printf("⚠️  Redis connection failed (non-critical): %v", err)
		} else {
			log.Println("✅ Redis connected")
		}
	}
	c.Cache = redisCache

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret)
	log.Println("✅ JWT Manager initialized")

	c.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	log.Println("✅ Asynq Client initialized")

	if cfg.SMTP.Username != "" {
		c.EmailSender = email.NewAuthenticatedSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
	} else {
		c.EmailSender = email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From)
	}
	log.Println("✅ Email Sender (SMTP) initialized")

	return nil
}

// ========================================
// STEP 2: REPOSITORIES
// ========================================
func (c *Container) initRepositories() error {
	pool := c.DB.Pool

	c.NotificationRepo = notificationRepo.NewNotificationRepository(pool)
	c.CooldownRepo = notificationRepo.NewCooldownRepository(pool)
	c.ScanScheduleRepo = notificationRepo.NewScanScheduleRepository(pool)

	log.Println("✅ Notification repositories initialized")
	return nil
}

// ========================================
// STEP 3: REFERENCE ADAPTERS
// ========================================
// These give the notification core its read-only view into the rest of the
// pharmacy system (catalog, staff directory, tunable settings) and the
// cross-instance coordination primitive the Scanner needs.
func (c *Container) initAdapters() error {
	pool := c.DB.Pool

	c.ProductSource = products.NewPostgresSource(pool)
	c.UserSource = users.NewPostgresSource(pool)
	c.SettingsSource = settings.NewPostgresSource(pool)

	if rc, ok := c.Cache.(*infraCache.RedisCache); ok {
		c.ScanLock = infraCache.NewRedisScanLock(rc)
	}

	log.Println("✅ Reference adapters initialized")
	return nil
}

// ========================================
// STEP 4: SERVICES
// ========================================
func (c *Container) initServices() error {
	c.Deduper = dedupe.New(c.CooldownRepo)
	log.Println("  ✓ Deduper")

	c.RealtimeBus = notificationService.NewRealtimeBus()
	log.Println("  ✓ RealtimeBus")

	var recipientOverride notificationService.RecipientOverride
	if override := c.Config.SMTP.RecipientOverride; override != "" {
		recipientOverride = func(string) string { return override }
	}
	c.EmailRouter = notificationService.NewEmailRouter(c.EmailSender, c.UserSource, c.NotificationRepo, recipientOverride)
	log.Println("  ✓ EmailRouter")

	c.Dispatcher = notificationService.NewDispatcher(c.NotificationRepo, c.Deduper, c.EmailRouter, c.RealtimeBus)
	log.Println("  ✓ Dispatcher")

	c.Scanner = notificationService.NewScanner(
		c.ProductSource,
		c.UserSource,
		c.SettingsSource,
		c.ScanScheduleRepo,
		c.Dispatcher,
		c.EmailRouter,
		c.ScanLock,
	)
	log.Println("  ✓ Scanner")

	return nil
}

// ========================================
// STEP 5: HANDLERS
// ========================================
func (c *Container) initHandlers() error {
	c.NotificationHandler = notificationHandler.NewNotificationHandler(c.Dispatcher, c.Scanner)
	c.RealtimeHandler = notificationHandler.NewRealtimeHandler(c.RealtimeBus)

	log.Println("✅ All handlers initialized")
	return nil
}

// ========================================
// CLEANUP
// ========================================
func (c *Container) Cleanup() {
	log.Println("🧹 Cleaning up container resources...")

	if c.DB != nil && c.DB.Pool != nil {
		c.DB.Pool.Close()
		log.Println("  ✓ Database connections closed")
	}

	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			log.Printf("  ⚠️  AsynqClient close failed: %v", err)
		} else {
			log.Println("  ✓ Asynq client closed")
		}
	}

	if c.Cache != nil {
		if rc, ok := c.Cache.(*infraCache.RedisCache); ok {
			if err := rc.Close(); err != nil {
				log.Printf("  ⚠️  Failed to close Redis: %v", err)
			} else {
				log.Println("  ✓ Redis connections closed")
			}
		}
	}

	log.Println("✅ Container cleanup completed")
}
