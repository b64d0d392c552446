package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"badge-settlement-service/config"
	"badge-settlement-service/handlers"
	"badge-settlement-service/middleware"
	"badge-settlement-service/models"
	"badge-settlement-service/services"
	"badge-settlement-service/utils"
	"badge-settlement-service/workers"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openStore(cfg)

	catalog := services.DefaultCatalog()
	syncCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := store.SyncBadgeTypes(syncCtx, catalog.All()); err != nil {
		log.Printf("⚠️  Failed to sync badge types: %v", err)
	}
	cancel()

	evaluator := services.NewEvaluator(catalog)
	applier := services.NewAwardApplier(store, catalog, cfg.AwardTimeout)
	activity := services.NewActivityService(store, evaluator, applier, cfg.AwardTimeout)
	runner := services.NewSettlementRunner(
		services.NewChallengeSettler(store, evaluator, applier),
		services.NewWeeklySettler(store, evaluator, applier),
		openArchive(ctx, cfg),
	)

	var locker gocron.Locker
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL:", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to connect to redis:", err)
		}
		locker = services.NewRedisLocker(rdb, cfg.SettlementLockTTL)
	} else {
		log.Println("⚠️  REDIS_URL not set, settlements are not locked across replicas")
	}

	sched, err := runner.StartSettlementScheduler(ctx, services.SchedulerConfig{
		ChallengeInterval: cfg.ChallengeSettlementInterval,
		WeeklyCron:        cfg.WeeklySettlementCron,
		Locker:            locker,
	})
	if err != nil {
		log.Fatal("failed to start scheduler:", err)
	}

	workers.NewBadgeReconcileWorker(store, activity, cfg.ReconcileInterval, cfg.ReconcileBatchSize).Start(ctx)

	app := fiber.New()

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken))

	allowedOrigins := strings.Split(cfg.AllowedOrigins, ",")
	for i, origin := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(origin)
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(allowedOrigins, ","),
		AllowMethods: "GET,POST,OPTIONS,HEAD",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-User-ID, X-User-Roles",
		MaxAge:       86400,
	}))

	handlers.SetupBadgeRoutes(app, handlers.BadgeDeps{
		Catalog:  catalog,
		Store:    store,
		Activity: activity,
		Stream:   services.NewBadgeStream(store, catalog),
	})
	handlers.SetupSettlementRoutes(app, runner)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s (storage: %s)", cfg.Port, cfg.StorageDriver)
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", cfg.AllowedOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := sched.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

func openStore(cfg *config.Config) services.Store {
	if cfg.StorageDriver == config.DriverMemory {
		log.Println("⚠️  STORAGE_DRIVER=memory, data is lost on restart")
		return services.NewMemoryStore()
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.BadgeType{},
		&models.UserBadge{},
		&models.Line{},
		&models.LineComment{},
		&models.Challenge{},
		&models.ChallengeEntry{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}
	return services.NewGormStore(db)
}

func openArchive(ctx context.Context, cfg *config.Config) services.ReportArchiver {
	r2 := utils.R2Config{
		AccountID:       cfg.CloudflareAccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		AccessKeySecret: cfg.R2AccessKeySecret,
		Bucket:          cfg.R2BucketName,
	}
	if !r2.Enabled() {
		log.Println("⚠️  R2 not configured, settlement reports are not archived")
		return services.NoopArchiver{}
	}
	archive, err := utils.NewR2Archive(ctx, r2)
	if err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}
	return archive
}
