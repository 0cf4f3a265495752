package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"incident-report-system/handlers"
	"incident-report-system/middleware"
	"incident-report-system/models"
	"incident-report-system/services"
	"incident-report-system/utils"
	"incident-report-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const uploadRoot = "./uploads"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 64 * 1024 * 1024, // 5 photos × 10MB plus form overhead
	})

	// 🔐 GLOBAL: only Gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		log.Println("⚠️  ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOrigins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-User-ID, X-User-Role",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.PointTransaction{},
		&models.Report{},
		&models.Photo{},
		&models.Comment{},
		&models.Upvote{},
		&models.Badge{},
		&models.UserBadge{},
		&models.Notification{},
		&models.AuditEntry{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.EnsureUploadDirs(uploadRoot); err != nil {
		log.Fatal("failed to ensure upload dirs:", err)
	}

	var storage utils.Storage
	switch os.Getenv("STORAGE_BACKEND") {
	case "r2":
		r2, err := utils.NewR2Storage()
		if err != nil {
			log.Fatal("failed to initialize R2 storage:", err)
		}
		storage = r2
		log.Println("✅ Media storage: Cloudflare R2")
	default:
		storage = utils.NewDiskStorage(uploadRoot)
		log.Println("✅ Media storage: local disk")
	}

	geoService := services.NewGeoService(db)
	if raw := os.Getenv("ONSITE_THRESHOLD_KM"); raw != "" {
		if km, err := strconv.ParseFloat(raw, 64); err == nil && km > 0 {
			geoService.ThresholdKm = km
		}
	}

	mediaService := services.NewMediaService(storage, uploadRoot+"/"+utils.TmpDir)
	rewardService := services.NewRewardService(db)
	notificationService := services.NewNotificationService(db, os.Getenv("ALERT_WEBHOOK_URL"))
	limiter := middleware.NewSlidingWindowLimiter(1*time.Minute, 10)
	reportService := services.NewReportService(db, mediaService, geoService, rewardService,
		notificationService, &services.DBAuditSink{DB: db}, limiter)

	if err := rewardService.SeedDefaultBadges(); err != nil {
		log.Fatal("failed to seed badge catalog:", err)
	}

	handlers.SetupReportRoutes(app, reportService)
	handlers.SetupEngagementRoutes(app, rewardService, notificationService)

	app.Static("/uploads", uploadRoot)

	cleanupSched, err := workers.StartNotificationCleanup(notificationService)
	if err != nil {
		log.Fatal("failed to start notification cleanup worker:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Notification cleanup worker running (hourly)")
	log.Printf("✅ CORS configured for origins: %s", strings.TrimSpace(allowedOrigins))

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = cleanupSched.Shutdown()
	_ = app.Shutdown()
}
