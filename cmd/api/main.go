package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/youdub-team/youdub-backend/pkg/validator"

	"github.com/youdub-team/youdub-backend/internal/adapter/handler"
	"github.com/youdub-team/youdub-backend/internal/adapter/repository"
	"github.com/youdub-team/youdub-backend/internal/infrastructure/cache"
	"github.com/youdub-team/youdub-backend/internal/infrastructure/database"
	httpmw "github.com/youdub-team/youdub-backend/internal/infrastructure/http/middleware"
	"github.com/youdub-team/youdub-backend/internal/infrastructure/media"
	"github.com/youdub-team/youdub-backend/internal/infrastructure/storage"
	"github.com/youdub-team/youdub-backend/internal/usecase/credit"
	"github.com/youdub-team/youdub-backend/internal/usecase/dubbing"
	"github.com/youdub-team/youdub-backend/internal/usecase/mixer"
	"github.com/youdub-team/youdub-backend/pkg/config"
	"github.com/youdub-team/youdub-backend/pkg/jwt"
	"github.com/youdub-team/youdub-backend/pkg/notify"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	// Initialize dependencies
	log.Println("🔧 Initializing dependencies...")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Database
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	// Run migrations only when explicitly enabled in config.
	// Production deployments should manage schema via sql-migrate in CI/CD.
	if cfg.Database.AutoMigrate {
		if cfg.Server.Environment == "production" {
			log.Fatalf("AutoMigrate is enabled in production. Disable DB_AUTO_MIGRATE or manage schema with sql-migrate.")
		}
		log.Println("🔄 Applying migrations (development only) ...")
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	} else {
		log.Println("🔄 Skipping migrations; use sql-migrate for schema migrations in CI/CD/production")
	}

	// Initialize Redis
	log.Println("📦 Connecting to Redis...")
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize repositories
	log.Println("⚙️  Initializing repositories...")
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	transcriptRepo := repository.NewTranscriptRepository(db)
	creditRepo := repository.NewCreditRepository(db)

	// Initialize object storage
	log.Println("🪣 Initializing object storage...")
	store, err := storage.NewMinIOClient(&cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	// Initialize media pipeline
	log.Println("🎛️  Initializing media pipeline...")
	codec := media.NewFFmpegCodec(cfg.Media.FFmpegPath, cfg.Media.TempDir, logger)
	if err := codec.Available(); err != nil {
		log.Fatalf("Media codec unavailable: %v", err)
	}
	fetcher := media.NewHTTPFetcher(cfg.Media.FetchTimeout, logger)
	mixRenderer := mixer.NewMixer(codec, fetcher, cfg.Media.MP3BitrateKbps, logger)

	// Initialize credit gate
	log.Println("💳 Initializing credit gate...")
	creditGate := credit.NewGate(creditRepo, redisClient, &cfg.Credits, logger)

	// Initialize notifier
	log.Println("✉️  Initializing notifier...")
	notifier := notify.NewResendClient(&cfg.Resend)

	// Initialize dubbing service
	log.Println("🎙️  Initializing dubbing service...")
	dubbingService := dubbing.NewService(
		sessionRepo,
		transcriptRepo,
		userRepo,
		creditGate,
		mixRenderer,
		codec,
		store,
		notifier,
		&cfg.Media,
		logger,
	)

	// Initialize JWT manager and auth middleware
	log.Println("🔑 Initializing JWT manager...")
	jwtManager := jwt.NewManager(cfg.JWT.AccessSecret, cfg.JWT.AccessExpiry)
	authMW := httpmw.NewAuthMiddleware(jwtManager)

	// Initialize handlers
	log.Println("🚀 Initializing handlers...")
	dubbingHandler := handler.NewDubbing(dubbingService, logger)
	creditsHandler := handler.NewCredits(creditGate, logger)

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	router := handler.NewRouter(cfg, authMW, dubbingHandler, creditsHandler)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}
