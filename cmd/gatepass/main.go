package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/smartcheck/gatepass/internal/handlers"
	"github.com/smartcheck/gatepass/internal/repository/postgres"
	redisrepo "github.com/smartcheck/gatepass/internal/repository/redis"
	"github.com/smartcheck/gatepass/internal/service"
	"github.com/smartcheck/gatepass/pkg/config"
	"github.com/smartcheck/gatepass/pkg/database"
	"github.com/smartcheck/gatepass/pkg/events"
	"github.com/smartcheck/gatepass/pkg/logger"
	mw "github.com/smartcheck/gatepass/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid facility timezone", "timezone", cfg.Gate.Timezone, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// The gate keeps working without Redis; scans just go unthrottled.
	var limiter service.ScanLimiter
	if redisClient, err := redisrepo.Connect(ctx, cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		logger.Warn("Redis unavailable, scan rate limiting disabled", "error", err)
	} else {
		defer redisClient.Close()
		limiter = redisrepo.NewScanLimiter(redisClient, cfg.Gate.ScanRateLimit, cfg.Gate.ScanRateWindow)
	}

	passRepo := postgres.NewPassRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	guardRepo := postgres.NewGuardRepository(pool)

	authz := service.NewRoleAuthorizer()
	passService := service.NewPassService(passRepo, auditRepo, eventBus, authz, cfg.Gate, loc)
	gateService := service.NewGateService(passRepo, auditRepo, eventBus, authz, limiter, cfg.Gate, loc)
	authService := service.NewAuthService(guardRepo, authz, cfg.Auth)
	categoryService := service.NewCategoryService(categoryRepo, authz)

	h := handlers.New(passService, gateService, authService, categoryService, cfg.Auth.JWTSecret)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("gatepass"))
	r.Use(mw.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health)
	h.Routes(r)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go runSweeper(sweepCtx, passService, cfg.Gate.SweepInterval)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down gatepass service...")
		stopSweep()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Gatepass service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting gatepass service", "port", cfg.Server.Port, "timezone", cfg.Gate.Timezone)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Gatepass service error", "error", err)
		os.Exit(1)
	}
}

// runSweeper periodically retires approved passes whose validity
// window has elapsed.
func runSweeper(ctx context.Context, passService *service.PassService, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := passService.SweepExpired(ctx); err != nil {
				logger.Error("Expiry sweep failed", "error", err)
			}
		}
	}
}
