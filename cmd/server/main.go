package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"franchise-billing/internal/auth"
	"franchise-billing/internal/billing"
	"franchise-billing/internal/cache"
	"franchise-billing/internal/config"
	"franchise-billing/internal/database"
	"franchise-billing/internal/db"
	h "franchise-billing/internal/http"
	"franchise-billing/internal/handlers"
	"franchise-billing/internal/health"
	"franchise-billing/internal/logger"
	"franchise-billing/internal/middleware"
	"franchise-billing/internal/repositories"
	"franchise-billing/internal/services"
	"franchise-billing/internal/storage"
	"franchise-billing/internal/whatsapp"
	"franchise-billing/migrations"

	"github.com/shopspring/decimal"
)

const (
	numberingLockTTL  = 5 * time.Second
	numberingLockWait = 3 * time.Second
)

func main() {
	cfg := config.Load()
	logger.Configure(cfg.Log.Level, cfg.Log.Format)
	log := logger.For("main")

	// Money goes out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer pool.Close()
	log.WithField("host", cfg.Database.Host).Info("Connected to database")

	if cfg.Database.MigrateOnStart {
		log.Info("Running database migrations...")
		migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := database.NewMigrator(pool, migrations.FS, ".").RunMigrations(migrateCtx)
		cancel()
		if err != nil {
			log.WithError(err).Fatal("Failed to run migrations")
		}
	}

	// Redis is optional: caches and the numbering lock degrade to no-ops
	if err := cache.Init(cfg); err != nil {
		log.WithError(err).Warn("Redis cache unavailable")
	} else {
		log.Info("Redis cache connected")
	}
	defer cache.Close()

	jwtManager := auth.NewJWTManager(cfg)

	// Repositories
	userRepo := repositories.NewUserRepository(pool)
	franchiseeRepo := repositories.NewFranchiseeRepository(pool)
	productRepo := repositories.NewProductRepository(pool)
	stockRepo := repositories.NewStockRepository(pool)
	customerRepo := repositories.NewCustomerRepository(pool)
	billRepo := repositories.NewBillRepository(pool)
	reportRepo := repositories.NewReportRepository(pool)

	// Bill engine
	engineCfg := billing.EngineConfig{
		MaxAttempts: cfg.Billing.NumberingRetries,
		TxTimeout:   time.Duration(cfg.Billing.TxTimeoutSeconds) * time.Second,
		PhoneRegion: cfg.Billing.PhoneRegion,
	}
	if cfg.Billing.UseNumberingLock {
		if locker := cache.NewNumberingLocker(numberingLockTTL, numberingLockWait); locker != nil {
			engineCfg.Locker = locker
		}
	}
	engine := billing.NewEngine(repositories.NewBillStore(pool), engineCfg)

	// Services
	authService := services.NewAuthService(userRepo, franchiseeRepo, jwtManager)
	franchiseeService := services.NewFranchiseeService(franchiseeRepo)
	catalogService := services.NewCatalogService(productRepo, stockRepo, customerRepo,
		cfg.Billing.DefaultMinQty, cfg.Billing.PhoneRegion)
	reportService := services.NewReportService(reportRepo)
	billService := services.NewBillService(engine, billRepo, franchiseeRepo)

	archive, err := storage.NewInvoiceArchive(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Invoice archive disabled")
	}
	if archive != nil {
		billService.Archive = archive
		defer archive.Wait()
	}

	provider, err := whatsapp.NewProvider(cfg)
	if err != nil {
		log.WithError(err).Warn("WhatsApp sending disabled")
	}
	if provider != nil {
		billService.WhatsApp = provider
		log.WithField("provider", provider.Name()).Info("WhatsApp provider configured")
	}

	if username, password := os.Getenv("ADMIN_USERNAME"), os.Getenv("ADMIN_PASSWORD"); username != "" && password != "" {
		if err := authService.EnsureAdmin(ctx, username, password); err != nil {
			log.WithError(err).Fatal("Failed to bootstrap admin user")
		}
	}

	healthChecker := health.NewHealthChecker(pool, cache.IsHealthy)

	router := h.NewRouter(h.Handlers{
		Auth:    handlers.NewAuthHandler(authService),
		Admin:   handlers.NewAdminHandler(franchiseeService),
		Catalog: handlers.NewCatalogHandler(catalogService),
		Bills:   handlers.NewBillHandler(billService),
		Reports: handlers.NewReportHandler(reportService),
		Health:  handlers.NewHealthHandler(healthChecker),
	}, middleware.NewAuthMiddleware(jwtManager, userRepo))

	corsMiddleware := middleware.NewCORS(cfg)
	handler := middleware.RequestLogging(middleware.PanicRecovery(corsMiddleware(router)))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed to start")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
