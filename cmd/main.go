package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"storefront/internal/caching"
	"storefront/internal/config"
	"storefront/internal/handlers"
	"storefront/internal/jobs"
	"storefront/internal/jobs/background"
	"storefront/internal/middleware"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/database"
)

const version = "1.0.0"

type stores struct {
	customers repositories.CustomerRepository
	products  repositories.ProductRepository
	orders    repositories.OrderRepository
	queries   repositories.OrderQueryRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := log.StandardLogger()
	logger.SetFormatter(&log.JSONFormatter{})
	if level, err := log.ParseLevel(cfg.Server.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithError(err).Warn("Unknown log level, using info")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.Pinger{}

	var st stores
	switch cfg.Database.Driver {
	case config.StorageDriverMemory:
		logger.Warn("Using in-memory storage, data is lost on restart")
		mem := repositories.NewMemoryStore()
		st = stores{mem.Customers(), mem.Products(), mem.Orders(), mem.OrderQueries()}
	default:
		pool, err := database.NewPool(ctx, cfg.Database.URL, database.DefaultPoolOptions)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
		checks["database"] = pool
		st = stores{
			customers: repositories.NewCustomerRepo(pool),
			products:  repositories.NewProductRepo(pool),
			orders:    repositories.NewOrderRepo(pool),
			queries:   repositories.NewOrderQueryRepo(pool),
		}
	}

	var cacheService caching.CacheService
	if cfg.Redis.Addr != "" {
		redisClient := caching.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer redisClient.Close()
		cacheService = caching.NewRedisCacheService(redisClient, cfg.Redis.CacheTTL.Duration)
		if err := cacheService.Ping(ctx); err != nil {
			logger.WithError(err).Warn("Redis is unreachable, continuing without a warm cache")
		}
		checks["redis"] = cacheService
	} else {
		logger.Info("REDIS_ADDR not set, caching disabled")
	}

	customerService := services.NewCustomerService(st.customers)
	productService := services.NewProductService(st.products, cacheService)
	// Replay entries outlive an in-memory store, so only durable storage gets the replay cache
	orderCache := cacheService
	if cfg.Database.Driver == config.StorageDriverMemory {
		orderCache = nil
	}
	orderService := services.NewOrderService(st.orders, st.queries, st.customers, st.products, orderCache)

	alerts := jobs.NewInventoryAlertService(productService, cfg.Jobs.LowStockThreshold)
	scheduler, err := background.NewJobScheduler(alerts, cfg.Jobs.LowStockInterval.Duration)
	if err != nil {
		logger.Fatalf("Failed to create job scheduler: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(middleware.RequestContext(logger))
	e.Use(middleware.Metrics())

	healthHandlers := handlers.NewHealthHandlers(checks)
	e.GET("/health", healthHandlers.LivenessCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	versionMiddleware := middleware.NewVersionMiddleware()
	v1 := versionMiddleware.VersionRoute(e, "v1")
	handlers.RegisterRoutes(v1,
		handlers.NewOrderHandlers(orderService),
		handlers.NewProductHandlers(productService),
		handlers.NewCustomerHandlers(customerService),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithFields(log.Fields{
			"version": version,
			"port":    cfg.Server.Port,
			"storage": cfg.Database.Driver,
		}).Info("Storefront server starting")
		if err := e.Start(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	scheduler.Start()

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()

		var errs []error
		if err := e.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := scheduler.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("scheduler shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Server stopped with error")
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
