package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/reservaterrain/core/internal/cache"
	"github.com/reservaterrain/core/internal/config"
	"github.com/reservaterrain/core/internal/db"
	"github.com/reservaterrain/core/internal/events"
	"github.com/reservaterrain/core/internal/handlers"
	"github.com/reservaterrain/core/internal/identity"
	"github.com/reservaterrain/core/internal/logging"
	"github.com/reservaterrain/core/internal/model"
	"github.com/reservaterrain/core/internal/obs"
	"github.com/reservaterrain/core/internal/repository"
	"github.com/reservaterrain/core/internal/service"
)

const serviceName = "reservation-core"

func main() {
	// 1. .env необязателен: в контейнере переменные приходят из окружения.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.Log, cfg.Env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Трейсинг (no-op, если OTEL_EXPORTER_OTLP_ENDPOINT не задан).
	shutdownTracer, err := obs.InitTracer(ctx, serviceName, cfg.Otel, cfg.Env)
	if err != nil {
		fatal(logger, "init tracer", err)
	}

	// 3. БД и миграции.
	gormDB, err := db.NewGormDB(cfg.DB, logger)
	if err != nil {
		fatal(logger, "init db", err)
	}
	if err := model.AutoMigrate(gormDB); err != nil {
		fatal(logger, "auto migrate", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		fatal(logger, "sql DB", err)
	}
	defer sqlDB.Close()

	// 4. Репозитории.
	reservationRepo := repository.NewGormReservationRepository(gormDB)
	terrainRepo := repository.NewGormTerrainRepository(gormDB)
	complexeRepo := repository.NewGormComplexeRepository(gormDB)
	clientRepo := repository.NewGormClientRepository(gormDB)
	ownerRepo := repository.NewGormOwnerRepository(gormDB)
	eventRepo := repository.NewGormEventRepository(gormDB)
	annonceRepo := repository.NewGormAnnonceRepository(gormDB)

	// 5. Брокер и кэш — только если настроены.
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Rabbit.URL != "" {
		rp, err := events.NewRabbitPublisher(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			fatal(logger, "connect rabbitmq", err)
		}
		publisher = rp
		logger.Info("publishing reservation events", "exchange", cfg.Rabbit.Exchange)
	}
	defer publisher.Close()

	var dashboardCache cache.Cache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		rc := cache.NewRedisCache(cfg.Redis)
		if err := rc.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, dashboard cache disabled", "addr", cfg.Redis.Addr, "err", err)
			_ = rc.Close()
		} else {
			dashboardCache = rc
			defer rc.Close()
		}
	}

	// 6. Сервисы.
	dispatcher := events.NewDispatcher(eventRepo, publisher, logger)
	directorySvc := service.NewDirectoryService(clientRepo, ownerRepo, logger)
	reservationSvc := service.NewReservationService(reservationRepo, terrainRepo, directorySvc, dispatcher, cfg.Booking, logger)
	catalogSvc := service.NewCatalogService(complexeRepo, terrainRepo, reservationRepo, directorySvc, logger)
	dashboardSvc := service.NewDashboardService(reservationRepo, terrainRepo, complexeRepo, directorySvc, dashboardCache, logger)
	annonceSvc := service.NewAnnonceService(annonceRepo, terrainRepo, directorySvc, logger)

	verifier, err := identity.NewVerifier(cfg.Auth)
	if err != nil {
		fatal(logger, "init token verifier", err)
	}

	// 7. HTTP API.
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: handlers.NewRouter(handlers.Deps{
			Reservations: reservationSvc,
			Catalog:      catalogSvc,
			Directory:    directorySvc,
			Dashboard:    dashboardSvc,
			Annonces:     annonceSvc,
			Verifier:     verifier,
			Log:          logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 8. gRPC: health и reflection.
	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		fatal(logger, "listen grpc", err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("grpc server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	// 9. Грейсфул-шатдаун по сигналу или падению сервера.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server failed", "err", err)
	}

	logger.Info("shutting down")
	healthSrv.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "err", err)
	}
	grpcServer.GracefulStop()
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Error("tracer shutdown", "err", err)
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}
