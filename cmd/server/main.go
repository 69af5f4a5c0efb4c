// Command echo-server starts the Echo metering HTTP and gRPC servers.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/ArDnath/echo/internal/cache"
	"github.com/ArDnath/echo/internal/config"
	"github.com/ArDnath/echo/internal/limiter"
	"github.com/ArDnath/echo/internal/logging"
	"github.com/ArDnath/echo/internal/metrics"
	"github.com/ArDnath/echo/internal/migrate"
	"github.com/ArDnath/echo/internal/repository"
	"github.com/ArDnath/echo/internal/repository/postgres"
	grpcserver "github.com/ArDnath/echo/internal/server/grpc"
	httpserver "github.com/ArDnath/echo/internal/server/http"
	"github.com/ArDnath/echo/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *showVersion {
		fmt.Printf("echo-server %s (%s)\n", version, buildDate)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("env", cfg.AppEnv),
		zap.String("http", cfg.HTTPAddr),
		zap.String("grpc", cfg.GRPCAddr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if _, err := migrate.Up(ctx, cfg.DatabaseURL, logger); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	}

	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	// Repositories
	users := postgres.NewUserRepo(db)
	var apps repository.AppRepository = postgres.NewAppRepo(db)
	markupRepo := postgres.NewMarkupRepo(db)
	ledgerRepo := postgres.NewLedgerRepo(db)
	grantRepo := postgres.NewGrantRepo(db)
	creditRepo := postgres.NewCreditRepo(db)
	tokenRepo := postgres.NewTokenRepo(db)

	var redisCache *cache.Cache
	if cfg.RedisURL != "" {
		redisCache, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			db.Close()
			return fmt.Errorf("redis: %w", err)
		}
		apps = cache.NewAppRepo(apps, redisCache, cfg.AppCacheTTL, logger)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	lim := limiter.NewPG(db.Pool, cfg.RefreshLimitWindow, cfg.RefreshLimitMaxFails, cfg.RefreshLimitBlockFor)
	signKey := []byte(cfg.JWTSigningKey)

	// Services
	markupSvc := service.NewMarkupService(markupRepo)
	paymentSvc := service.NewPaymentAuthService(apps, markupSvc, ledgerRepo, service.NewLogIdentifier(logger), logger)
	ledgerSvc := service.NewLedgerService(ledgerRepo, creditRepo)
	grantSvc := service.NewGrantService(grantRepo, creditRepo, logger)
	tokenSvc := service.NewTokenService(tokenRepo, signKey, cfg.TokenPolicy(logger), lim, logger)
	adminSvc := service.NewAdminService(users, apps, logger)
	accessSvc := service.NewAccessService(users, apps)

	// gRPC
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.LoggingUnary(logger),
			grpcserver.AuthUnary(tokenSvc, accessSvc),
		),
	)
	hs := grpcserver.Register(gs, grpcserver.New(paymentSvc, accessSvc))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		db.Close()
		return fmt.Errorf("grpc listen: %w", err)
	}

	// HTTP
	deps := httpserver.Deps{
		Payments: paymentSvc,
		Ledger:   ledgerSvc,
		Markups:  markupSvc,
		Grants:   grantSvc,
		Tokens:   tokenSvc,
		Admin:    adminSvc,
		Access:   accessSvc,
		DB:       db,
	}
	if redisCache != nil {
		deps.Cache = redisCache
	}
	srv := httpserver.NewServer(
		httpserver.New(deps, logger).Router(),
		cfg.HTTPAddr, cfg.ReadTimeout, cfg.WriteTimeout, cfg.ShutdownTimeout, logger,
	)

	// Stopped in reverse: gRPC, then redis, then postgres.
	srv.OnShutdown("postgres", func(context.Context) error { db.Close(); return nil })
	if redisCache != nil {
		srv.OnShutdown("redis", func(context.Context) error { return redisCache.Close() })
	}
	srv.OnShutdown("grpc", func(ctx context.Context) error {
		hs.Shutdown()
		done := make(chan struct{})
		go func() {
			gs.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			gs.Stop()
		case <-time.After(5 * time.Second):
			gs.Stop()
		}
		return nil
	})

	grpcErr := make(chan error, 1)
	go func() {
		logger.Info("grpc listening", zap.String("addr", cfg.GRPCAddr))
		if err := gs.Serve(lis); err != nil {
			grpcErr <- err
			stop()
		}
	}()

	if err := srv.Run(ctx); err != nil {
		return err
	}
	select {
	case err := <-grpcErr:
		return fmt.Errorf("grpc serve: %w", err)
	default:
	}
	logger.Info("shutdown complete")
	return nil
}
