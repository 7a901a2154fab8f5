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

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"tms-graphql-api/internal/core/auth"
	"tms-graphql-api/internal/core/cache"
	"tms-graphql-api/internal/core/config"
	"tms-graphql-api/internal/core/database"
	"tms-graphql-api/internal/core/logger"
	"tms-graphql-api/internal/core/server"
	"tms-graphql-api/internal/domain"
	"tms-graphql-api/internal/repo"
	"tms-graphql-api/internal/service"
	"tms-graphql-api/internal/transport/graphql"
	"tms-graphql-api/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log)
	defer cleanup()

	// 存储（失败直接 Fatal）
	users, ships, closeStore := mustOpenStore(cfg, log)
	defer closeStore()

	// 统计缓存（可选）
	var statsCache *cache.Cache
	if cfg.Redis.Addr != "" {
		statsCache = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := statsCache.Ping(ctx); err != nil {
			log.Warn("redis unavailable, stats cache disabled", zap.Error(err))
			_ = statsCache.Close()
			statsCache = nil
		} else {
			statsCache.OnError = func(key string, err error) {
				log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		cancel()
	}
	defer statsCache.Close()

	// JWT
	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.TTL(),
	}
	if cfg.JWT.Secret == "your-secret-key" {
		log.Warn("using the default JWT secret, set APP_JWT_SECRET")
	}

	accounts := service.NewAuthService(users, jwter, cfg.JWT.BcryptCost, log)
	shipSvc := service.NewShipmentService(ships, statsCache, cfg.Cache.StatsTTL(), log)
	gql, err := graphql.NewHandler(graphql.NewResolver(accounts, shipSvc, log), users, ships, graphql.Options{
		MaxComplexity:  cfg.GraphQL.MaxComplexity,
		ListMultiplier: cfg.GraphQL.ListMultiplier,
		MaxParallelism: cfg.GraphQL.MaxParallelism,
		LoaderWait:     cfg.GraphQL.LoaderWait(),
	}, log)
	if err != nil {
		log.Fatal("graphql schema", zap.Error(err))
	}

	r := router.NewAPIEngine(router.Deps{
		Log:      log,
		Limits:   cfg.Limits,
		CORS:     cfg.CORS,
		Verifier: auth.NewVerifier(jwter, users, log),
		GraphQL:  gql.Serve,
	})

	// HTTP Server
	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	// 启动日志
	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("tms api starting",
		zap.String("addr", addr),
		zap.String("graphql", baseURL+"/graphql"),
		zap.String("health", baseURL+"/health"),
		zap.String("metrics", baseURL+"/metrics"),
	)

	// 异步启动
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("tms api start FAILED", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	log.Info("tms api stopped gracefully")
}

func mustOpenStore(cfg *config.Config, l *zap.Logger) (domain.UserRepository, domain.ShipmentRepository, func()) {
	if cfg.DB.Driver == "memory" {
		l.Warn("using in-memory store, data is lost on exit")
		m := repo.NewMemoryStore()
		return m, m.Shipments(), func() {}
	}
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	}, l)
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			l.Fatal("automigrate failed", zap.Error(err))
		}
		l.Info("automigrate done")
	}
	return repo.NewUserRepo(db), repo.NewShipmentRepo(db), func() {
		if err := database.Close(db); err != nil {
			l.Warn("db close", zap.Error(err))
		}
	}
}
