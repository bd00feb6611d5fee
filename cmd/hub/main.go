package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"genehub/internal/auth"
	"genehub/internal/cache"
	"genehub/internal/config"
	cronrunner "genehub/internal/cron"
	"genehub/internal/db"
	"genehub/internal/events"
	"genehub/internal/evolution"
	"genehub/internal/gate"
	"genehub/internal/handler"
	"genehub/internal/logger"
	"genehub/internal/oracle"
	"genehub/internal/registry"
	gormrepository "genehub/internal/repository/gorm"

	_ "genehub/docs"
)

func main() {
	cfgPath := os.Getenv("GENEHUB_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("GH_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	hub := events.NewHub(logger)

	var authSvc *auth.Service
	if cfg.Auth.Enabled {
		if cfg.Auth.Secret == "" {
			logger.Fatal("auth enabled but auth.secret is empty")
		}
		var sessions cache.Store = cache.NewMemoryStore()
		if cfg.Redis.Enabled {
			sessions = cache.NewRedisStore(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
		}
		authSvc = auth.NewService([]byte(cfg.Auth.Secret), cfg.Auth.TokenTTL, sessions, logger)
	}

	orc := &oracle.HTTPClient{
		BaseURL: cfg.Oracle.BaseURL,
		Token:   cfg.Oracle.Token,
		HTTP:    &http.Client{Timeout: cfg.Oracle.Timeout},
		Logger:  logger,
	}
	cycle := evolution.New(store, orc, evolution.Config{
		Markets:        cfg.Evolution.Markets,
		Period:         cfg.Evolution.Period,
		SurvivalRate:   cfg.Evolution.SurvivalRate,
		OffspringCount: cfg.Evolution.OffspringCount,
		OracleTimeout:  cfg.Evolution.OracleTimeout,
		Thresholds: gate.Thresholds{
			MinSharpe:        cfg.Evolution.MinSharpe,
			MaxDrawdownFloor: cfg.Evolution.MaxDrawdownFloor,
			MinWinRate:       cfg.Evolution.MinWinRate,
		},
	}, hub, logger)

	registrySvc := registry.NewService(store, hub, logger)
	coordinator := registry.NewCoordinator(store, registry.ClaimTimeouts{
		Discovery:    cfg.Registry.ClaimTimeoutDiscovery,
		Optimization: cfg.Registry.ClaimTimeoutOptimization,
		Verification: cfg.Registry.ClaimTimeoutVerification,
	}, hub, logger)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(auth.Middleware(authSvc, cfg.Auth.Enabled))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	taskHandler := &handler.TaskHandler{Registry: registrySvc, Coordinator: coordinator}
	taskHandler.Register(engine)
	geneHandler := &handler.GeneHandler{Repo: store, Hub: hub}
	geneHandler.Register(engine)
	agentHandler := &handler.AgentHandler{Registry: registrySvc, Repo: store, Auth: authSvc}
	agentHandler.Register(engine)
	marketHandler := &handler.MarketHandler{Repo: store, Hub: hub}
	marketHandler.Register(engine)
	evolutionHandler := &handler.EvolutionHandler{Repo: store, Cycle: cycle}
	evolutionHandler.Register(engine)
	streamHandler := &handler.StreamHandler{Hub: hub, AllowOrigins: cfg.Server.AllowOrigins}
	streamHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.Evolution, func(ctx context.Context) {
			summary, err := cycle.Run(ctx)
			if errors.Is(err, evolution.ErrCycleInProgress) {
				return
			}
			if err != nil {
				logger.Warn("cron evolution cycle failed", zap.Error(err))
				return
			}
			logger.Info("cron evolution cycle ok",
				zap.Int("generation", summary.Generation),
				zap.Int("survivors", summary.SurvivorCount),
				zap.Int("eliminated", summary.EliminatedCount),
				zap.Int("offspring", summary.OffspringCount),
				zap.Int("pool_size", summary.PoolSize),
			)
		})
		if err != nil {
			logger.Warn("cron register evolution failed", zap.Error(err))
		}

		_, err = cronRunner.Add(cfg.Cron.ExpirySweep, func(ctx context.Context) {
			released, expired, err := registrySvc.SweepExpirations(ctx)
			if err != nil {
				logger.Warn("cron expiry sweep failed", zap.Error(err))
				return
			}
			if released > 0 || expired > 0 {
				logger.Info("cron expiry sweep ok",
					zap.Int64("released_claims", released),
					zap.Int64("expired_tasks", expired),
				)
			}
		})
		if err != nil {
			logger.Warn("cron register expiry sweep failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
