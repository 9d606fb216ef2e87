package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Tamerlan-hash/diploma-backend/internal/adapter/handler"
	"github.com/Tamerlan-hash/diploma-backend/internal/adapter/logger"
	"github.com/Tamerlan-hash/diploma-backend/internal/adapter/storage/postgres"
	redisadapter "github.com/Tamerlan-hash/diploma-backend/internal/adapter/storage/redis"
	ws "github.com/Tamerlan-hash/diploma-backend/internal/adapter/websocket"
	"github.com/Tamerlan-hash/diploma-backend/internal/config"
	"github.com/Tamerlan-hash/diploma-backend/internal/core/service"
	"github.com/Tamerlan-hash/diploma-backend/internal/core/service/pricing"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLogger, _ := logger.New()
	defer appLogger.Sync()

	if err := runMigrations(cfg.DBUrl); err != nil {
		appLogger.Fatal("migrations failed", zap.Error(err))
	}
	appLogger.Info("migrations applied")

	dbConfig, err := pgxpool.ParseConfig(cfg.DBUrl)
	if err != nil {
		appLogger.Fatal("unable to parse db config", zap.Error(err))
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		appLogger.Fatal("unable to create db pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		appLogger.Fatal("cannot connect to db", zap.Error(err))
	}
	appLogger.Info("connected to database via pgxpool")

	redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})

	loc, err := time.LoadLocation(cfg.TariffTimezone)
	if err != nil {
		appLogger.Fatal("invalid tariff timezone", zap.String("tz", cfg.TariffTimezone), zap.Error(err))
	}

	defaultRate, err := decimal.NewFromString(cfg.DefaultPricePerHour)
	if err != nil || defaultRate.IsNegative() {
		appLogger.Fatal("invalid default price per hour", zap.String("value", cfg.DefaultPricePerHour))
	}

	appCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := postgres.NewStore(pool)
	ruleStore := postgres.NewRuleStore(store)

	calendar, err := postgres.NewHolidayCalendar(appCtx, store, appLogger)
	if err != nil {
		appLogger.Fatal("cannot load holiday calendar", zap.Error(err))
	}
	go calendar.Run(appCtx, time.Duration(cfg.HolidayRefreshMinutes)*time.Minute)

	cache := redisadapter.NewSnapshotCache(
		redisClient,
		ruleStore,
		time.Duration(cfg.SnapshotCacheTTLSeconds)*time.Second,
		appLogger,
	)

	engine := pricing.NewEngine(cache, calendar, ruleStore, loc, defaultRate, cfg.Currency, appLogger)

	authSvc := service.NewAuthService(cfg.JWTSecret)
	ruleSvc := service.NewRuleService(store, cache, appLogger)

	hub := ws.NewHub(appLogger)
	go hub.Run()
	go cache.ListenRuleChanges(appCtx, func(change redisadapter.RuleChange) {
		hub.NotifyTariffUpdated(change.ZoneID, change.RuleID, change.Action)
	})

	priceHandler := handler.NewPriceHandler(engine)
	ruleHandler := handler.NewRuleHandler(ruleSvc)
	authHandler := handler.NewAuthHandler(authSvc, store)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "UP", "env": cfg.Env})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/price/preview", priceHandler.PreviewPrice)
		api.GET("/ws/rates", func(ctx *gin.Context) {
			ws.ServeWS(hub, appLogger, ctx.Writer, ctx.Request)
		})

		admin := api.Group("/admin", handler.AuthMiddleware(authSvc))
		{
			admin.POST("/zones", ruleHandler.CreateZone)
			admin.GET("/zones", ruleHandler.ListZones)
			admin.GET("/zones/:id/rules", ruleHandler.ListRules)
			admin.POST("/spots", ruleHandler.CreateSpot)
			admin.POST("/rules", ruleHandler.CreateRule)
			admin.PUT("/rules/:id", ruleHandler.UpdateRule)
			admin.DELETE("/rules/:id", ruleHandler.DeleteRule)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		appLogger.Info("starting server", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("listen: %s\n", zap.Error(err))
		}
	}()

	<-appCtx.Done()

	appLogger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("server forced to shutdown:", zap.Error(err))
	}

	appLogger.Info("server exiting")
}
