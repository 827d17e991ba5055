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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weiawesome/wes-io-chat/internal/cache"
	"github.com/weiawesome/wes-io-chat/internal/config"
	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/handler"
	"github.com/weiawesome/wes-io-chat/internal/hub"
	"github.com/weiawesome/wes-io-chat/internal/idgen"
	"github.com/weiawesome/wes-io-chat/internal/observability/metrics"
	"github.com/weiawesome/wes-io-chat/internal/push"
	"github.com/weiawesome/wes-io-chat/internal/repository"
	"github.com/weiawesome/wes-io-chat/internal/service"
	"github.com/weiawesome/wes-io-chat/pkg/database"
	pkglog "github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/middleware"
	"github.com/weiawesome/wes-io-chat/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty || cfg.Log.Level == "debug",
		ServiceName: "chat-service",
	})
	logger := pkglog.L()

	// Connect to database using GORM
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

	// Initialize repositories
	tx := repository.NewGormTransactor(db)
	roomRepo := repository.NewGormRoomRepository(db)
	userRepo := repository.NewGormUserRepository(db)

	var messageRepo repository.MessageRepository
	switch cfg.MessageStore.Driver {
	case "cassandra":
		cassandraRepo, err := repository.NewCassandraMessageRepository(cfg.Cassandra)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to cassandra")
		}
		defer cassandraRepo.Close()
		messageRepo = cassandraRepo
		logger.Info().Strs("hosts", cfg.Cassandra.Hosts).Str("keyspace", cfg.Cassandra.Keyspace).Msg("cassandra message store connected")
	default:
		messageRepo = repository.NewGormMessageRepository(db)
	}

	// Initialize room cache
	var roomCache cache.RoomCache = cache.NewNoopRoomCache()
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisRoomCache(cfg.Redis, cfg.Cache.Prefix)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		roomCache = redisCache
		logger.Info().Str("address", cfg.Redis.Address).Msg("redis cache connected")
	}
	defer roomCache.Close()

	// Initialize event bus
	bus, err := pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.PubSub.Driver).Msg("failed to initialize pubsub")
	}
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize realtime hub and relay bus events into it
	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run(ctx)
	go func() {
		if err := hub.Relay(ctx, bus, wsHub); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("event relay stopped")
		}
	}()

	// Initialize push dispatcher
	var dispatcher service.Dispatcher
	if cfg.Push.Enabled {
		dispatcher = push.NewClient(push.Config{
			URL:         cfg.Push.URL,
			AccessToken: cfg.Push.AccessToken,
			Timeout:     cfg.Push.Timeout,
		})
	} else {
		logger.Warn().Msg("push notifications disabled")
	}

	// Initialize services
	roomService := service.NewRoomService(tx, roomRepo, roomCache, cfg.Cache.TTL, bus,
		idgen.NewUUIDGenerator(), cfg.Chat.PublicRoomLimit)
	messageService := service.NewMessageService(tx, messageRepo, roomRepo, userRepo, roomCache, bus, dispatcher,
		idgen.NewULIDGenerator(), service.MessageConfig{
			MaxLength:    cfg.Chat.MaxMessageLength,
			DefaultLimit: cfg.Chat.DefaultMessageLimit,
			MaxLimit:     cfg.Chat.MaxMessageLimit,
		})
	userService := service.NewUserService(userRepo, idgen.NewUUIDGenerator())

	// Per-device send limiter
	var sendLimiter *middleware.DeviceRateLimiter
	if cfg.Chat.SendRatePerSec > 0 {
		sendLimiter = middleware.NewDeviceRateLimiter(cfg.Chat.SendRatePerSec, cfg.Chat.SendBurst)
		go sendLimiter.RunCleanup(ctx.Done())
	}

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	r.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))

	if cfg.Metrics.Enabled {
		metrics.MustRegister()
		r.Use(metrics.GinMiddleware())
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Register routes
	handler.NewHandler(roomService, messageService, userService, cfg.Chat.DeepLinkScheme, sendLimiter).RegisterRoutes(r)
	handler.NewWSHandler(wsHub, roomService, cfg.WebSocket).RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", addr).
			Str("message_store", cfg.MessageStore.Driver).
			Str("pubsub", cfg.PubSub.Driver).
			Bool("push", cfg.Push.Enabled).
			Msg("chat-service starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down chat-service")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("chat-service stopped")
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, middleware.DeviceIDHeader, middleware.UserNameHeader, "X-Request-ID")
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}
