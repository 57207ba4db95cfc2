package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"gatechat/internal/auth"
	"gatechat/internal/config"
	"gatechat/internal/db"
	"gatechat/internal/fanout"
	chatgrpc "gatechat/internal/grpc"
	"gatechat/internal/handlers"
	"gatechat/internal/logging"
	"gatechat/internal/media"
	"gatechat/internal/middleware"
	"gatechat/internal/observability"
	"gatechat/internal/rabbitmq"
	"gatechat/internal/repositories"
	"gatechat/internal/services"
	"gatechat/internal/telemetry"
	"gatechat/internal/tracing"
	"gatechat/internal/ws"
)

func main() {
	bootLogger := logging.New("info", "json")

	flags := pflag.NewFlagSet("gatechat", pflag.ExitOnError)
	config.Flags(flags)
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(bootLogger, flags)
	if err != nil {
		bootLogger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("service stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	database, err := db.Connect(ctx, cfg.DB.DSN, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	shutdownTracing, err := tracing.Setup(ctx, cfg.OTel.Endpoint, cfg.OTel.ServiceName, logger)
	if err != nil {
		return err
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
	logger.Info("amqp publisher ready",
		slog.String("mode", rabbitmq.PublisherMode(publisher)),
		slog.String("reason", rabbitmq.PublisherNoopReason(publisher)),
	)
	events := observability.NewEvents(publisher)
	audit := telemetry.NewAuditEmitter(publisher, cfg.AMQP.AuditRoutingKey, cfg.OTel.ServiceName, cfg.Server.Environment, logger)

	uploader, err := media.NewDiskUploader(cfg.Media.Dir, cfg.Media.PublicPath)
	if err != nil {
		return err
	}

	userRepo := repositories.NewUserRepo(database)
	requestRepo := repositories.NewAccessRequestRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	groupRepo := repositories.NewGroupRepo(database)
	groupMessageRepo := repositories.NewGroupMessageRepo(database)

	hub := ws.NewHub(logger)
	router := fanout.NewRouter(hub, logger)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	accessService := services.NewAccessService(requestRepo, audit, logger)
	authService := services.NewAuthService(userRepo, accessService, tokens, uploader, services.AdminCredentials{
		Email:    cfg.Auth.AdminEmail,
		Password: cfg.Auth.AdminPassword,
	}, audit, logger)
	messageService := services.NewMessageService(userRepo, messageRepo, uploader, router, logger)
	groupService := services.NewGroupService(userRepo, groupRepo, groupMessageRepo, router, logger)

	socket := ws.NewSocketHandler(hub, tokens, events, ws.SocketConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		CookieName:     cfg.Auth.CookieName,
		SendBuffer:     cfg.WS.SendBuffer,
		Pump: ws.PumpConfig{
			WriteTimeout: cfg.WS.WriteTimeout,
			PongTimeout:  cfg.WS.PongTimeout,
			MaxMessage:   cfg.WS.MaxMessage,
		},
	}, logger)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	engine.Use(observability.RequestIDMiddleware())
	engine.Use(observability.HTTPMetricsMiddleware())

	engine.GET("/metrics", gin.WrapH(observability.Handler()))
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "online": len(hub.OnlineUsers())})
	})
	engine.Static(cfg.Media.PublicPath, cfg.Media.Dir)

	handlers.Register(engine, handlers.Routes{
		Auth: handlers.NewAuthHandler(authService, accessService, handlers.CookieConfig{
			UserName:  cfg.Auth.CookieName,
			AdminName: cfg.Auth.AdminCookieName,
			MaxAge:    int(cfg.Auth.TokenTTL.Seconds()),
			Secure:    cfg.IsProduction(),
		}, logger),
		Messages:  handlers.NewMessageHandler(messageService, logger),
		Groups:    handlers.NewGroupHandler(groupService, audit, logger),
		Socket:    socket.Handle,
		UserAuth:  middleware.AuthMiddleware(tokens, cfg.Auth.CookieName),
		AdminAuth: middleware.AdminMiddleware(tokens, cfg.Auth.AdminCookieName, authService.IsAdmin),
	})
	handlers.RegisterDebugRoutes(engine, audit, hub, cfg.Debug.Routes)

	health := chatgrpc.NewHealthServer(logger)
	grpcLis, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
	if err != nil {
		return err
	}
	go func() {
		if err := health.Serve(grpcLis); err != nil {
			logger.Error("grpc health server stopped", slog.Any("error", err))
		}
	}()
	health.SetServing(true)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: engine,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr), slog.String("grpc_port", cfg.GRPC.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("http server failed", slog.Any("error", err))
		}
	}

	logger.Info("shutting down")
	health.SetServing(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	hub.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", slog.Any("error", err))
	}
	health.Stop()
	if err := publisher.Close(); err != nil {
		logger.Warn("amqp close failed", slog.Any("error", err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown failed", slog.Any("error", err))
	}
	return nil
}
