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

	"github.com/SavioJohny/delivery-website/internal/archive"
	"github.com/SavioJohny/delivery-website/internal/config"
	chatgrpc "github.com/SavioJohny/delivery-website/internal/grpc"
	"github.com/SavioJohny/delivery-website/internal/handler"
	"github.com/SavioJohny/delivery-website/internal/hub"
	"github.com/SavioJohny/delivery-website/internal/identity"
	"github.com/SavioJohny/delivery-website/internal/kafka"
	"github.com/SavioJohny/delivery-website/internal/presence"
	"github.com/SavioJohny/delivery-website/internal/service"
	"github.com/SavioJohny/delivery-website/internal/store"
	"github.com/SavioJohny/delivery-website/pkg/jwt"
	"github.com/SavioJohny/delivery-website/pkg/log"
	"github.com/SavioJohny/delivery-website/pkg/middleware"
	"github.com/SavioJohny/delivery-website/pkg/storage"
)

// Tokens are issued by the account service; the relay only verifies them.
const tokenDuration = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := log.Init(cfg.Log)

	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting chat relay")

	tokens, err := jwt.NewManager(cfg.Auth.JWTSecret, tokenDuration, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize token verifier")
	}
	resolver := identity.NewJWTResolver(tokens, cfg.Auth.RequireRole)
	auth := middleware.NewAuthMiddleware(identity.MiddlewareFunc(resolver))

	messages, err := store.New(cfg.StoreOptions())
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to initialize message store")
	}
	defer messages.Close()

	var publisher kafka.MessagePublisher = kafka.NoopPublisher{}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewConfluentPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize kafka publisher")
		}
		publisher = producer
		logger.Info().Str("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka publisher ready")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		archives *archive.Archiver
		svcOpts  []service.Option
	)
	if cfg.Archive.Enabled {
		objects, err := storage.New(ctx, cfg.Archive.Storage)
		if err != nil {
			logger.Fatal().Err(err).Str("driver", cfg.Archive.Storage.Driver).Msg("failed to initialize archive storage")
		}
		archives = archive.NewArchiver(objects, cfg.Archive.Prefix)
		svcOpts = append(svcOpts, service.WithArchiver(archives))
		logger.Info().Str("driver", cfg.Archive.Storage.Driver).Msg("transcript archive ready")
	}

	wsHub := hub.NewHub()
	go wsHub.Run(ctx)

	tracker := presence.NewTracker()
	chatSvc := service.NewChatService(wsHub, messages, tracker, publisher, cfg.Store.Timeout, svcOpts...)

	var grpcServer *chatgrpc.Server
	if cfg.GRPC.Enabled {
		grpcServer = chatgrpc.NewServer(logger)
		if err := grpcServer.Serve(fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)); err != nil {
			logger.Fatal().Err(err).Msg("failed to start grpc server")
		}
	}

	wsHandler := handler.NewWSHandler(wsHub, chatSvc, resolver, cfg.WebSocket, cfg.RateLimit, cfg.Server.AllowedOrigins)
	router := handler.NewRouter(
		logger,
		wsHub,
		auth,
		wsHandler,
		handler.NewHTTPHandler(messages, tracker, auth, archives),
		handler.NewPresenceHandler(tracker),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info().Str("address", server.Addr).Msg("chat relay listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down chat relay")

	if grpcServer != nil {
		grpcServer.SetServing(false)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	// Closing the hub ends every pump, which runs the disconnect path. The
	// publisher and the store must outlive the last in-flight event.
	cancel()
	if err := wsHub.Wait(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("connections still draining at shutdown deadline")
	}

	if err := chatSvc.Stop(); err != nil {
		logger.Error().Err(err).Msg("chat service stop failed")
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	logger.Info().Msg("chat relay stopped")
}
