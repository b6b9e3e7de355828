package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ms-events/internal/config"
	"ms-events/internal/database"
	"ms-events/internal/database/migrations"
	"ms-events/internal/events/db"
	"ms-events/internal/events/event_api"
	"ms-events/internal/events/service"
	"ms-events/internal/flash"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/web"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
)

func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	log.Info("DATABASE", fmt.Sprintf("Opening SQLite database at %s", cfg.Path))
	bunDB, err := database.Open(ctx, cfg.Path, database.Options{
		MaxOpenConns: cfg.MaxOpenConns,
		MaxRetries:   cfg.MaxRetries,
		RetryDelay:   cfg.RetryDelay,
	})
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	log.Info("DATABASE", "✅ SQLite connection successful")

	if cfg.AutoMigrate {
		version, err := migrations.NewRunner(bunDB, migrations.DefaultOptions()).RunMigrations()
		if err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
		}
		log.LogDatabase("MIGRATE", "events", fmt.Sprintf("schema at version %d", version))
	}
	return bunDB
}

func newFlashStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (flash.Store, func()) {
	if cfg.Flash.Backend != "redis" {
		log.Info("FLASH", "Using signed cookie flash store")
		return flash.NewCookieStore(cfg.Session.Secret, cfg.Session.CookieSecure), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	store := flash.NewRedisStore(client, cfg.Flash.TTL, cfg.Session.CookieSecure)
	if err := store.Ping(ctx); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("REDIS", fmt.Sprintf("✅ Redis flash store connected to %s (DB: %d)", cfg.Redis.Addr, cfg.Redis.DB))
	return store, func() { client.Close() }
}

func newNotifier(ctx context.Context, cfg config.KafkaConfig, log *logger.Logger) (service.ChangeNotifier, func()) {
	if !cfg.Enabled {
		log.Info("KAFKA", "Change notifications disabled")
		return nil, func() {}
	}

	topics := kafka.TopicsWithPrefix(cfg.TopicPrefix)
	if err := kafka.EnsureTopicsExist(ctx, cfg.Brokers, topics.All()); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		log.Info("KAFKA", "Change topics ensured successfully")
	}

	producer := kafka.NewProducer(cfg.Brokers, topics, log)
	log.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for %v", cfg.Brokers))
	return producer, func() {
		if err := producer.Close(); err != nil {
			log.Error("KAFKA", fmt.Sprintf("Failed to flush producer: %v", err))
		}
	}
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log := logger.NewLogger(cfg.Log.Dir, "ms-events")
	defer log.Close()
	log.SetLevel(logger.ParseLevel(cfg.Log.Level))

	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}
	if cfg.Session.Secret == "dev" {
		log.Warn("CONFIG", "SECRET_KEY not set, using the development secret")
	}

	ctx := context.Background()

	bunDB := openDatabase(ctx, cfg.Database, log)
	defer bunDB.Close()

	flashStore, closeFlash := newFlashStore(ctx, cfg, log)
	defer closeFlash()

	notifier, closeNotifier := newNotifier(ctx, cfg.Kafka, log)
	defer closeNotifier()

	renderer, err := web.NewRenderer()
	if err != nil {
		log.Fatal("TEMPLATE", err.Error())
	}

	eventDB := &db.DB{Bun: bunDB}
	eventService := service.NewEventService(eventDB, notifier, log)
	handler := event_api.NewHandler(eventService, renderer, flashStore, log)

	routerOpts := event_api.RouterOptions{
		CookieSecure: cfg.Session.CookieSecure,
		Pinger:       eventDB,
	}
	if cfg.Session.CSRFEnabled {
		routerOpts.CSRFSecret = cfg.Session.Secret
	}

	log.Info("HTTP", "Setting up router and middleware")
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      event_api.NewRouter(handler, routerOpts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Event service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Event service shutdown complete")
	}
}
