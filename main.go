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

	"pricehound/app"
	"pricehound/config"
	"pricehound/database"
	"pricehound/handlers"
	"pricehound/logger"
	"pricehound/middleware"
	"pricehound/notifier"
	"pricehound/repository"
	"pricehound/scheduler"
	"pricehound/services"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pricehound: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New("pricehound", cfg.LogLevel)
	defer log.Sync()

	if !cfg.EnvFileLoaded {
		log.Info("No .env file found, using environment variables")
	}
	if err := cfg.ValidateStore(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	scraping, err := app.NewScraping(cfg, log)
	if err != nil {
		return err
	}
	defer scraping.Close()

	n := newNotifier(cfg, log)
	monitor := services.NewMonitorService(scraping.Discovery, scraping.URLChecker, store, n, log)

	tasks := scheduler.NewTaskManager(scraping.Discovery, cfg.TaskWorkers, log)
	defer tasks.Stop()

	if cfg.SchedulerEnabled {
		priceChecker := scheduler.NewPriceChecker(store, monitor, log)
		if err := priceChecker.Start(ctx); err != nil {
			return fmt.Errorf("failed to start price checker: %w", err)
		}
		defer priceChecker.Stop()
	}

	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware(log))
	r.Use(middleware.RateLimitMiddleware(cfg.APIRateLimit))
	handlers.NewHandlers(scraping.Discovery, monitor, tasks, log).Register(r)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreDriver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.ProductStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("Using the in-memory store, tracked products are lost on restart")
		return repository.NewMemoryProductStore(), func() {}, nil

	case config.StoreDriverMongo:
		client, db, err := database.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		if err := database.EnsureMongoIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		log.Info("Connected to MongoDB", zap.String("database", cfg.MongoDatabase))
		return repository.NewMongoProductStore(db), func() {
			_ = client.Disconnect(context.Background())
		}, nil

	default:
		db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.CreateTables(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("Connected to PostgreSQL")
		return repository.NewPostgresProductStore(db), func() { db.Close() }, nil
	}
}

func newNotifier(cfg *config.Config, log *zap.Logger) notifier.Notifier {
	if cfg.DiscordToken == "" {
		return notifier.NewLogNotifier(log)
	}
	discord, err := notifier.NewDiscordNotifier(cfg.DiscordToken, cfg.DiscordChannelID, log)
	if err != nil {
		log.Warn("Discord notifications disabled", zap.Error(err))
		return notifier.NewLogNotifier(log)
	}
	return discord
}
