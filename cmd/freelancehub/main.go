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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nurpe/freelancehub/internal/auth"
	"github.com/nurpe/freelancehub/internal/config"
	"github.com/nurpe/freelancehub/internal/db"
	"github.com/nurpe/freelancehub/internal/events"
	"github.com/nurpe/freelancehub/internal/excel"
	httphandler "github.com/nurpe/freelancehub/internal/http"
	"github.com/nurpe/freelancehub/internal/http/middleware"
	"github.com/nurpe/freelancehub/internal/logger"
	"github.com/nurpe/freelancehub/internal/pdf"
	"github.com/nurpe/freelancehub/internal/repository"
	"github.com/nurpe/freelancehub/internal/service"
	"github.com/nurpe/freelancehub/internal/storage"
	"github.com/nurpe/freelancehub/internal/throttle"
	"github.com/nurpe/freelancehub/internal/views"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	files, err := storage.NewLocal(cfg.Media.Root, cfg.Media.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init media storage")
	}

	limiter, counter, closeRedis := cacheBackends(cfg, log)
	defer closeRedis()

	publisher, closePublisher := eventPublisher(cfg, log)
	defer closePublisher()

	pdfGenerator, err := pdf.NewGenerator(cfg.PDF.FontPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init pdf generator")
	}

	userRepo := repository.NewUserRepository(database)
	jobRepo := repository.NewJobRepository(database)
	proposalRepo := repository.NewProposalRepository(database)
	reportRepo := repository.NewReportRepository(database)
	catalogRepo := repository.NewCatalogRepository(database)

	tokens := auth.NewManager(
		cfg.Auth.AccessSecret,
		cfg.Auth.RefreshSecret,
		cfg.Auth.AccessTTL,
		cfg.Auth.RefreshTTL,
		cfg.Auth.Issuer,
	)

	services := httphandler.Services{
		Users:     service.NewUserService(userRepo, tokens, limiter, files, log),
		Jobs:      service.NewJobService(jobRepo, userRepo, reportRepo, files, counter, publisher, excel.NewGenerator(), log),
		Proposals: service.NewProposalService(proposalRepo, jobRepo, userRepo, publisher, pdfGenerator, log),
		Catalog:   service.NewCatalogService(catalogRepo, userRepo, log),
	}

	if err := httphandler.RegisterValidators(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	routerOpts := httphandler.RouterOptions{
		Environment:    cfg.Environment,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Registry:       registry,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Log:            log,
	}
	if cfg.IsDevelopment() {
		routerOpts.Media = files.HTTPFileSystem()
		routerOpts.MediaURL = cfg.Media.URL
	}

	handler := httphandler.NewHandler(services, files, cfg.Media.MaxUploadMB, log)
	router, err := httphandler.NewRouter(handler, middleware.Auth(tokens), middleware.OptionalAuth(tokens), routerOpts)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("starting freelancehub api")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}

// cacheBackends picks Redis when configured and in-process fallbacks otherwise.
func cacheBackends(cfg *config.Config, log zerolog.Logger) (throttle.Limiter, views.Counter, func()) {
	if cfg.Redis.Addr == "" {
		log.Warn().Msg("REDIS_ADDR not set, using in-memory throttle and view counters")
		return throttle.NewMemoryLimiter(cfg.Throttle.LoginLimit, cfg.Throttle.LoginWindow), views.NewMemoryCounter(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}

	limiter := throttle.NewRedisLimiter(client, "throttle_login:", cfg.Throttle.LoginLimit, cfg.Throttle.LoginWindow)
	counter := views.NewRedisCounter(client, "job_views:")
	return limiter, counter, func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis")
		}
	}
}

func eventPublisher(cfg *config.Config, log zerolog.Logger) (events.Publisher, func()) {
	if cfg.Events.RabbitURL == "" {
		return events.NopPublisher{}, func() {}
	}
	publisher, err := events.NewRabbitPublisher(cfg.Events.RabbitURL, cfg.Events.Exchange)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect rabbitmq")
	}
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("close rabbitmq")
		}
	}
}
