// Package main is the entry point for the wager tracker: the HTTP API, the
// scheduled feed sync and, when a token is configured, the Telegram bot.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itbasis/go-clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"wager-tracker/internal/auth"
	"wager-tracker/internal/bot"
	"wager-tracker/internal/config"
	"wager-tracker/internal/events"
	"wager-tracker/internal/feed"
	"wager-tracker/internal/httpapi"
	"wager-tracker/internal/pkg/db"
	"wager-tracker/internal/pkg/lock"
	"wager-tracker/internal/pkg/metrics"
	"wager-tracker/internal/repository"
	"wager-tracker/internal/repository/memory"
	"wager-tracker/internal/scheduler"
	"wager-tracker/internal/service"
	"wager-tracker/internal/sport"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	log.Info().Str("storage", cfg.Storage.Driver).Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ==================== Storage ====================

	store, closeStore := openStore(ctx, cfg)
	defer closeStore()
	seed(ctx, store)

	// ==================== Feed ====================

	leagues := sport.NewDefaultRegistry()
	if err := leagues.Restrict(cfg.Feed.Sports); err != nil {
		log.Fatal().Err(err).Msg("Invalid feed.sports")
	}
	log.Info().Strs("sports", leagues.Keys()).Msg("Following leagues")

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = feed.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, feed cache disabled")
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}
	source := feed.NewCachedSource(feed.NewClient(cfg.Feed.BaseURL, cfg.Feed.FetchTimeout), rdb, cfg.Feed.CacheTTL)

	// ==================== Events & Metrics ====================

	var publisher events.Publisher = events.Noop{}
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Publishing domain events to Kafka")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close event publisher")
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(registry)

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = metrics.StartServer(cfg.Metrics.Port, registry, store.Ping)
	}

	// ==================== Services ====================

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create token issuer")
	}

	clk := clock.New()
	locks := lock.New()

	gameService := service.NewGameService(store, publisher, clk)
	betService := service.NewBetService(service.BetDeps{
		Store:    store,
		Locks:    locks,
		Events:   publisher,
		Metrics:  recorder,
		Clock:    clk,
		MaxStake: decimal.NewFromFloat(cfg.Betting.MaxStake),
	})
	syncService := service.NewSyncService(service.SyncDeps{
		Store:   store,
		Feed:    source,
		Leagues: leagues,
		Locks:   locks,
		Events:  publisher,
		Metrics: recorder,
		Clock:   clk,
	})
	accountService := service.NewAccountService(store, tokens)

	// ==================== HTTP API ====================

	api := httpapi.New(httpapi.Deps{
		Games:          gameService,
		Bets:           betService,
		Sync:           syncService,
		Accounts:       accountService,
		Tokens:         tokens,
		RequestTimeout: cfg.Server.RequestTimeout,
		Health:         store.Ping,
	})
	apiSrv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		// sync requests may run for several minutes
		WriteTimeout: max(cfg.Server.WriteTimeout, httpapi.SyncRequestTimeout+30*time.Second),
	}
	go func() {
		log.Info().Str("addr", apiSrv.Addr).Msg("HTTP API listening")
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP API stopped")
			stop()
		}
	}()

	// ==================== Scheduler ====================

	sched, err := scheduler.New(scheduler.Config{
		LiveSpec: cfg.Sync.LiveCron,
		FullSpec: cfg.Sync.FullCron,
		Location: cfg.Sync.Location,
	}, syncService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	sched.Start()
	// warm the store on boot instead of waiting for the first full run
	sched.RunFull()

	// ==================== Bot ====================

	var telegramBot *bot.Bot
	if cfg.Bot.Token != "" {
		telegramBot, err = bot.New(&bot.Dependencies{
			Config:      cfg,
			GameService: gameService,
			SyncService: syncService,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create bot")
		}
		go telegramBot.Start()
	} else {
		log.Info().Msg("bot.token not set, Telegram bot disabled")
	}

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info().Msg("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if telegramBot != nil {
		telegramBot.Stop()
	}
	sched.Stop(shutdownCtx)
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down HTTP API")
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	log.Info().Msg("Stopped gracefully")
}

// openStore connects the configured backend and applies migrations.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func()) {
	if cfg.Storage.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		return memory.New(), func() {}
	}

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	log.Info().Msg("Running database migrations...")
	if err := repository.Migrate(ctx, pool.Pool); err != nil {
		pool.Close()
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}
	log.Info().Msg("All migrations completed successfully")

	return repository.NewPostgresStore(pool.Pool), pool.Close
}

func seed(ctx context.Context, store repository.Store) {
	created, err := repository.Seed(ctx, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed teams")
	}
	if created > 0 {
		log.Info().Int("teams", created).Msg("Seeded teams")
	}
}
