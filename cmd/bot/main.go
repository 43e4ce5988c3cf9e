package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/user/news-push-bot/internal/bot"
	"github.com/user/news-push-bot/internal/config"
	"github.com/user/news-push-bot/internal/conversation"
	"github.com/user/news-push-bot/internal/messaging"
	"github.com/user/news-push-bot/internal/news"
	"github.com/user/news-push-bot/internal/push"
	"github.com/user/news-push-bot/internal/scheduler"
	"github.com/user/news-push-bot/internal/server"
	"github.com/user/news-push-bot/internal/store"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout = 30 * time.Second
)

func main() {
	// Structured JSON logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Configuration loaded successfully")

	location, err := cfg.Push.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid push timezone")
	}

	// Root context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prefStore, err := store.New(&cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := prefStore.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database schema")
	}
	log.Info().Str("driver", cfg.DB.Driver).Msg("Database connection established")

	lookup := news.NewGoogleNews(cfg.News)
	log.Info().Str("feed", cfg.News.FeedURL).Msg("News lookup initialized")

	lineClient, err := messaging.NewLineClient(cfg.Line.ChannelAccessToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create LINE client")
	}
	log.Info().Msg("LINE client initialized")

	pushService := push.NewService(prefStore, lookup, lineClient, push.Options{
		NewsLimit:   cfg.News.Limit,
		Concurrency: cfg.News.Concurrency,
		RateLimit:   cfg.Push.RateLimit,
	})

	botHandler := bot.NewHandler(prefStore, conversation.NewTracker(), lookup, lineClient, bot.Options{
		NewsLimit:   cfg.News.Limit,
		Concurrency: cfg.News.Concurrency,
		Location:    location,
	})
	dispatcher := bot.NewDispatcher(ctx, botHandler)
	log.Info().Msg("Bot handler initialized")

	sched, err := scheduler.NewScheduler(prefStore, pushService, &cfg.Push, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}

	httpServer := server.NewServer(prefStore, dispatcher, cfg.Line.ChannelSecret)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpServer.Start(cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Scans get their own context so shutdown can abort a running one
	schedCtx, schedCancel := context.WithCancel(ctx)
	defer schedCancel()
	if err := sched.Start(schedCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	log.Info().Msg("News bot started successfully")

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	log.Info().Msg("Starting graceful shutdown...")

	// 1. Abort a running scan and stop scheduling new ones
	schedCancel()
	if err := sched.Stop(); err != nil {
		log.Error().Err(err).Msg("Error stopping scheduler")
	}

	// 2. Stop accepting webhooks
	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping HTTP server")
	} else {
		log.Info().Msg("HTTP server stopped")
	}

	// 3. Finish events already accepted
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Pending events not finished before timeout")
	} else {
		log.Info().Msg("Pending events handled")
	}

	// 4. Close database connection pool
	if err := prefStore.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database connection")
	} else {
		log.Info().Msg("Database connection closed")
	}

	cancel()

	select {
	case <-shutdownCtx.Done():
		if shutdownCtx.Err() == context.DeadlineExceeded {
			log.Warn().Msg("Shutdown timeout exceeded, forcing exit")
		}
	default:
		log.Info().Msg("Graceful shutdown completed")
	}
}
