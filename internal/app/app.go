// Package app wires the notification engine and its collaborators from
// configuration. Both the API server and the CLI build on it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/albapepper/courtwatch/internal/cache"
	"github.com/albapepper/courtwatch/internal/config"
	"github.com/albapepper/courtwatch/internal/db"
	"github.com/albapepper/courtwatch/internal/delivery"
	"github.com/albapepper/courtwatch/internal/notifications"
	"github.com/albapepper/courtwatch/internal/provider/tennis"
	"github.com/albapepper/courtwatch/internal/runlock"
	"github.com/albapepper/courtwatch/internal/store"
)

// App holds the wired components.
type App struct {
	Config     *config.Config
	Cache      *cache.Cache
	Store      *store.Store
	Dispatcher *delivery.Dispatcher
	Engine     *notifications.Engine

	pool  *db.Pool
	redis *runlock.Redis
}

// New builds every component. Call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg}

	backend, err := a.openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Store, err = store.Open(ctx, backend, cfg.HistoryLimit, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Cache = cache.New(cfg.CacheEnabled)
	source := tennis.NewClient(tennis.Config{
		BaseURL:           cfg.TennisAPIURL,
		APIKey:            cfg.TennisAPIKey,
		RequestsPerMinute: cfg.TennisAPIRPM,
		Timeout:           cfg.TennisAPITimeout,
		CacheTTL:          cfg.TennisCacheTTL,
	}, a.Cache, logger)

	a.Dispatcher, err = newDispatcher(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	var lock notifications.Locker
	if cfg.RedisURL != "" {
		a.redis, err = runlock.NewRedis(ctx, cfg.RedisURL, cfg.RunLockKey, cfg.RunLockTTL)
		if err != nil {
			a.Close()
			return nil, err
		}
		lock = a.redis
		logger.Info("Run lock shared via Redis", "key", cfg.RunLockKey)
	}

	a.Engine = notifications.NewEngine(source, a.Store, a.Dispatcher, lock, notifications.Options{
		Workers:           cfg.RuleWorkers,
		RunTimeout:        cfg.RunTimeout,
		FetchTimeout:      cfg.TennisAPITimeout,
		FetchRetries:      cfg.TennisAPIRetries,
		UpcomingLookahead: cfg.UpcomingLookahead,
		ResultsLookback:   cfg.ResultsLookback,
	}, logger)
	return a, nil
}

func (a *App) openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Backend, error) {
	if cfg.StoreBackend != config.StorePostgres {
		logger.Info("Using file store", "path", cfg.StorePath)
		return store.NewFileBackend(cfg.StorePath), nil
	}
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.pool = pool
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)
	return store.NewPostgresBackend(pool), nil
}

func newDispatcher(cfg *config.Config, logger *slog.Logger) (*delivery.Dispatcher, error) {
	discord, err := delivery.NewDiscord(cfg.DiscordBotToken, cfg.DiscordChannelID)
	if err != nil {
		return nil, fmt.Errorf("discord channel: %w", err)
	}
	d := delivery.NewDispatcher(cfg.DeliveryTimeout, logger,
		delivery.NewEmail(delivery.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			StartTLS: cfg.SMTPStartTLS,
			Timeout:  cfg.DeliveryTimeout,
		}),
		discord,
		delivery.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID),
		delivery.NewWebPush(delivery.WebPushConfig{
			PublicKey:  cfg.VAPIDPublicKey,
			PrivateKey: cfg.VAPIDPrivateKey,
			Subscriber: cfg.VAPIDSubscriber,
		}),
	)
	return d, nil
}

// Close releases connections.
func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
