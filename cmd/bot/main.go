package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"imagenbot/internal/admin"
	"imagenbot/internal/admission"
	"imagenbot/internal/bot"
	"imagenbot/internal/config"
	"imagenbot/internal/db"
	"imagenbot/internal/digen"
	"imagenbot/internal/fetch"
	"imagenbot/internal/logger"
	"imagenbot/internal/prompt"
	"imagenbot/internal/settings"
	"imagenbot/internal/state"
	"imagenbot/internal/store"
	"imagenbot/internal/telegram"
	"imagenbot/internal/video"
)

func main() {
	cfg := config.Load()
	logger.Init("bot", cfg.Debug)

	if cfg.Telegram.BotToken == "" {
		logger.Fatal().Msg("BOT_TOKEN is required")
	}

	gdb := db.Connect(cfg.DBDSN)
	st := store.New(gdb)
	sp := settings.NewProvider(st, settings.Defaults{
		RateLimitSeconds: cfg.RateLimitSeconds,
		AdminID:          cfg.AdminID,
		Token:            cfg.DigenToken,
		Session:          cfg.DigenSession,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sp.SeedAdminID(ctx, cfg.AdminID); err != nil {
		logger.Fatal().Err(err).Msg("seeding admin identity failed")
	}

	// Session state lives in redis when configured, otherwise in-process.
	var kv state.KeyedStore = state.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("redis ping failed")
		}
		kv = state.NewRedisStore(rdb, 12*time.Hour)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("session state in redis")
	}

	tg := telegram.NewClient(cfg.Telegram.APIBaseURL, cfg.Telegram.BotToken,
		time.Duration(cfg.Telegram.PollTimeout)*time.Second)

	translator := prompt.NewGoogleTranslator(cfg.Translate.URL,
		time.Duration(cfg.Translate.TimeoutSeconds)*time.Second)
	transformer := prompt.NewTransformer(translator, cfg.Translate.TargetLang)

	generator := digen.NewClient(digen.Options{
		URL:              cfg.Digen.URL,
		ImageURLTemplate: cfg.Digen.ImageURLTemplate,
		Width:            cfg.Digen.Width,
		Height:           cfg.Digen.Height,
		BatchSize:        cfg.Digen.BatchSize,
		Timeout:          time.Duration(cfg.Digen.TimeoutSeconds) * time.Second,
	}, sp)

	fetcher := fetch.NewFetcher(time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second)

	var encoder bot.VideoEncoder
	if cfg.Video.Enabled {
		encoder = video.NewEncoder(cfg.Video.FFmpegPath, cfg.Video.DurationSeconds)
	}

	machine := admin.NewMachine(admin.NewPendingActions(kv), st, sp, tg)
	styles := bot.NewStyleSelections(kv)

	svc := bot.NewService(st, sp, admission.NewController(st, sp),
		transformer, generator, fetcher, encoder, tg, machine, styles)

	if cfg.DigestCron != "" {
		c := cron.New()
		_, err := c.AddFunc(cfg.DigestCron, func() {
			adminID := sp.AdminID(context.Background())
			if adminID == 0 {
				return
			}
			text, err := machine.StatsText(context.Background())
			if err != nil {
				logger.Error().Err(err).Msg("stats digest failed")
				return
			}
			if _, err := tg.SendMessage(context.Background(), adminID, text, nil); err != nil {
				logger.Warn().Err(err).Msg("stats digest delivery failed")
			}
		})
		if err != nil {
			logger.Fatal().Err(err).Str("spec", cfg.DigestCron).Msg("bad digest cron spec")
		}
		c.Start()
		defer c.Stop()
		logger.Info().Str("spec", cfg.DigestCron).Msg("stats digest scheduled")
	}

	runner := bot.NewRunner(tg, svc, cfg.Telegram.Workers, cfg.Telegram.PollTimeout)
	runner.Run(ctx)
}
