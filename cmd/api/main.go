package main

import (
	"fmt"

	"imagenbot/internal/config"
	"imagenbot/internal/db"
	"imagenbot/internal/httpapi"
	"imagenbot/internal/logger"
	"imagenbot/internal/settings"
	"imagenbot/internal/store"
)

func main() {
	cfg := config.Load()
	logger.Init("api", cfg.Debug)

	gdb := db.Connect(cfg.DBDSN)
	st := store.New(gdb)
	sp := settings.NewProvider(st, settings.Defaults{
		RateLimitSeconds: cfg.RateLimitSeconds,
		AdminID:          cfg.AdminID,
	})

	r := httpapi.NewRouter(st, sp, cfg)

	addr := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info().Str("addr", addr).Msg("api listening")
	if err := r.Run(addr); err != nil {
		logger.Fatal().Err(err).Msg("api server stopped")
	}
}
