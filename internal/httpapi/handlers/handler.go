package handlers

import (
	"imagenbot/internal/config"
	"imagenbot/internal/settings"
	"imagenbot/internal/store"
)

// Handler serves the operations API: login, stats and recent activity.
type Handler struct {
	Store    *store.Store
	Settings *settings.Provider
	Cfg      *config.Config
}

func NewHandler(st *store.Store, sp *settings.Provider, cfg *config.Config) *Handler {
	return &Handler{Store: st, Settings: sp, Cfg: cfg}
}
