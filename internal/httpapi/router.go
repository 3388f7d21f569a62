package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"imagenbot/internal/common"
	"imagenbot/internal/config"
	"imagenbot/internal/httpapi/handlers"
	"imagenbot/internal/httpapi/middleware"
	"imagenbot/internal/settings"
	"imagenbot/internal/store"
)

func NewRouter(st *store.Store, sp *settings.Provider, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	h := handlers.NewHandler(st, sp, cfg)

	r.GET("/ping", h.Ping)
	r.GET("/healthz", h.Ping)
	r.POST("/login", h.Login)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.API.JWTSecret))
	authGroup.GET("/stats", h.Stats)
	authGroup.GET("/logs", h.Logs)

	return r
}
