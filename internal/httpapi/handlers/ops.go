package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"imagenbot/internal/auth"
	"imagenbot/internal/common"
)

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

type loginReq struct {
	Password string `json:"password"`
}

// Login exchanges the operator password for a bearer token. The admin
// identity from settings becomes the token subject.
func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if h.Cfg.API.AdminPasswordHash == "" {
		common.Fail(c, http.StatusForbidden, 40300, "operator login disabled")
		return
	}
	if !auth.CheckPassword(h.Cfg.API.AdminPasswordHash, req.Password) {
		common.Fail(c, http.StatusUnauthorized, 40102, "wrong password")
		return
	}

	adminID := h.Settings.AdminID(c.Request.Context())
	token, err := auth.SignJWT(adminID, h.Cfg.API.JWTSecret, 24*time.Hour)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}
	common.OK(c, gin.H{"token": token})
}

func (h *Handler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	users, err := h.Store.CountUsers(ctx)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	generations, err := h.Store.CountLogs(ctx)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	styles, err := h.Store.TopGroupedBy(ctx, "style", 5)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	prompts, err := h.Store.TopGroupedBy(ctx, "prompt", 5)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	common.OK(c, gin.H{
		"users":             users,
		"generations":       generations,
		"top_styles":        styles,
		"top_prompts":       prompts,
		"rate_limit_second": h.Settings.RateLimitSeconds(ctx),
	})
}

func (h *Handler) Logs(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			common.Fail(c, http.StatusBadRequest, 10005, "limit must be 1..500")
			return
		}
		limit = n
	}

	rows, err := h.Store.RecentLogs(c.Request.Context(), limit)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	common.OK(c, gin.H{"logs": rows})
}
