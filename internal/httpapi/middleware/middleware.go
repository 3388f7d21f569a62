package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"imagenbot/internal/auth"
	"imagenbot/internal/common"
	"imagenbot/internal/logger"
)

// RequestID tags every request, echoing a client-provided id when set.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(common.RequestIDKey, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// Recovery converts panics into the uniform error envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("handler panicked")
				common.Fail(c, http.StatusInternalServerError, 50000, "internal error")
			}
		}()
		c.Next()
	}
}

// AuthRequired validates the bearer token and stores the operator id.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			common.Fail(c, http.StatusUnauthorized, 40100, "missing bearer token")
			return
		}
		id, err := auth.ParseJWT(token, secret)
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40101, "invalid token")
			return
		}
		c.Set("operator_id", id)
		c.Next()
	}
}
