package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key set by the request id middleware.
const RequestIDKey = "request_id"

// Response is the uniform envelope for every API reply. Code 0 means
// success; non-zero codes are stable business codes, independent of the
// HTTP status.
type Response struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:      0,
		Message:   "ok",
		Data:      data,
		RequestID: c.GetString(RequestIDKey),
	})
}

func Fail(c *gin.Context, httpStatus, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, Response{
		Code:      code,
		Message:   message,
		RequestID: c.GetString(RequestIDKey),
	})
}
