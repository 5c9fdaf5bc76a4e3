package httpapi

import (
	"errors"
	"net/http"

	"github.com/ZanzyTHEbar/siteops/siteops/assistant"
	"github.com/gin-gonic/gin"
)

// UnifiedResponse is the envelope of every API response.
type UnifiedResponse struct {
	Code    int    `json:"code"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondSuccess(c *gin.Context, message string, data any) {
	respond(c, http.StatusOK, message, data)
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, UnifiedResponse{
		Code:    status,
		Success: status >= 200 && status < 300,
		Message: message,
		Data:    data,
	})
}

func respondError(c *gin.Context, status int, message string, err error) {
	resp := UnifiedResponse{
		Code:    status,
		Success: false,
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	c.AbortWithStatusJSON(status, resp)
}

// statusFor maps assistant errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, assistant.ErrEmptyMessage),
		errors.Is(err, assistant.ErrOwnerRequired),
		errors.Is(err, assistant.ErrModelRequired),
		errors.Is(err, assistant.ErrNoToolCalls):
		return http.StatusBadRequest
	case errors.Is(err, assistant.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, assistant.ErrModelUnavailable):
		return http.StatusNotFound
	case errors.Is(err, assistant.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, assistant.ErrChatFailed),
		errors.Is(err, assistant.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
