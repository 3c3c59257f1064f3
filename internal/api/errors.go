package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storyreel/internal/models"
)

// Коды ошибок в теле ответа.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeNotFound      = "not_found"
	ErrCodeInvalidState  = "invalid_state"
	ErrCodeDuplicateName = "duplicate_name"
	ErrCodeTimeout       = "timeout"
	ErrCodeProvider      = "provider_error"
	ErrCodeInternal      = "internal_error"
)

// ErrorResponse - тело ответа с ошибкой.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: message})
}

// handleServiceError переводит доменную ошибку в HTTP-статус.
// Текст ошибки уже содержит операцию и id, поэтому отдается клиенту как есть.
func handleServiceError(c *gin.Context, logger *zap.Logger, err error) {
	var statusCode int
	var code string

	switch {
	case errors.Is(err, models.ErrNotFound):
		statusCode, code = http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, models.ErrInvalidInput):
		statusCode, code = http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, models.ErrDuplicateName):
		statusCode, code = http.StatusConflict, ErrCodeDuplicateName
	case errors.Is(err, models.ErrInvalidState):
		statusCode, code = http.StatusConflict, ErrCodeInvalidState
	case errors.Is(err, models.ErrGenerationTimeout), errors.Is(err, context.DeadlineExceeded):
		statusCode, code = http.StatusGatewayTimeout, ErrCodeTimeout
	case errors.Is(err, models.ErrProvider),
		errors.Is(err, models.ErrGenerationFailed),
		errors.Is(err, models.ErrInvalidProviderResponse):
		statusCode, code = http.StatusBadGateway, ErrCodeProvider
	default:
		logger.Error("Unhandled internal error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Code: ErrCodeInternal, Message: "An unexpected internal error occurred"})
		return
	}

	if statusCode >= http.StatusInternalServerError {
		logger.Warn("Upstream failure", zap.String("path", c.Request.URL.Path), zap.Int("status", statusCode), zap.Error(err))
	}
	c.AbortWithStatusJSON(statusCode, ErrorResponse{Code: code, Message: err.Error()})
}
