package handler

import (
	"errors"
	"net/http"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps a service error to its HTTP status and client message.
// ok is false for errors that are not part of the domain contract.
func statusFor(err error) (status int, message string, ok bool) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr) && errors.Is(err, domain.ErrProductExists):
		return http.StatusConflict, "Validation failed", true
	case errors.As(err, &verr):
		return http.StatusBadRequest, "Validation failed", true
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound, "Product not found", true
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, "Order not found", true
	case errors.Is(err, domain.ErrProductExists):
		return http.StatusConflict, "Product already exists", true
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict, "Insufficient stock", true
	case errors.Is(err, domain.ErrOrderAlreadyFulfilled):
		return http.StatusConflict, "Order already fulfilled", true
	case errors.Is(err, domain.ErrStockConflict):
		return http.StatusConflict, "Stock changed concurrently, please retry", true
	default:
		return http.StatusInternalServerError, "", false
	}
}

// errorBody builds the JSON error response. Unknown errors are logged and
// reported with the fallback message only.
func errorBody(logger *zap.Logger, err error, fallback string, fields ...zap.Field) (int, gin.H) {
	status, message, ok := statusFor(err)
	if !ok {
		logger.Error(fallback, append(fields, zap.Error(err))...)
		return status, gin.H{"error": fallback}
	}

	body := gin.H{"error": message}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body["fields"] = verr.Fields
	} else if errors.Unwrap(err) != nil {
		body["detail"] = err.Error()
	}
	return status, body
}

func respondError(c *gin.Context, logger *zap.Logger, err error, fallback string, fields ...zap.Field) {
	status, body := errorBody(logger, err, fallback, fields...)
	c.JSON(status, body)
}

func respondBadRequest(c *gin.Context, logger *zap.Logger, err error) {
	logger.Warn("Invalid request", zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{
		"error": "Invalid request format",
	})
}
