package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/tabpay/tabpay/internal/order/domain"
	paymentdomain "github.com/tabpay/tabpay/internal/payment/domain"
	"github.com/tabpay/tabpay/internal/provider/gateway"
	routingdomain "github.com/tabpay/tabpay/internal/provider/routing/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

// ErrorHandlingMiddleware translates errors recorded on the gin context into
// a single JSON error envelope. Handlers record errors with AbortWithError
// and never write error bodies themselves.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: validationMessage(err),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isProviderError(err):
		return http.StatusBadGateway, errorPayload{
			Type:    "provider_error",
			Message: "payment provider unavailable",
		}
	case errors.Is(err, paymentdomain.ErrRoutingConfigMissing),
		errors.Is(err, routingdomain.ErrInvalidConfig),
		errors.Is(err, routingdomain.ErrEncryptionKeyMissing):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "bank routing not configured",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrMissingReference):
		return true
	default:
		return false
	}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, paymentdomain.ErrInvalidAmount):
		return "amount must be positive"
	case errors.Is(err, paymentdomain.ErrMissingReference):
		return "transfer reference is required"
	default:
		return "invalid request"
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, paymentdomain.ErrAmountMismatch),
		errors.Is(err, orderdomain.ErrOrderNotPayable):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, paymentdomain.ErrAmountMismatch):
		return "paid amount does not match the payment"
	case errors.Is(err, orderdomain.ErrOrderNotPayable):
		return "order is not payable"
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, paymentdomain.ErrPaymentNotFound),
		errors.Is(err, orderdomain.ErrOrderNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isProviderError(err error) bool {
	switch {
	case errors.Is(err, gateway.ErrProviderNetwork),
		errors.Is(err, gateway.ErrProviderServer),
		errors.Is(err, gateway.ErrProviderRateLimited),
		errors.Is(err, gateway.ErrProviderInvalidRequest):
		return true
	default:
		return false
	}
}
