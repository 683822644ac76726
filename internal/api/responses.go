package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/flowgate/flowgate/pkg/errors"
	"github.com/flowgate/flowgate/pkg/resilience"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError represents an API error
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func requestIDFrom(c *gin.Context) string {
	if id, exists := c.Get("request_id"); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// SuccessResponse sends a successful response
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success:   true,
		Data:      data,
		RequestID: requestIDFrom(c),
		Timestamp: time.Now(),
	})
}

// ErrorResponseFromError sends an error response based on the error type
func ErrorResponseFromError(c *gin.Context, err error) {
	var statusCode int
	var apiError *APIError

	switch e := err.(type) {
	case *apperrors.AppError:
		switch e.Type {
		case apperrors.ErrorTypeValidation:
			statusCode = http.StatusBadRequest
		case apperrors.ErrorTypeNotFound:
			statusCode = http.StatusNotFound
		case apperrors.ErrorTypeConflict:
			statusCode = http.StatusConflict
		case apperrors.ErrorTypeRateLimit:
			statusCode = http.StatusTooManyRequests
		case apperrors.ErrorTypeTimeout:
			statusCode = http.StatusGatewayTimeout
		case apperrors.ErrorTypeNetwork, apperrors.ErrorTypeExternal:
			statusCode = http.StatusBadGateway
		default:
			statusCode = http.StatusInternalServerError
		}
		apiError = &APIError{
			Code:    e.Code,
			Message: e.Message,
			Details: e.Details,
		}

	case *resilience.CircuitOpenError:
		statusCode = http.StatusServiceUnavailable
		c.Header("Retry-After", e.Remaining.Round(time.Second).String())
		apiError = &APIError{
			Code:    "CIRCUIT_OPEN",
			Message: e.Error(),
			Details: map[string]string{
				"circuit_key": e.Key,
				"remaining":   e.Remaining.Round(time.Millisecond).String(),
			},
		}

	default:
		statusCode = http.StatusInternalServerError
		apiError = &APIError{
			Code:    "INTERNAL_ERROR",
			Message: "An internal error occurred",
		}
	}

	c.JSON(statusCode, APIResponse{
		Success:   false,
		Error:     apiError,
		RequestID: requestIDFrom(c),
		Timestamp: time.Now(),
	})
}

// BadRequestResponse sends a 400 Bad Request response
func BadRequestResponse(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, APIResponse{
		Success:   false,
		Error:     &APIError{Code: "BAD_REQUEST", Message: message},
		RequestID: requestIDFrom(c),
		Timestamp: time.Now(),
	})
}

// NotFoundResponse sends a 404 Not Found response
func NotFoundResponse(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, APIResponse{
		Success:   false,
		Error:     &APIError{Code: "NOT_FOUND", Message: message},
		RequestID: requestIDFrom(c),
		Timestamp: time.Now(),
	})
}
