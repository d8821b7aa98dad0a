package response

import (
	"errors"
	"net/http"

	"emiho-marketplace/internal/services"
	"emiho-marketplace/pkg/logging"

	"github.com/gin-gonic/gin"
)

// genericFailure is shown instead of internal detail on 5xx responses
const genericFailure = "Something went wrong on our side, please try again"

// Response represents a standard API error response
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Success merges fields into a success body
func Success(fields gin.H) gin.H {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	return body
}

// SuccessJSON sends a 200 success response
func SuccessJSON(c *gin.Context, fields gin.H) {
	c.JSON(http.StatusOK, Success(fields))
}

// CreatedJSON sends a 201 success response
func CreatedJSON(c *gin.Context, fields gin.H) {
	c.JSON(http.StatusCreated, Success(fields))
}

// ErrorJSON sends an error response with an explicit status
func ErrorJSON(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{Success: false, Error: message})
}

// StatusFor maps a service error kind to its HTTP status
func StatusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindInvalidRequest,
		services.KindSellerNotPayable,
		services.KindInvalidSignature,
		services.KindPaymentNotCompleted:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error translates a service error into a response. Detail of server-side
// failures is logged, never returned.
func Error(c *gin.Context, err error) {
	kind := services.KindOf(err)
	status := StatusFor(kind)

	if status >= http.StatusInternalServerError {
		logging.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		ErrorJSON(c, status, genericFailure)
		return
	}

	message := err.Error()
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		message = svcErr.Message
	}
	ErrorJSON(c, status, message)
}
