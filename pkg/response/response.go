package response

import (
	"net/http"

	appErrors "github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/errors"
	"github.com/gin-gonic/gin"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Response defines the base API payload.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo holds error details to send to clients.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success writes a JSON success response.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Status: StatusOK,
		Data:   data,
	})
}

// SuccessWithMessage writes a JSON success response with a human readable message.
func SuccessWithMessage(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Status:  StatusOK,
		Message: message,
		Data:    data,
	})
}

// Error writes a JSON error response derived from an AppError. Internal
// details never reach the client.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, Response{
		Status:  StatusError,
		Message: appErr.Message,
		Error: &ErrorInfo{
			Code:    appErr.Code,
			Message: appErr.Message,
		},
	})
}
