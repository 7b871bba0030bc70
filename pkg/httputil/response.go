// Package httputil provides HTTP response helpers shared by handlers.
package httputil

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tunelease/server/pkg/errors"
)

// Response represents a standard API response envelope.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	RequestID string      `json:"request_id"`
}

// ErrorInfo represents error information in the response.
type ErrorInfo struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse sends a successful response.
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Success:   true,
		Data:      data,
		RequestID: GetRequestID(c),
	})
}

// ErrorResponse sends an error response.
func ErrorResponse(c *gin.Context, err error) {
	appErr, ok := err.(*errors.Error)
	if !ok {
		appErr = errors.ErrInternal.WithError(err)
	}

	c.JSON(appErr.HTTPStatus, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
		RequestID: GetRequestID(c),
	})
}

// GetRequestID retrieves or generates a request ID.
func GetRequestID(c *gin.Context) string {
	requestID := c.GetString("request_id")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return requestID
}

// GetCompanyID retrieves the authenticated company ID from context.
// Empty string means the caller is unauthenticated.
func GetCompanyID(c *gin.Context) string {
	companyID, _ := c.Get("company_id")
	if companyID == nil {
		return ""
	}
	return companyID.(string)
}
