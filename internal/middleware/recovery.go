package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	apperrors "github.com/tunelease/server/pkg/errors"
	"github.com/tunelease/server/pkg/httputil"
	"github.com/tunelease/server/pkg/logger"
)

// Recovery converts panics into 500 responses.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.WithFields(
					logger.String("request_id", GetRequestID(c)),
					logger.String("panic", fmt.Sprintf("%v", err)),
					logger.String("stack", string(debug.Stack())),
				).Error("panic recovered")

				httputil.ErrorResponse(c, apperrors.ErrInternal)
				c.Abort()
			}
		}()

		c.Next()
	}
}
