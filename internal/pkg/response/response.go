package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeForbidden           = "FORBIDDEN"
	CodeRateLimited         = "RATE_LIMITED"
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeInternal            = "INTERNAL_ERROR"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

// Error writes the error envelope. statusCode/message/timestamp sit next to the
// nested error object so clients of either shape can read it.
func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success":    false,
		"statusCode": statusCode,
		"message":    message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success":    false,
		"statusCode": statusCode,
		"message":    message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

func AbortError(c *gin.Context, statusCode int, code string, message string) {
	Error(c, statusCode, code, message)
	c.Abort()
}

func Unauthenticated(c *gin.Context) {
	AbortError(c, http.StatusUnauthorized, CodeUnauthenticated, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	AbortError(c, http.StatusForbidden, CodeForbidden, "Forbidden")
}

// RateLimited is the body returned on a denied request.
func RateLimited(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"message":    "Rate limit exceeded",
		"statusCode": http.StatusTooManyRequests,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
