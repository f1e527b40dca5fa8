package middleware

import (
	"net/http"

	"classroom/internal/service"

	"github.com/gin-gonic/gin"
)

// RequireStaff rejects callers that are neither admins nor instructors. It
// must run after JWTMiddleware.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		op := service.GetOperatorInfo(c.Request.Context())
		if op == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication credentials were not provided"})
			return
		}
		if !op.IsStaff() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": service.ErrForbidden.Error()})
			return
		}
		c.Next()
	}
}
