// middleware/identity.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/tea0112/ecm-identity-service-sub001/logging"
)

// Identity extracts the authenticated subject and tenant that the upstream
// credential service placed on the request. Authentication itself happens
// upstream; this service only decides authorization, so missing identity
// headers are rejected rather than verified.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader("X-Tenant-ID")
		subjectID := c.GetHeader("X-Subject-ID")
		sessionID := c.GetHeader("X-Session-ID")
		applicationID := c.GetHeader("X-Application-ID")

		if tenantID == "" || subjectID == "" {
			logger.Warn("Request missing identity headers",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		c.Set("tenantID", tenantID)
		c.Set("subjectID", subjectID)
		c.Set("sessionID", sessionID)
		c.Set("applicationID", applicationID)

		c.Next()
	}
}
