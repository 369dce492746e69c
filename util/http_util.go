// util/http_util.go
package util

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/tea0112/ecm-identity-service-sub001/logging"
)

func RespondWithError(c *gin.Context, code int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(code, gin.H{"error": message})
}

// GetTenantIDFromContext returns the tenant the identity middleware resolved.
func GetTenantIDFromContext(c *gin.Context) string {
	tenantID, exists := c.Get("tenantID")
	if !exists {
		return ""
	}
	return tenantID.(string)
}

// GetSubjectIDFromContext returns the authenticated caller's principal id.
func GetSubjectIDFromContext(c *gin.Context) string {
	subjectID, exists := c.Get("subjectID")
	if !exists {
		return ""
	}
	return subjectID.(string)
}

// GetSessionIDFromContext returns the caller's session id, if any.
func GetSessionIDFromContext(c *gin.Context) string {
	sessionID, exists := c.Get("sessionID")
	if !exists {
		return ""
	}
	return sessionID.(string)
}

// GetApplicationIDFromContext returns the calling application id, if any.
func GetApplicationIDFromContext(c *gin.Context) string {
	applicationID, exists := c.Get("applicationID")
	if !exists {
		return ""
	}
	return applicationID.(string)
}
