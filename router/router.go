// router/router.go

package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tea0112/ecm-identity-service-sub001/controller"
	"github.com/tea0112/ecm-identity-service-sub001/middleware"
)

func SetupRouter(
	controllers *controller.Controllers,
	rateLimitRequests int,
	rateLimitDuration time.Duration,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.RateLimiter(rateLimitRequests, rateLimitDuration))
	router.Use(middleware.Identity())

	api := router.Group("/api/v1")

	controllers.Authz.RegisterRoutes(api)
	controllers.Delegation.RegisterRoutes(api)
	controllers.BreakGlass.RegisterRoutes(api)
	controllers.Consent.RegisterRoutes(api)
	controllers.Admin.RegisterRoutes(api)

	return router
}
