package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tea0112/ecm-identity-service-sub001/audit"
	"github.com/tea0112/ecm-identity-service-sub001/config"
	"github.com/tea0112/ecm-identity-service-sub001/controller"
	"github.com/tea0112/ecm-identity-service-sub001/dao"
	"github.com/tea0112/ecm-identity-service-sub001/db"
	logger "github.com/tea0112/ecm-identity-service-sub001/logging"
	"github.com/tea0112/ecm-identity-service-sub001/propagation"
	"github.com/tea0112/ecm-identity-service-sub001/router"
	"github.com/tea0112/ecm-identity-service-sub001/service"
	"github.com/tea0112/ecm-identity-service-sub001/store"
	"github.com/tea0112/ecm-identity-service-sub001/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	// Initialize Neo4j
	if err := db.InitNeo4j(); err != nil {
		logger.Fatal("Failed to initialize Neo4j", zap.Error(err))
	}
	defer db.CloseNeo4j()

	// Initialize Redis
	if err := db.InitRedis(); err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer db.CloseRedis()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the propagation channel: in-process bus plus the Redis
	// fan-out to other engine instances.
	bus := propagation.NewBus(1024)
	bus.Start(ctx)
	redisChannel := propagation.NewRedisChannel(db.RedisClient)
	publisher := propagation.MultiPublisher{bus, redisChannel}

	// Initialize the versioned policy/revocation store with Neo4j write-through
	authzDAO := dao.NewAuthzDAO(db.Neo4jDriver)
	authzStore := store.NewStore(publisher, authzDAO)

	// Initialize services and utilities
	validationUtil := util.NewValidationUtil()
	cacheService := util.NewCacheService()
	notificationService := util.NewNotificationService()
	lockService := util.NewLockService()
	auditRepository, err := audit.NewElasticsearchRepository(config.GetString("elasticsearch.url"))
	if err != nil {
		logger.Fatal("Failed to initialize audit repository", zap.Error(err))
	}
	auditService := audit.NewService(auditRepository)
	tenantDirectory := service.NewStaticTenantDirectory(config.GetStringSlice("tenants.active")...)

	services, err := service.InitializeServices(
		authzStore,
		tenantDirectory,
		auditService,
		validationUtil,
		cacheService,
		notificationService,
		lockService,
		bus,
		redisChannel,
		service.Config{
			PropagationSLA:              config.GetDuration("authz.propagationSLA"),
			DecisionTTL:                 config.GetDuration("authz.decisionTTL"),
			BreakGlassDefaultActivation: config.GetDuration("breakglass.defaultActivation"),
		},
	)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	// Subscribe the engine to the propagation stream and start the
	// break-glass expiry sweep.
	if authzService, ok := services.Authz.(*service.AuthzService); ok {
		authzService.Start(ctx)
	}
	if breakGlassService, ok := services.BreakGlass.(*service.BreakGlassService); ok {
		breakGlassService.StartSweeper(ctx, config.GetDuration("breakglass.sweepInterval"))
	}

	// Initialize controllers
	controllers := controller.InitializeControllers(services)

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	engine := router.SetupRouter(
		controllers,
		config.GetInt("ratelimit.requests"),
		config.GetDuration("ratelimit.duration"),
	)

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler: engine,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", config.GetString("server.port")))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Stop background work before letting in-flight requests drain.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
