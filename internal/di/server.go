package di

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tranvuongduy2003/jobrunner/internal/core/manager"
	v1 "github.com/tranvuongduy2003/jobrunner/internal/handlers/http/v1"
	"github.com/tranvuongduy2003/jobrunner/internal/handlers/http/middleware"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure/config"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure/logger"
	httpmetrics "github.com/tranvuongduy2003/jobrunner/internal/infrastructure/metrics"
	"github.com/tranvuongduy2003/jobrunner/pkg/response"
)

// ServerModule provides the HTTP server: the Gin router, its middleware
// stack, the job submission/lookup routes, and the *http.Server lifecycle.
var ServerModule = fx.Module("server",
	fx.Provide(
		NewHTTPServer,
		NewGinRouter,
		NewResponseFactory,
		NewJobsHandler,
	),
	fx.Invoke(SetupMiddleware, RegisterRoutes, HTTPServerLifecycle),
)

// ServerParams holds parameters for server providers.
type ServerParams struct {
	fx.In
	Config *config.AppConfig
	Router *gin.Engine
}

// RouterParams holds parameters for router construction.
type RouterParams struct {
	fx.In
	Config *config.AppConfig
	Logger *logger.Logger
}

// RouteParams holds parameters for route registration.
type RouteParams struct {
	fx.In
	Router      *gin.Engine
	JobsHandler *v1.JobsHandler
}

// MiddlewareParams holds parameters for middleware setup.
type MiddlewareParams struct {
	fx.In
	Router  *gin.Engine
	Config  *config.AppConfig
	Logger  *logger.Logger
	Metrics *httpmetrics.Manager
}

// NewGinRouter creates and configures the Gin router without its default
// middleware; SetupMiddleware attaches the stack this repository wants.
func NewGinRouter(params RouterParams) *gin.Engine {
	if params.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	return gin.New()
}

// NewResponseFactory provides the response.Factory every HTTP handler
// renders through.
func NewResponseFactory() response.Factory {
	return response.NewGinFactory()
}

// NewJobsHandler provides the Submit/Get job HTTP handlers.
func NewJobsHandler(m *manager.Manager, factory response.Factory) *v1.JobsHandler {
	return v1.NewJobsHandler(m, factory)
}

// SetupMiddleware attaches the request-id, access-log, recovery, CORS, and
// metrics middleware, with a stricter CORS policy in production.
func SetupMiddleware(params MiddlewareParams) {
	params.Router.Use(middleware.RequestIDMiddleware())
	params.Router.Use(middleware.AccessLogMiddleware(params.Logger))
	params.Router.Use(params.Metrics.GinMiddleware())

	if params.Config.App.Environment == "production" {
		params.Router.Use(middleware.ProductionRecoveryMiddleware(params.Logger))
		params.Router.Use(middleware.ProductionCORSMiddleware([]string{
			"https://yourdomain.com",
			"https://www.yourdomain.com",
		}))
	} else {
		params.Router.Use(middleware.DevelopmentRecoveryMiddleware(params.Logger))
		params.Router.Use(middleware.DevCORSMiddleware())
	}

	params.Router.NoRoute(middleware.NoRouteMiddleware())
	params.Router.NoMethod(middleware.NoMethodMiddleware())
	params.Router.GET("/healthz", middleware.HealthCheckMiddleware())
}

// RegisterRoutes registers the job submission and lookup routes. Submit
// accepts any of POST/PUT/PATCH/DELETE, per the external HTTP surface:
// the verb carries no special meaning to the core, only to callers
// choosing one for semantic HTTP conventions.
func RegisterRoutes(params RouteParams) {
	v1API := params.Router.Group("/api/v1")
	{
		jobs := v1API.Group("/jobs")
		{
			jobs.POST("/:name", params.JobsHandler.Submit)
			jobs.PUT("/:name", params.JobsHandler.Submit)
			jobs.PATCH("/:name", params.JobsHandler.Submit)
			jobs.DELETE("/:name", params.JobsHandler.Submit)
			jobs.GET("/:id", params.JobsHandler.Get)
		}
	}
}

// NewHTTPServer creates the HTTP server.
func NewHTTPServer(params ServerParams) *http.Server {
	addr := fmt.Sprintf(":%d", params.Config.Server.HTTP.Port)
	return &http.Server{
		Addr:    addr,
		Handler: params.Router,
	}
}

// HTTPServerLifecycle handles HTTP server start/stop.
func HTTPServerLifecycle(
	lc fx.Lifecycle,
	server *http.Server,
	config *config.AppConfig,
	logger *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting HTTP server",
				zap.String("addr", server.Addr),
				zap.String("environment", config.App.Environment),
			)

			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal("failed to start HTTP server", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}
