package server

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/booking-calendar-api/internal/handler"
	"github.com/noah-isme/booking-calendar-api/internal/middleware"
	"github.com/noah-isme/booking-calendar-api/internal/service"
	"github.com/noah-isme/booking-calendar-api/pkg/config"
	"github.com/noah-isme/booking-calendar-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/booking-calendar-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/booking-calendar-api/pkg/middleware/requestid"
)

// Dependencies bundles everything the router wires into routes.
type Dependencies struct {
	Events    *handler.EventHandler
	Schedules *handler.ScheduleHandler
	Public    *handler.PublicHandler
	Ops       *handler.MetricsHandler
	Verifier  middleware.TokenVerifier
	Limiter   middleware.HitCounter
	Metrics   *service.MetricsService
	Logger    *zap.Logger
}

// NewRouter builds the gin engine with ops routes at the root and the API under cfg.APIPrefix.
func NewRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", deps.Ops.Health)
	r.GET("/ready", deps.Ops.Ready)
	r.GET("/metrics", deps.Ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	private := api.Group("")
	private.Use(middleware.Identity(deps.Verifier, cfg.Auth.SignInURL))
	{
		private.GET("/events", deps.Events.List)
		private.POST("/events", deps.Events.Create)
		private.GET("/events/export", deps.Events.Export)
		private.GET("/events/:id", deps.Events.Get)
		private.PUT("/events/:id", deps.Events.Update)
		private.DELETE("/events/:id", deps.Events.Delete)

		private.GET("/schedule", deps.Schedules.Get)
		private.PUT("/schedule", deps.Schedules.Save)
	}

	window := cfg.Public.RateWindow
	if window <= 0 {
		window = time.Minute
	}
	public := api.Group("/book")
	public.Use(middleware.OptionalIdentity(deps.Verifier))
	public.Use(middleware.RateLimit(deps.Limiter, cfg.Public.RateLimit, window, deps.Metrics, deps.Logger))
	{
		public.GET("/:userId", deps.Public.ListEvents)
		public.GET("/:userId/availability.ics", deps.Public.Availability)
		public.GET("/:userId/:eventId", deps.Public.GetEvent)
	}

	return r
}
