package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/massage-panel/massage-panel-api/config"
	"github.com/massage-panel/massage-panel-api/controllers"
	"github.com/massage-panel/massage-panel-api/logging"
	"github.com/massage-panel/massage-panel-api/metrics"
	"github.com/massage-panel/massage-panel-api/middleware"
	"github.com/massage-panel/massage-panel-api/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Options carries the infrastructure the router is built from.
type Options struct {
	Config *config.Config
	DB     *gorm.DB
	Logger *logging.Logger

	// Auth validates bearer tokens and sets the subject on the context.
	Auth gin.HandlerFunc

	// Registry receives the application metrics and backs /metrics. A
	// fresh registry is used when nil.
	Registry *prometheus.Registry

	// RateLimiter guards the public write endpoints. An in-memory limiter
	// is used when nil.
	RateLimiter services.RateLimiter

	// Images stores therapist photos. Photo upload is unavailable when nil.
	Images services.ImageService
}

// SetupRouter wires services and controllers into a gin engine.
func SetupRouter(opts Options) *gin.Engine {
	cfg := opts.Config
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	limiter := opts.RateLimiter
	if limiter == nil {
		limiter = services.NewMemoryRateLimiter(cfg.RateLimitPerMinute)
	}
	loc := cfg.Location()

	bookingMetrics := metrics.NewBookingMetrics(registry)
	checker := services.NewConflictChecker(cfg.ReservationLookback)

	storeService := services.NewStoreService(opts.DB)
	therapistService := services.NewTherapistService(opts.DB, opts.Images, log)
	planService := services.NewPlanService(opts.DB)
	reservationService := services.NewReservationService(opts.DB, checker, loc, log)
	invitationService := services.NewInvitationService(opts.DB, checker, bookingMetrics, log)
	bookingService := services.NewBookingService(opts.DB, checker, loc, bookingMetrics, log)
	surveyService := services.NewSurveyService(opts.DB, bookingMetrics)

	health := controllers.NewHealthController(opts.DB)
	public := controllers.NewPublicController(invitationService, bookingService, therapistService, surveyService, loc, log)
	stores := controllers.NewStoreController(storeService, log)
	therapists := controllers.NewTherapistController(therapistService, log)
	plans := controllers.NewPlanController(planService, log)
	reservations := controllers.NewReservationController(reservationService, loc, log)
	invitations := controllers.NewInvitationController(invitationService, loc, log)
	surveys := controllers.NewSurveyController(surveyService, log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(cors.New(corsConfig(cfg.CORSAllowedOrigins)))

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Public customer pages
	rateLimit := middleware.RateLimit(limiter, bookingMetrics, log)
	r.GET("/invitation/:slug/", public.ViewInvitation)
	r.GET("/review/:therapist_id/", public.ReviewTherapist)
	r.GET("/api/public-invitations/:slug/view/", public.ViewInvitation)
	r.POST("/api/public-invitations/:slug/book/", rateLimit, public.BookInvitation)
	r.POST("/api/public-reviews/", rateLimit, public.SubmitReview)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", health.Health)
		v1.GET("/database/status", health.DatabaseStatus)

		authed := v1.Group("")
		authed.Use(opts.Auth)
		authed.POST("/stores", stores.Register)

		managed := authed.Group("")
		managed.Use(middleware.RequireStore(storeService))
		{
			managed.GET("/stores/me", stores.Me)

			managed.GET("/therapists", therapists.List)
			managed.POST("/therapists", therapists.Create)
			managed.GET("/therapists/:id", therapists.Get)
			managed.PUT("/therapists/:id", therapists.Update)
			managed.DELETE("/therapists/:id", therapists.Delete)
			managed.PATCH("/therapists/:id/enabled", therapists.SetEnabled)
			managed.POST("/therapists/:id/photo", therapists.UploadPhoto)

			managed.GET("/plans", plans.List)
			managed.POST("/plans", plans.Create)
			managed.GET("/plans/:id", plans.Get)
			managed.PUT("/plans/:id", plans.Update)
			managed.DELETE("/plans/:id", plans.Delete)

			managed.GET("/reservations", reservations.List)
			managed.POST("/reservations", reservations.Create)
			managed.GET("/reservations/today", reservations.Today)
			managed.GET("/reservations/upcoming", reservations.Upcoming)
			managed.GET("/reservations/available-slots", reservations.AvailableSlots)
			managed.GET("/reservations/:id", reservations.Get)
			managed.PUT("/reservations/:id", reservations.Update)
			managed.DELETE("/reservations/:id", reservations.Delete)

			managed.GET("/invitations", invitations.List)
			managed.POST("/invitations", invitations.Create)
			managed.GET("/invitations/active", invitations.Active)
			managed.GET("/invitations/upcoming", invitations.Upcoming)
			managed.GET("/invitations/:id", invitations.Get)
			managed.PUT("/invitations/:id", invitations.Update)
			managed.DELETE("/invitations/:id", invitations.Delete)
			managed.POST("/invitations/:id/duplicate", invitations.Duplicate)

			managed.GET("/surveys", surveys.List)
			managed.POST("/surveys", surveys.Create)
			managed.GET("/surveys/:id", surveys.Get)
		}
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
