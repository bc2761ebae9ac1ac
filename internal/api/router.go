package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/devmatch/backend/internal/auth"
	"github.com/devmatch/backend/internal/middleware"
)

// Router holds all handlers and creates the chi router
type Router struct {
	authHandler         *AuthHandler
	profileHandler      *ProfileHandler
	feedHandler         *FeedHandler
	connectionHandler   *ConnectionHandler
	notificationHandler *NotificationHandler
	paymentHandler      *PaymentHandler
	healthHandler       *HealthHandler
	jwtManager          *auth.JWTManager
	rateLimiter         *middleware.RateLimiter
	allowedOrigins      []string
	uploadsDir          string
	logger              *zap.Logger
}

// RouterOptions configures the parts of the router that are not handlers
type RouterOptions struct {
	AllowedOrigins []string
	// UploadsDir is served under /uploads when photos are stored locally
	UploadsDir string
}

// NewRouter creates a new router
func NewRouter(
	authHandler *AuthHandler,
	profileHandler *ProfileHandler,
	feedHandler *FeedHandler,
	connectionHandler *ConnectionHandler,
	notificationHandler *NotificationHandler,
	paymentHandler *PaymentHandler,
	healthHandler *HealthHandler,
	jwtManager *auth.JWTManager,
	rateLimiter *middleware.RateLimiter,
	opts RouterOptions,
	logger *zap.Logger,
) *Router {
	return &Router{
		authHandler:         authHandler,
		profileHandler:      profileHandler,
		feedHandler:         feedHandler,
		connectionHandler:   connectionHandler,
		notificationHandler: notificationHandler,
		paymentHandler:      paymentHandler,
		healthHandler:       healthHandler,
		jwtManager:          jwtManager,
		rateLimiter:         rateLimiter,
		allowedOrigins:      opts.AllowedOrigins,
		uploadsDir:          opts.UploadsDir,
		logger:              logger,
	}
}

// Setup configures and returns the chi router
func (rt *Router) Setup() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	r.Use(middleware.LoggingMiddleware(rt.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.CORSMiddleware(rt.allowedOrigins))

	// Health endpoints (no auth required)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", rt.healthHandler.Health)
		r.Get("/ready", rt.healthHandler.Ready)
		r.Get("/live", rt.healthHandler.Live)
	})
	r.Handle("/metrics", promhttp.Handler())

	if rt.uploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(rt.uploadsDir))))
	}

	// Auth routes (no auth required)
	r.Group(func(r chi.Router) {
		r.Use(rt.rateLimiter.Middleware)
		r.Post("/signup", rt.authHandler.Signup)
		r.Post("/login", rt.authHandler.Login)
	})
	r.Post("/logout", rt.authHandler.Logout)
	r.Get("/payment/plans", rt.paymentHandler.Plans)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(rt.jwtManager))

		// The socket is long lived; compression would break the hijack.
		r.Get("/ws", rt.notificationHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Compress(5))

			r.Get("/profile/view", rt.profileHandler.View)
			r.Get("/feed", rt.feedHandler.GetFeed)
			r.Get("/user/request/received", rt.connectionHandler.GetReceived)
			r.Get("/user/connection/accepted", rt.connectionHandler.GetConnections)
		})

		// Writes are rate limited per user
		r.Group(func(r chi.Router) {
			r.Use(rt.rateLimiter.Middleware)

			r.Patch("/profile/edit", rt.profileHandler.Edit)
			r.Post("/profile/photo", rt.profileHandler.UploadPhoto)
			r.Post("/connection/request/{intent}/{toUserId}", rt.connectionHandler.SendRequest)
			r.Post("/connection/review/{decision}/{requestId}", rt.connectionHandler.ReviewRequest)
			r.Put("/user/device-token", rt.notificationHandler.UpdateDeviceToken)
			r.Post("/payment/create", rt.paymentHandler.CreateOrder)
		})
	})

	return r
}
