package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/buildhubhq/buildhub/internal/auth"
	"github.com/buildhubhq/buildhub/internal/authz"
	"github.com/buildhubhq/buildhub/internal/cache"
	"github.com/buildhubhq/buildhub/internal/config"
	"github.com/buildhubhq/buildhub/internal/domain/bounty"
	"github.com/buildhubhq/buildhub/internal/http/handlers"
	"github.com/buildhubhq/buildhub/internal/http/middlewares"
	"github.com/buildhubhq/buildhub/internal/observability"
	"github.com/buildhubhq/buildhub/internal/session"
	"github.com/buildhubhq/buildhub/internal/upstream"
)

const bountyListTTL = 60 * time.Second

type Deps struct {
	Cfg      config.Config
	Log      *slog.Logger
	Store    session.Store
	Upstream *upstream.Client
	Gate     *authz.Gate
	Sessions *middlewares.SessionMiddleware
	Metrics  *observability.Prom
	Registry *prometheus.Registry

	// Ping probes the session backend for /readyz; nil skips the probe.
	Ping func() error
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Cfg.CORSOrigins))
	r.Use(otelgin.Middleware("buildhub-bff"))

	if d.Metrics != nil {
		r.Use(d.Metrics.GinHandleMiddleware())
	}

	r.Use(d.Sessions.Attach())
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(middlewares.RequireJSON())

	// health + metrics

	health := handlers.NewHealthHandler(d.Ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if d.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	// limiters; the password one is deliberately tight

	otpLimiter := middlewares.NewRateLimiter(10, time.Minute)
	passwordLimiter := middlewares.NewRateLimiter(5, time.Minute)

	// auth

	google := auth.NewGoogleVerifier(d.Cfg.GoogleClientID)
	authHandler := handlers.NewAuthHandler(d.Upstream, d.Store, google, d.Log)

	authGroup := r.Group("/auth")
	authGroup.POST("/request-otp", otpLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.RequestOTP)
	authGroup.POST("/verify-otp", otpLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.VerifyOTP)
	authGroup.POST("/google", otpLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.GoogleLogin)
	authGroup.POST("/logout", authHandler.Logout)

	// profile

	profileHandler := handlers.NewProfileHandler(d.Upstream, d.Store, d.Log)

	r.GET("/profile", profileHandler.GetProfile)
	r.PUT("/profile", profileHandler.SaveProfile)
	r.PATCH("/profile/role", middlewares.RequireGate(d.Gate), profileHandler.UpdateRole)

	// admin gate

	adminHandler := handlers.NewAdminHandler(d.Gate, d.Metrics, d.Log)

	adminGroup := r.Group("/admin")
	adminGroup.GET("/access", adminHandler.Access)
	adminGroup.POST("/access/password", passwordLimiter.RateLimiterMiddleware(middlewares.KeyByIP), adminHandler.Password)
	adminGroup.POST("/logout", adminHandler.Logout)

	// bounties; reads are public, writes sit behind the gate

	listCache := cache.New[[]bounty.Bounty](bountyListTTL)
	bountiesHandler := handlers.NewBountiesHandler(d.Upstream, listCache, d.Log)

	r.GET("/bounties", bountiesHandler.List)
	r.GET("/bounties/:id", bountiesHandler.Get)
	r.POST("/bounties", middlewares.RequireGate(d.Gate), bountiesHandler.Create)
	r.PUT("/bounties/:id", middlewares.RequireGate(d.Gate), bountiesHandler.Update)
	r.DELETE("/bounties/:id", middlewares.RequireGate(d.Gate), bountiesHandler.Delete)

	return r
}
