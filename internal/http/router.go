package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/geocoder89/mediahub/internal/config"
	"github.com/geocoder89/mediahub/internal/domain/user"
	"github.com/geocoder89/mediahub/internal/http/handlers"
	"github.com/geocoder89/mediahub/internal/http/middlewares"
	"github.com/geocoder89/mediahub/internal/observability"
)

// Gate is the auth service as seen by the router: the endpoints plus the
// protect and restrictTo checks.
type Gate interface {
	handlers.AuthGate
	middlewares.Authenticator
}

type Deps struct {
	Log     *slog.Logger
	Config  config.Config
	Prom    *observability.Prom
	Metrics http.Handler

	Users   handlers.UsersStore
	Media   handlers.MediaStore
	Gate    Gate
	Hasher  user.PasswordHasher
	Limiter middlewares.Limiter

	// Ping backs the readiness probe. Nil means always ready.
	Ping func(ctx context.Context) error
}

func NewRouter(d Deps) *gin.Engine {
	if !d.Config.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware("mediahub-api"))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders(!d.Config.IsDev()))
	r.Use(middlewares.CORSMiddleware(d.Config.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(d.Config.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health
	ping := func() error {
		if d.Ping == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return d.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/docs", handlers.Docs)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	api := r.Group("/api")
	if d.Limiter != nil {
		var onReject func()
		if d.Prom != nil {
			onReject = d.Prom.RateLimited.Inc
		}
		api.Use(middlewares.RateLimit(d.Limiter, middlewares.KeyByIP, onReject))
	}

	authMW := middlewares.NewAuthMiddleware(d.Gate)
	protect := authMW.Protect()

	authHandler := handlers.NewAuthHandler(d.Gate, handlers.CookieConfig{
		Name:   "jwt",
		TTL:    d.Config.JWTCookieTTL,
		Secure: !d.Config.JWTCookieInsecure,
	}, d.Config.PublicBaseURL)
	usersHandler := handlers.NewUsersHandler(d.Users, d.Hasher)
	mediaHandler := handlers.NewMediaHandler(d.Media)

	users := api.Group("/v1/user")
	{
		users.POST("/signup", authHandler.SignUp)
		users.POST("/login", authHandler.Login)
		users.POST("/logout", authHandler.Logout)
		users.POST("/forgot-password", authHandler.ForgotPassword)
		users.PATCH("/reset-password/:token", authHandler.ResetPassword)

		users.PATCH("/update-password", protect, authHandler.UpdatePassword)
		users.GET("/me", protect, usersHandler.GetMe)
		users.PATCH("/update-me", protect, usersHandler.UpdateMe)
		users.DELETE("/delete-me", protect, usersHandler.DeleteMe)

		users.GET("", protect, usersHandler.ListUsers)
		users.POST("", protect, authMW.RestrictTo(user.RoleAdmin), usersHandler.CreateUser)
		users.GET("/:id", protect, usersHandler.GetUser)
		users.PATCH("/:id", protect, authMW.RestrictTo(user.RoleAdmin), usersHandler.UpdateUser)
		users.DELETE("/:id", protect, authMW.RestrictTo(user.RoleAdmin, user.RoleGuide), usersHandler.DeleteUser)
	}

	mediaRoutes := api.Group("/v1/media", protect)
	{
		// static routes before /:id
		mediaRoutes.GET("/top-5", mediaHandler.TopFive)
		mediaRoutes.GET("/media-stats", mediaHandler.Stats)

		mediaRoutes.GET("", mediaHandler.ListMedia)
		mediaRoutes.POST("", mediaHandler.CreateMedia)
		mediaRoutes.GET("/:id", mediaHandler.GetMediaByID)
		mediaRoutes.PATCH("/:id", mediaHandler.UpdateMedia)
		mediaRoutes.DELETE("/:id", authMW.RestrictTo(user.RoleAdmin, user.RoleGuide), mediaHandler.DeleteMedia)
	}

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondError(ctx, http.StatusNotFound, "not_found",
			"Cannot find "+ctx.Request.URL.Path+" on this server", nil)
	})

	return r
}
