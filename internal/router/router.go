package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-contact-api/internal/config"
	"go-contact-api/internal/handler"
	"go-contact-api/internal/metrics"
	"go-contact-api/internal/middleware"
	"go-contact-api/internal/model"
)

type Handlers struct {
	Auth   *handler.AuthHandler
	User   *handler.UserHandler
	Docs   *handler.DocsHandler
	Health *handler.HealthHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM, cfg.TrustedProxies)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(m.Middleware)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", h.Health.Health)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Get("/openapi.yaml", h.Docs.OpenAPI)
	if cfg.IsDevelopment() {
		r.Get("/swagger/*", h.Docs.SwaggerUI)
	}

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/register", h.Auth.Register)
			auth.Post("/login", h.Auth.Login)
			auth.Get("/me", h.Auth.Me)
			auth.Post("/logout", h.Auth.Logout)
			auth.With(authMiddleware.RequireAuth).Get("/refresh", h.Auth.Refresh)
			auth.With(authMiddleware.RequireAuth).Get("/get-session", h.Auth.GetSession)
		})

		api.Route("/users", func(users chi.Router) {
			users.Use(authMiddleware.RequireAuth, authMiddleware.RequireRoles(model.RoleAdmin))

			users.Get("/", h.User.List)
			users.Post("/store", h.User.Store)
			users.Get("/show/{uuid}", h.User.Show)
			users.Post("/update/{uuid}", h.User.Update)
			users.Delete("/destroy/{uuid}", h.User.Destroy)
		})
	})

	return r
}
