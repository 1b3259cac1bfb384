package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-notes-workspace/internal/config"
	"go-notes-workspace/internal/handler"
	"go-notes-workspace/internal/metrics"
	"go-notes-workspace/internal/middleware"
	"go-notes-workspace/internal/websocket"
)

type Handlers struct {
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	Folder   *handler.FolderHandler
	Document *handler.DocumentHandler
	Share    *handler.ShareHandler
	Usage    *handler.UsageHandler
}

// New builds the HTTP surface. Uploads, downloads and the socket are kept out
// of the request timeout because they stream.
func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers, hub *websocket.Hub) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM).
		OnReject(metrics.RecordRateLimitHit)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging(nil))
	r.Use(metrics.Middleware)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", h.Health.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Group(func(j chi.Router) {
			j.Use(middleware.Timeout(cfg.RequestTimeout))

			j.Route("/auth", func(auth chi.Router) {
				auth.Post("/login", h.Auth.Login)
				auth.Post("/register", h.Auth.Register)
				auth.Post("/refresh", h.Auth.Refresh)
				auth.Post("/logout", h.Auth.Logout)
				auth.With(authMiddleware.RequireAuth).Get("/me", h.Auth.Me)
			})

			j.Group(func(p chi.Router) {
				p.Use(authMiddleware.RequireAuth)

				p.Get("/folders", h.Folder.List)
				p.Post("/folders", h.Folder.Create)
				p.Get("/folders/{id}/contents", h.Folder.Contents)
				p.Delete("/folders/{id}", h.Folder.Delete)

				p.Get("/documents", h.Document.List)
				p.Delete("/documents/{id}", h.Document.Delete)
				p.Post("/documents/{id}/shares", h.Share.Create)
				p.Get("/shares/incoming", h.Share.Incoming)

				p.Get("/storage/usage", h.Usage.Storage)
				p.Get("/tokens/balance", h.Usage.Balance)
				p.Get("/tokens/usage", h.Usage.Daily)
				p.Get("/tokens/breakdown", h.Usage.Breakdown)
				p.Post("/tokens/consume", h.Usage.Consume)
			})
		})

		api.Group(func(s chi.Router) {
			s.Use(authMiddleware.RequireAuth)

			s.Post("/documents", h.Document.Upload)
			s.Get("/documents/{id}/content", h.Document.Content)
			s.Get("/documents/{id}/thumbnail", h.Document.Thumbnail)
			s.Get("/ws", hub.ServeWS)
		})
	})

	return r
}
