package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/radieske/sports-tips-platform/internal/shared/auth"
	"github.com/radieske/sports-tips-platform/internal/shared/logger"
	"github.com/radieske/sports-tips-platform/internal/shared/metrics"
	"github.com/radieske/sports-tips-platform/internal/tips-service/service"
)

// API expõe os endpoints REST do tips-service e o websocket de invalidação
type API struct {
	Log     *zap.Logger
	Svc     *service.Service
	Auth    *auth.Verifier
	WS      http.HandlerFunc // opcional
	Metrics *metrics.API     // opcional
	Origins []string
	Timeout time.Duration
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(a.Log))
	r.Use(middleware.Recoverer)
	if a.Metrics != nil {
		r.Use(a.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.Origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(a.Auth.Authenticate(a.authFailed))

	if a.WS != nil {
		r.Get("/ws", a.WS)
	}

	r.Route("/v1", func(r chi.Router) {
		if a.Timeout > 0 {
			r.Use(middleware.Timeout(a.Timeout))
		}

		// leitura pública (viewer opcional)
		r.Get("/tips", a.listTips)
		r.Get("/tips/{id}", a.getTip)
		r.Get("/tips/{id}/comments", a.listComments)
		r.Get("/users/{id}/summary", a.userSummary)
		r.Get("/leaderboard", a.leaderboard)

		// autenticado; papel de moderador é checado na fronteira de armazenamento
		r.Group(func(r chi.Router) {
			r.Use(auth.Require(a.authFailed))

			r.Post("/tips", a.createTip)
			r.Patch("/tips/{id}", a.updateTip)
			r.Post("/tips/{id}/settle", a.settleTip)

			r.Post("/tips/{id}/track", a.trackTip)
			r.Delete("/tips/{id}/track", a.untrackTip)
			r.Post("/tips/{id}/reactions/{kind}", a.toggleReaction)
			r.Post("/tips/{id}/comments", a.addComment)

			r.Get("/me", a.me)
			r.Get("/me/tracking", a.myTracking)
		})
	})
	return r
}
