package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oakline/storefront-core/api/controllers"
	"github.com/oakline/storefront-core/api/middleware"
	"github.com/oakline/storefront-core/internal/gateway"
	"github.com/oakline/storefront-core/internal/registry"
	"github.com/oakline/storefront-core/internal/session"
	"github.com/oakline/storefront-core/pkg/config"
	"github.com/oakline/storefront-core/pkg/logger"
	"github.com/oakline/storefront-core/pkg/redis"
)

// Deps carries everything the HTTP surface is wired with.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	Registry     *registry.Registry
	SessionStore *session.Store
	Auth         gateway.AuthProvider
	Redis        *redis.Client
	DB           controllers.Pinger
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
		middleware.CORS(deps.Config.CORS),
	)

	checks := map[string]controllers.Pinger{}
	if deps.Redis != nil {
		checks["redis"] = deps.Redis
	}
	if deps.DB != nil {
		checks["database"] = deps.DB
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Logger, checks))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.SignInRateLimit(deps.Config.RateLimit, deps.Redis, deps.Logger)).
			Post("/session", controllers.SessionSignIn(deps.Auth, deps.SessionStore, deps.Logger))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(deps.SessionStore, deps.Auth, deps.Logger))

			r.Get("/session", controllers.SessionCurrent(deps.Logger))
			r.Delete("/session", controllers.SessionSignOut(deps.Auth, deps.SessionStore, deps.Registry, deps.Logger))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(deps.Registry, deps.Logger))
				r.Get("/summary", controllers.CartSummary(deps.Registry, deps.Logger))
				r.Delete("/", controllers.CartClear(deps.Registry, deps.Logger))
				r.Post("/items", controllers.CartAddItem(deps.Registry, deps.Logger))
				r.Patch("/items/{lineId}", controllers.CartSetQuantity(deps.Registry, deps.Logger))
				r.Delete("/items/{lineId}", controllers.CartRemoveItem(deps.Registry, deps.Logger))
				r.Post("/items/{lineId}/selection", controllers.CartToggleSelection(deps.Registry, deps.Logger))
				r.Post("/items/{lineId}/move-to-favorites", controllers.CartMoveToFavorites(deps.Registry, deps.Logger))
				r.Post("/selection/all", controllers.CartSelectAll(deps.Registry, deps.Logger))
				r.Delete("/selection/all", controllers.CartDeselectAll(deps.Registry, deps.Logger))
			})

			r.Route("/favorites", func(r chi.Router) {
				r.Get("/", controllers.FavoritesList(deps.Registry, deps.Logger))
				r.Get("/ids", controllers.FavoritesIDs(deps.Registry, deps.Logger))
				r.Post("/toggle", controllers.FavoritesToggle(deps.Registry, deps.Logger))
			})
		})
	})

	return r
}
