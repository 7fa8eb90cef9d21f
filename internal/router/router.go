package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warungpos/api/internal/config"
	"github.com/warungpos/api/internal/database"
	"github.com/warungpos/api/internal/enum"
	"github.com/warungpos/api/internal/handler"
	mw "github.com/warungpos/api/internal/middleware"
	"github.com/warungpos/api/internal/service"
	"github.com/warungpos/api/internal/tenant"
	"github.com/warungpos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Every branch-scoped route runs behind the JWT, branch access and
// tenant session middleware, in that order.
func New(cfg *config.Config, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/branches/{bid}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	binder := tenant.NewBinder(pool)

	// Services share one store factory: the per-transaction Queries
	// handed out by the tenant scope is the store.
	queueService := service.NewQueueService(
		func(q *database.Queries) service.QueueStore { return q },
		hub,
	)
	orderService := service.NewOrderService(
		func(q *database.Queries) service.OrderStore { return q },
		queueService,
		hub,
		cfg.TaxRate,
		cfg.TaxInclusive,
	)
	shiftService := service.NewShiftService(
		func(q *database.Queries) service.ShiftStore { return q },
		hub,
	)

	// Branch-scoped routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Route("/branches/{bid}", func(r chi.Router) {
			r.Use(mw.RequireBranch)
			r.Use(mw.BindTenant(binder))

			orderHandler := handler.NewOrderHandler(orderService)
			r.Route("/orders", orderHandler.RegisterRoutes)

			shiftHandler := handler.NewShiftHandler(shiftService)
			r.Route("/shifts", shiftHandler.RegisterRoutes)

			queueHandler := handler.NewQueueHandler(queueService)
			r.Route("/queue", func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleManager, enum.UserRoleKitchen, enum.UserRoleCashier))
				queueHandler.RegisterRoutes(r)
			})
		})
	})

	return r
}
