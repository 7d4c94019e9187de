package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mesalivre/api/internal/config"
	"github.com/mesalivre/api/internal/database"
	"github.com/mesalivre/api/internal/handler"
	mw "github.com/mesalivre/api/internal/middleware"
	"github.com/mesalivre/api/internal/service"
	"github.com/mesalivre/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and restaurant scoping as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// PIN gates for the kitchen display and waiter app (public; the PIN is
	// the gate)
	pinHandler := handler.NewPinHandler(queries, service.NewPinService(queries))
	pinHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/restaurants/{rid}/events", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services share one relay so every mutation reaches connected screens.
	relay := ws.NewRelay(hub)
	tableService := service.NewTableService(
		queries,
		pool,
		func(db database.DBTX) service.TableStore { return database.New(db) },
		relay,
	)
	deliveryService := service.NewDeliveryService(
		queries,
		pool,
		func(db database.DBTX) service.DeliveryStore { return database.New(db) },
		relay,
	)
	kitchenService := service.NewKitchenService(queries)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Restaurant-scoped routes
		r.Route("/restaurants/{rid}", func(r chi.Router) {
			r.Use(mw.RequireRestaurant)

			tableHandler := handler.NewTableHandler(queries, tableService)
			tableHandler.RegisterRoutes(r)

			orderHandler := handler.NewTableOrderHandler(queries, tableService)
			orderHandler.RegisterRoutes(r)

			kitchenHandler := handler.NewKitchenHandler(kitchenService)
			kitchenHandler.RegisterRoutes(r)

			deliveryHandler := handler.NewDeliveryHandler(queries, deliveryService)
			deliveryHandler.RegisterRoutes(r)
		})
	})

	return r
}
