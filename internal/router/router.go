package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/maharaja-pos/api/internal/config"
	"github.com/maharaja-pos/api/internal/enum"
	"github.com/maharaja-pos/api/internal/handler"
	"github.com/maharaja-pos/api/internal/mailer"
	mw "github.com/maharaja-pos/api/internal/middleware"
	"github.com/maharaja-pos/api/internal/service"
	"github.com/maharaja-pos/api/internal/store"
	"github.com/maharaja-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Menu browsing and table stats are public; order mutation requires
// authentication and is gated per portal role.
func New(cfg *config.Config, queries *store.Queries, pool *pgxpool.Pool, hub *ws.Hub, m mailer.Mailer) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:3000", // React dev server
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// Menu browsing and the reception dashboard feed are readable without a
	// token so the portals can render before login completes.
	menuHandler := handler.NewMenuHandler(queries)
	r.Get("/menu", menuHandler.List)
	r.Get("/menu/categories", menuHandler.ListCategories)

	newOrderStore := func(db store.DBTX) service.OrderStore {
		return store.New(db)
	}
	orderService := service.NewOrderService(pool, queries, newOrderStore)

	tableHandler := handler.NewTableHandler(orderService)
	r.Get("/tables/stats", tableHandler.Stats)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Get("/auth/me", authHandler.Me)

		// Menu administration (reception only)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleReception))
			r.Post("/menu", menuHandler.Create)
			r.Post("/menu/categories", menuHandler.CreateCategory)
		})

		// Orders
		orderHandler := handler.NewOrderHandler(orderService, hub)
		billHandler := handler.NewBillHandler(orderService, m)
		r.Route("/orders", func(r chi.Router) {
			r.With(mw.RequireRole(enum.RoleWaiter)).Post("/", orderHandler.Create)
			r.Get("/", orderHandler.List)
			r.Get("/{id}", orderHandler.Get)
			r.With(mw.RequireRole(enum.RoleReception, enum.RoleChef)).
				Post("/{id}/advance", orderHandler.Advance)
			r.With(mw.RequireRole(enum.RoleReception, enum.RoleChef)).
				Patch("/{id}/status", orderHandler.UpdateStatus)
			r.Get("/{id}/bill", billHandler.Get)
			r.With(mw.RequireRole(enum.RoleReception)).
				Post("/{id}/bill", billHandler.Email)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
