package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waraqa-store/api/internal/cart"
	"github.com/waraqa-store/api/internal/catalog"
	"github.com/waraqa-store/api/internal/config"
	"github.com/waraqa-store/api/internal/database"
	"github.com/waraqa-store/api/internal/handler"
	mw "github.com/waraqa-store/api/internal/middleware"
	"github.com/waraqa-store/api/internal/notify"
	"github.com/waraqa-store/api/internal/service"
	"github.com/waraqa-store/api/internal/storage"
	"github.com/waraqa-store/api/internal/ws"
)

// Catalog is the pair of change-feed backed caches built at startup.
type Catalog struct {
	Products   *catalog.ProductStore
	Categories *catalog.CategoryStore
}

// Sessions holds the in-memory storefront state owned by the server process.
type Sessions struct {
	Carts *cart.Registry
}

// New creates a Chi router with all application routes wired up.
// Storefront routes are public; everything under /admin requires an admin token.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, cat Catalog, sessions Sessions, bucket storage.Bucket) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Change feed (orders room checks the token itself)
	r.Get("/ws/changes", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	settingsService := service.NewSettingsService(queries, pool, func(db database.DBTX) service.SettingsStore {
		return database.New(db)
	})
	notifier := notify.NewService(queries, bucket, notify.NewResendMailer(cfg.ResendAPIKey), notify.Options{
		From:         cfg.OrderEmailFrom,
		To:           cfg.OrderEmailTo,
		RateLimit:    cfg.OrderRateLimit,
		RateWindow:   cfg.OrderRateWindow,
		SignedURLTTL: cfg.SignedURLTTL,
	})
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, settingsService, notifier)

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	categoryHandler := handler.NewCategoryHandler(cat.Categories)
	productHandler := handler.NewProductHandler(cat.Products)
	settingsHandler := handler.NewSettingsHandler(settingsService)
	fileHandler := handler.NewFileHandler(bucket)

	// Storefront
	authHandler.RegisterRoutes(r)
	r.Route("/categories", categoryHandler.RegisterRoutes)
	r.Route("/products", productHandler.RegisterRoutes)
	settingsHandler.RegisterRoutes(r)
	r.Route("/locations", handler.RegisterLocationRoutes)
	handler.NewCartHandler(sessions.Carts, cat.Products, orderService).RegisterRoutes(r)
	r.Route("/functions", handler.NewFunctionHandler(notifier).RegisterRoutes)
	r.Route("/files", fileHandler.RegisterRoutes)

	// Admin dashboard
	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.RequireAdmin(cfg.JWTSecret))

		authHandler.RegisterAdminRoutes(r)
		r.Route("/categories", categoryHandler.RegisterAdminRoutes)
		r.Route("/products", productHandler.RegisterAdminRoutes)

		orderHandler := handler.NewOrderHandler(queries, pool, func(db database.DBTX) handler.OrderDeleteStore {
			return database.New(db)
		})
		r.Route("/orders", orderHandler.RegisterRoutes)

		r.Route("/reports", handler.NewReportsHandler(queries).RegisterRoutes)
		settingsHandler.RegisterAdminRoutes(r)
		r.Route("/uploads", fileHandler.RegisterAdminRoutes)
	})

	log.Println("Router initialized with all handlers")
	return r
}
