package router

import (
	"log"
	"net/http"

	"github.com/bhumika-medical/api/internal/config"
	"github.com/bhumika-medical/api/internal/database"
	"github.com/bhumika-medical/api/internal/handler"
	mw "github.com/bhumika-medical/api/internal/middleware"
	"github.com/bhumika-medical/api/internal/reminder"
	"github.com/bhumika-medical/api/internal/service"
	"github.com/bhumika-medical/api/internal/upload"
	"github.com/bhumika-medical/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// New creates a Chi router with all application routes wired up.
// Public storefront endpoints live under /api, admin endpoints under
// /api/admin behind the JWT guard. mailer may be nil when SMTP is not
// configured.
func New(cfg *config.Config, queries *database.Queries, saver *upload.Saver, hub *ws.Hub, sweeper *reminder.Sweeper, mailer handler.Mailer) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Uploaded files (prescriptions, payment proofs, product images)
	fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(saver.Dir)))
	r.Get("/uploads/*", fileServer.ServeHTTP)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/admin/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	orderService := service.NewOrderService(queries)

	// Prescription upload lives at the root, outside /api.
	uploadsHandler := handler.NewUploadsHandler(saver, saver, cfg.WhatsAppNumber)
	uploadsHandler.RegisterRoutes(r)

	r.Route("/api", func(r chi.Router) {
		// Storefront routes (public)
		ordersHandler := handler.NewOrdersHandler(orderService, queries, saver, hub,
			cfg.WhatsAppNumber, cfg.UPIID, cfg.UPIPayee)
		ordersHandler.RegisterRoutes(r)

		productsHandler := handler.NewProductsHandler(queries, saver)
		productsHandler.RegisterPublicRoutes(r)

		reviewsHandler := handler.NewReviewsHandler(queries)
		reviewsHandler.RegisterPublicRoutes(r)

		// Review moderation sits under /reviews/admin but still needs a
		// valid token.
		r.Route("/reviews/admin", func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))
			reviewsHandler.RegisterModerationRoutes(r)
		})

		r.Route("/admin", func(r chi.Router) {
			// Login and refresh are the only public admin routes.
			authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
			authHandler.RegisterRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate(cfg.JWTSecret))

				adminOrdersHandler := handler.NewAdminOrdersHandler(orderService, queries, hub, mailer)
				r.Route("/orders", adminOrdersHandler.RegisterRoutes)
				r.Get("/export", adminOrdersHandler.ExportCSV)

				r.Route("/products", productsHandler.RegisterAdminRoutes)
				r.Route("/reviews", reviewsHandler.RegisterAdminRoutes)

				remindersHandler := handler.NewRemindersHandler(sweeper)
				r.Route("/reminders", remindersHandler.RegisterRoutes)
			})
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
