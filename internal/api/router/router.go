package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/salon-booking/internal/admin"
	"github.com/wolfman30/salon-booking/internal/appointments"
	"github.com/wolfman30/salon-booking/internal/booking"
	"github.com/wolfman30/salon-booking/internal/catalog"
	httpmiddleware "github.com/wolfman30/salon-booking/internal/http/middleware"
	"github.com/wolfman30/salon-booking/internal/http/respond"
	"github.com/wolfman30/salon-booking/internal/identity"
	"github.com/wolfman30/salon-booking/internal/profiles"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Resolver           httpmiddleware.StateResolver
	Authorizer         httpmiddleware.AdminAuthorizer
	IdentityHandler    *identity.Handler
	CatalogHandler     *catalog.Handler
	BookingHandler     *booking.Handler
	AppointmentHandler *appointments.Handler
	ProfileHandler     *profiles.Handler
	AdminHandler       *admin.Handler
	MetricsHandler     http.Handler
	RateLimiter        *httpmiddleware.RateLimiter
	CORSAllowedOrigins []string

	// HealthCheck reports whether backing stores are reachable. Optional.
	HealthCheck func(ctx context.Context) error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.RateLimiter != nil {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
	}
	if cfg.Resolver != nil {
		r.Use(httpmiddleware.Session(cfg.Resolver, cfg.Logger))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthCheck))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.CatalogHandler != nil {
			public.Get("/api/services", cfg.CatalogHandler.List)
			public.Get("/api/services/{id}", cfg.CatalogHandler.Get)
		}
		if cfg.IdentityHandler != nil {
			public.Post("/auth/register", cfg.IdentityHandler.Register)
			public.Post("/auth/login", cfg.IdentityHandler.Login)
			public.Get("/auth/session", cfg.IdentityHandler.Session)
		}
	})

	// Signed-in customer routes
	r.Group(func(customer chi.Router) {
		customer.Use(httpmiddleware.RequireIdentity())

		if cfg.IdentityHandler != nil {
			customer.Post("/auth/logout", cfg.IdentityHandler.Logout)
		}
		if cfg.BookingHandler != nil {
			customer.Route("/api/booking", func(b chi.Router) {
				b.Get("/", cfg.BookingHandler.Get)
				b.Get("/availability", cfg.BookingHandler.Get)
				b.Post("/services", cfg.BookingHandler.SelectServices)
				b.Post("/date", cfg.BookingHandler.SelectDate)
				b.Post("/slot", cfg.BookingHandler.ChooseSlot)
				b.Post("/notes", cfg.BookingHandler.SetNotes)
				b.Post("/next", cfg.BookingHandler.Next)
				b.Post("/back", cfg.BookingHandler.Back)
				b.Post("/submit", cfg.BookingHandler.Submit)
			})
		}
		if cfg.AppointmentHandler != nil {
			customer.Get("/api/appointments", cfg.AppointmentHandler.List)
			customer.Post("/api/appointments/{id}/cancel", cfg.AppointmentHandler.Cancel)
		}
		if cfg.ProfileHandler != nil {
			customer.Get("/api/profile", cfg.ProfileHandler.Get)
			customer.Put("/api/profile", cfg.ProfileHandler.Update)
		}
	})

	// Back office
	if cfg.AdminHandler != nil && cfg.Authorizer != nil {
		r.Route("/admin", func(a chi.Router) {
			a.Use(httpmiddleware.RequireAdmin(cfg.Authorizer))

			a.Get("/dashboard", cfg.AdminHandler.Dashboard)
			a.Get("/appointments", cfg.AdminHandler.ListAppointments)
			a.Patch("/appointments/{id}/status", cfg.AdminHandler.UpdateAppointmentStatus)
			a.Get("/users", cfg.AdminHandler.ListUsers)

			a.Route("/services", func(s chi.Router) {
				s.Get("/", cfg.AdminHandler.ListServices)
				s.Post("/", cfg.AdminHandler.CreateService)
				s.Put("/{id}", cfg.AdminHandler.UpdateService)
				s.Delete("/{id}", cfg.AdminHandler.DeleteService)
				s.Post("/{id}/image", cfg.AdminHandler.UploadServiceImage)
			})
			a.Route("/time-slots", func(s chi.Router) {
				s.Get("/", cfg.AdminHandler.ListTimeSlots)
				s.Post("/", cfg.AdminHandler.CreateTimeSlot)
				s.Post("/generate", cfg.AdminHandler.GenerateTimeSlots)
				s.Put("/{id}", cfg.AdminHandler.UpdateTimeSlot)
				s.Delete("/{id}", cfg.AdminHandler.DeleteTimeSlot)
			})
		})
	}

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
