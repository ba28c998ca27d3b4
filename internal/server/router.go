package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"ticket-storefront/internal/handlers"
	"ticket-storefront/internal/middleware"
)

// Dependencies carries everything the router wires into handlers
type Dependencies struct {
	Sessions       handlers.SessionProvider
	SessionStore   sessions.Store
	SessionName    string
	DB             handlers.Pinger
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter builds the storefront API router
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cartHandler := handlers.NewCartHandler(deps.Sessions, logger)
	checkoutHandler := handlers.NewCheckoutHandler(deps.Sessions, logger)
	notificationHandler := handlers.NewNotificationHandler(deps.Sessions)
	healthHandler := handlers.NewHealthHandler(deps.DB, logger)
	sessionMiddleware := middleware.NewSessionMiddleware(deps.SessionStore, deps.SessionName, logger)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.ErrorHandlingMiddleware(logger))
	r.Use(middleware.SecurityHeadersMiddleware)
	r.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig(deps.AllowedOrigins)))

	r.NotFound(middleware.NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler().ServeHTTP)

	r.Get("/healthz", healthHandler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(sessionMiddleware.LoadClient)
		r.Use(middleware.RequestLogger(logger))

		limited := func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.Use(middleware.RateLimitClient(deps.RateLimiter))
			}
		}

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Get("/timer", cartHandler.GetTimer)
			r.Post("/items", cartHandler.AddItem)
			r.Post("/items/{index}/quantity", cartHandler.UpdateQuantity)
			r.Delete("/items/{index}", cartHandler.RemoveItem)
			r.Group(func(r chi.Router) {
				limited(r)
				r.Post("/promo", cartHandler.ApplyPromo)
			})
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", checkoutHandler.GetCheckout)
			r.Put("/buyer", checkoutHandler.SetBuyer)
			r.Post("/beneficiaries/toggle", checkoutHandler.ToggleBeneficiaries)
			r.Put("/beneficiaries/{item}/{ticket}", checkoutHandler.SetBeneficiary)
			r.Post("/payment-method", checkoutHandler.SelectPaymentMethod)
			r.Post("/terms", checkoutHandler.AcceptTerms)
			r.Post("/newsletter", checkoutHandler.SetNewsletter)
			r.Post("/account", checkoutHandler.SetCreateAccount)
			r.Group(func(r chi.Router) {
				limited(r)
				r.Post("/submit", checkoutHandler.Submit)
			})
		})

		r.Get("/notifications", notificationHandler.Drain)
	})

	return r
}
