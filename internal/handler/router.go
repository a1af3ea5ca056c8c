package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/smartpark-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса смартпарк.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		r.Route("/zones", func(r chi.Router) {
			r.Get("/", h.GetZones)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)

				r.Post("/", h.AddZone)
				r.Delete("/{id}", h.DeleteZone)
			})
		})

		r.Get("/payments", h.GetPayments)
		r.Get("/route", h.GetRoute)

		r.Route("/flow", func(r chi.Router) {
			r.Use(h.authMiddleware.Optional)

			r.Get("/", h.GetFlow)
			r.Post("/request", h.RequestParking)
			r.Post("/lock", h.LockSpot)
			r.Post("/navigate", h.StartNavigation)
			r.Post("/complete", h.CompleteParking)
			r.Post("/reset", h.ResetFlow)
			r.Post("/vacate", h.VacateSpot)
			r.Post("/payment", h.CompletePayment)
			r.Post("/payment/cancel", h.CancelPayment)
		})
	})

	if h.ws != nil {
		r.Get("/ws", h.ws.ServeHTTP)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}

func pathID(r *http.Request) string {
	return chi.URLParam(r, "id")
}
