package handlers

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts the full API surface. Public endpoints cover visitor
// tracking; everything that changes state sits behind staff auth.
func (h *Handlers) Routes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		// Visitor-facing tracking; no session required.
		r.Get("/track/{code}", h.PassProgress)
		r.Get("/track/{code}/qr", h.PassQR)
		r.Get("/categories", h.ListCategories)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireJWT)

			r.Post("/auth/register", h.RegisterStaff)

			r.Route("/passes", func(r chi.Router) {
				r.Post("/", h.CreatePass)
				r.Get("/", h.ListPasses)
				r.Get("/code/{code}", h.GetPassByCode)
				r.Get("/code/{code}/trail", h.PassTrail)
				r.Get("/{id}", h.GetPass)
				r.Put("/{id}", h.UpdatePass)
				r.Post("/{id}/approve", h.ApprovePass)
				r.Post("/{id}/reject", h.RejectPass)
				r.Post("/{id}/reschedule", h.ReschedulePass)
				r.Post("/{id}/cancel", h.CancelPass)
				r.Delete("/{id}", h.DeactivatePass)
			})

			r.Route("/gate", func(r chi.Router) {
				r.Post("/scan", h.Scan)
				r.Post("/emergency-exit", h.EmergencyExit)
			})

			r.Get("/dashboard", h.Dashboard)

			r.Post("/categories", h.CreateCategory)
			r.Delete("/categories/{id}", h.DeactivateCategory)
		})
	})
}
