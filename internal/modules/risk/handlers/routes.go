package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all risk engine routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/risk", func(r chi.Router) {
		r.Post("/calculate", h.HandleCalculate)

		// Reference data
		r.Get("/asset-classes", h.HandleGetAssetClasses)
		r.Get("/scenarios", h.HandleGetScenarios)

		// Correlation matrix helpers for editing clients
		r.Route("/correlation", func(r chi.Router) {
			r.Post("/default", h.HandleDefaultCorrelation)
			r.Post("/reconcile", h.HandleReconcileCorrelation)
			r.Post("/sanitize", h.HandleSanitizeCorrelation)
		})

		r.Post("/answers/match", h.HandleMatchAnswers)
	})
}
