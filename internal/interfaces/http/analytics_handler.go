package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/palestra-cloud/gestionale-api/internal/application/analytics"
)

// AnalyticsHandler espone il riepilogo di fatturato della struttura.
type AnalyticsHandler struct {
	dashboard *analytics.DashboardUseCase
}

// NewAnalyticsHandler costruisce l'handler.
func NewAnalyticsHandler(dashboard *analytics.DashboardUseCase) *AnalyticsHandler {
	return &AnalyticsHandler{dashboard: dashboard}
}

// Summary restituisce fatturato di oggi e del mese e fatture per stato SDI.
// GET /api/dashboard/summary
func (h *AnalyticsHandler) Summary(c *fiber.Ctx) error {
	out, err := h.dashboard.GetSummary(c.Context(), GetStructureID(c))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(out)
}
