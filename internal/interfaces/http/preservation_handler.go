package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
	"github.com/palestra-cloud/gestionale-api/internal/application/preservation"
)

// PreservationHandler gestisce la conservazione sostitutiva (protetto,
// richiede il modulo preservation).
type PreservationHandler struct {
	uc *preservation.UseCase
}

// NewPreservationHandler costruisce l'handler.
func NewPreservationHandler(uc *preservation.UseCase) *PreservationHandler {
	return &PreservationHandler{uc: uc}
}

// Preserve mette in conservazione una fattura accettata.
// POST /api/invoices/:id/preserve
func (h *PreservationHandler) Preserve(c *fiber.Ctx) error {
	inv, err := h.uc.Preserve(c.Context(), GetStructureID(c), c.Params("id"), GetUserID(c))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(dto.NewElectronicInvoiceResponse(inv))
}

// PreserveBatch mette in conservazione tutte le fatture accettate non ancora
// conservate (fino a limit, default 100).
// POST /api/preservation/batch?limit=
func (h *PreservationHandler) PreserveBatch(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	result, err := h.uc.PreserveBatch(c.Context(), GetStructureID(c), GetUserID(c), limit)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(result)
}

// Verify ricalcola l'hash degli artefatti conservati e lo confronta con
// quello registrato.
// GET /api/invoices/:id/preservation/verify
func (h *PreservationHandler) Verify(c *fiber.Ctx) error {
	report, err := h.uc.VerifyIntegrity(c.Context(), GetStructureID(c), c.Params("id"))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(report)
}

// Export scarica l'archivio ZIP delle fatture conservate nel periodo.
// GET /api/preservation/export/:year?month=
func (h *PreservationHandler) Export(c *fiber.Ctx) error {
	year, err := strconv.Atoi(c.Params("year"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "anno non valido"})
	}
	month := c.QueryInt("month", 0)
	if month < 0 || month > 12 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "mese non valido"})
	}
	zipBytes, filename, err := h.uc.ExportPeriod(c.Context(), GetStructureID(c), year, month)
	if err != nil {
		return respondDomainError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(zipBytes)
}

// Cleanup elimina gli artefatti fisici oltre la ritenzione (le righe DB
// restano per audit).
// POST /api/preservation/cleanup
func (h *PreservationHandler) Cleanup(c *fiber.Ctx) error {
	result, err := h.uc.CleanupOldPreservations(c.Context(), GetStructureID(c))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(result)
}

// Statistics contatori e occupazione storage della conservazione per anno.
// GET /api/preservation/statistics/:year
func (h *PreservationHandler) Statistics(c *fiber.Ctx) error {
	year, err := strconv.Atoi(c.Params("year"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "anno non valido"})
	}
	stats, err := h.uc.GetStatistics(c.Context(), GetStructureID(c), year)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(stats)
}
