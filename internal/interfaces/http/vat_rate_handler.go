package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/palestra-cloud/gestionale-api/internal/application/billing"
	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
)

// VatRateHandler gestisce le aliquote IVA (protetto).
type VatRateHandler struct {
	uc *billing.VatRateUseCase
}

// NewVatRateHandler costruisce l'handler.
func NewVatRateHandler(uc *billing.VatRateUseCase) *VatRateHandler {
	return &VatRateHandler{uc: uc}
}

// Create crea una aliquota IVA.
// POST /api/vat-rates
func (h *VatRateHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateVatRateRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo non valido"})
	}
	out, err := h.uc.CreateVatRate(c.Context(), GetStructureID(c), in)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List elenca le aliquote IVA della struttura.
// GET /api/vat-rates
func (h *VatRateHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.ListVatRates(c.Context(), GetStructureID(c))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(out)
}
