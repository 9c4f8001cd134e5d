package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/palestra-cloud/gestionale-api/internal/application/billing"
	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
)

// SaleHandler gestisce le vendite e la numerazione progressiva (protetto).
type SaleHandler struct {
	uc        *billing.SaleUseCase
	numbering *billing.NumberingService
}

// NewSaleHandler costruisce l'handler.
func NewSaleHandler(uc *billing.SaleUseCase, numbering *billing.NumberingService) *SaleHandler {
	return &SaleHandler{uc: uc, numbering: numbering}
}

// Create crea una vendita con le sue righe.
// POST /api/sales
func (h *SaleHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo non valido"})
	}
	out, err := h.uc.CreateSale(c.Context(), GetStructureID(c), in)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List elenca le vendite della struttura.
// GET /api/sales?limit=&offset=
func (h *SaleHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "parametri di paginazione non validi"})
	}
	out, err := h.uc.ListSales(c.Context(), GetStructureID(c), page)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(out)
}

// GetByID restituisce una vendita con le righe.
// GET /api/sales/:id
func (h *SaleHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.GetSale(c.Context(), GetStructureID(c), c.Params("id"))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(out)
}

// SequenceIntegrity verifica buchi e duplicati nella numerazione di un anno.
// GET /api/sales/sequence/:year
func (h *SaleHandler) SequenceIntegrity(c *fiber.Ctx) error {
	year, err := strconv.Atoi(c.Params("year"))
	if err != nil || year < 2000 || year > time.Now().Year()+1 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "anno non valido"})
	}
	report, err := h.numbering.ValidateSequenceIntegrity(c.Context(), year, GetStructureID(c))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(report)
}
