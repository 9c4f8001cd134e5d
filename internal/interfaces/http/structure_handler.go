package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
	"github.com/palestra-cloud/gestionale-api/internal/application/usecase"
)

// StructureHandler gestisce le strutture (tenant) e le loro impostazioni.
type StructureHandler struct {
	uc       *usecase.StructureUseCase
	modules  *usecase.ModuleService
	settings *usecase.SettingsUseCase
}

// NewStructureHandler costruisce l'handler.
func NewStructureHandler(uc *usecase.StructureUseCase, modules *usecase.ModuleService, settings *usecase.SettingsUseCase) *StructureHandler {
	return &StructureHandler{uc: uc, modules: modules, settings: settings}
}

// Create crea una struttura.
// POST /api/structures
func (h *StructureHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateStructureRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo non valido"})
	}
	out, err := h.uc.Create(c.Context(), in)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List elenca le strutture.
// GET /api/structures
func (h *StructureHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.Context())
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(out)
}

// GetByID restituisce una struttura.
// GET /api/structures/:id
func (h *StructureHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	out, err := h.uc.GetByID(c.Context(), id)
	if err != nil {
		return respondDomainError(c, err)
	}
	if out == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "struttura non trovata"})
	}
	return c.JSON(out)
}

// Update aggiorna la struttura del token.
// PUT /api/structures/me
func (h *StructureHandler) Update(c *fiber.Ctx) error {
	structureID := GetStructureID(c)
	var in dto.CreateStructureRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo non valido"})
	}
	out, err := h.uc.Update(c.Context(), structureID, in)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(out)
}

// ListModules elenca i moduli SaaS attivi della struttura del token.
// GET /api/structures/me/modules
func (h *StructureHandler) ListModules(c *fiber.Ctx) error {
	modules, err := h.modules.ListActiveModules(c.Context(), GetStructureID(c))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(fiber.Map{"modules": modules})
}

// GetSetting legge una impostazione tenant.
// GET /api/settings/:key
func (h *StructureHandler) GetSetting(c *fiber.Ctx) error {
	out, err := h.settings.Get(c.Context(), GetStructureID(c), c.Params("key"))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(out)
}

// SetSetting scrive una impostazione tenant.
// PUT /api/settings
func (h *StructureHandler) SetSetting(c *fiber.Ctx) error {
	var in dto.SettingRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo non valido"})
	}
	out, err := h.settings.Set(c.Context(), GetStructureID(c), in)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(out)
}
