package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
	"github.com/palestra-cloud/gestionale-api/internal/application/retention"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
)

// RetentionHandler gestisce il motore GDPR: dashboard di conformità,
// anonimizzazione e policy di ritenzione (solo admin).
type RetentionHandler struct {
	uc *retention.UseCase
}

// NewRetentionHandler costruisce l'handler.
func NewRetentionHandler(uc *retention.UseCase) *RetentionHandler {
	return &RetentionHandler{uc: uc}
}

// Dashboard contatori di conformità GDPR della struttura.
// GET /api/retention/dashboard
func (h *RetentionHandler) Dashboard(c *fiber.Ctx) error {
	out, err := h.uc.GetRetentionDashboard(c.Context(), GetStructureID(c))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(out)
}

// AnonymizeExpired lancia il giro di anonimizzazione delle fatture scadute.
// Con ?dry_run=true conta solo i candidati senza mutare nulla.
// POST /api/retention/anonymize?dry_run=
func (h *RetentionHandler) AnonymizeExpired(c *fiber.Ctx) error {
	dryRun := c.QueryBool("dry_run", false)
	report, err := h.uc.AnonymizeExpiredInvoices(c.Context(), GetStructureID(c), GetUserID(c), dryRun)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(report)
}

// AnonymizeInvoice anonimizza una singola fattura su richiesta esplicita
// (diritto all'oblio).
// POST /api/invoices/:id/anonymize
func (h *RetentionHandler) AnonymizeInvoice(c *fiber.Ctx) error {
	if err := h.uc.AnonymizeInvoice(c.Context(), GetStructureID(c), c.Params("id"), GetUserID(c)); err != nil {
		return respondDomainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetPolicy restituisce la policy di ritenzione corrente (o i default).
// GET /api/retention/policy
func (h *RetentionHandler) GetPolicy(c *fiber.Ctx) error {
	policy, err := h.uc.GetPolicy(c.Context(), GetStructureID(c))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(policyResponse(policy))
}

// retentionPolicyRequest payload di aggiornamento policy.
type retentionPolicyRequest struct {
	FiscalRetentionYears int  `json:"fiscal_retention_years"`
	AutoAnonymize        bool `json:"auto_anonymize"`
	NotifyMonthsBefore   int  `json:"notify_months_before"`
}

// UpdatePolicy crea o aggiorna la policy di ritenzione.
// PUT /api/retention/policy
func (h *RetentionHandler) UpdatePolicy(c *fiber.Ctx) error {
	var in retentionPolicyRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo non valido"})
	}
	policy, err := h.uc.UpdatePolicy(c.Context(), GetStructureID(c), in.FiscalRetentionYears, in.AutoAnonymize, in.NotifyMonthsBefore)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(policyResponse(policy))
}

func policyResponse(p *entity.DataRetentionPolicy) fiber.Map {
	return fiber.Map{
		"structure_id":           p.StructureID,
		"fiscal_retention_years": p.FiscalRetentionYears,
		"auto_anonymize":         p.AutoAnonymize,
		"notify_months_before":   p.NotifyMonthsBefore,
		"updated_at":             p.UpdatedAt,
	}
}
