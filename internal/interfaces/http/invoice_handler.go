package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/palestra-cloud/gestionale-api/internal/application/billing"
	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
)

// InvoiceHandler gestisce il ciclo di vita della fattura elettronica:
// generazione XML, invio SDI, polling stato, errori, audit e download.
type InvoiceHandler struct {
	generate *billing.GenerateInvoiceUseCase
	send     *billing.SendInvoiceUseCase
	pdf      *billing.PDFUseCase
}

// NewInvoiceHandler costruisce l'handler.
func NewInvoiceHandler(generate *billing.GenerateInvoiceUseCase, send *billing.SendInvoiceUseCase, pdf *billing.PDFUseCase) *InvoiceHandler {
	return &InvoiceHandler{generate: generate, send: send, pdf: pdf}
}

// Generate genera (o rigenera, se ancora sbloccata) la fattura elettronica
// della vendita.
// POST /api/sales/:id/invoice
func (h *InvoiceHandler) Generate(c *fiber.Ctx) error {
	var in dto.GenerateInvoiceRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo non valido"})
		}
	}
	inv, err := h.generate.Generate(c.Context(), GetStructureID(c), c.Params("id"), in.DocumentTypeCode)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewElectronicInvoiceResponse(inv))
}

// Send trasmette la fattura al canale SDI.
// POST /api/invoices/:id/send
func (h *InvoiceHandler) Send(c *fiber.Ctx) error {
	inv, err := h.send.Send(c.Context(), GetStructureID(c), c.Params("id"))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(dto.NewElectronicInvoiceResponse(inv))
}

// Status endpoint di polling leggero: interroga il provider se lo stato non
// è terminale e restituisce lo stato corrente.
// GET /api/invoices/:id/status
func (h *InvoiceHandler) Status(c *fiber.Ctx) error {
	inv, err := h.send.RefreshStatus(c.Context(), GetStructureID(c), c.Params("id"))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(dto.InvoiceSDIStatusDTO{
		ID:            inv.ID,
		SDIStatus:     inv.SDIStatus,
		SDIExternalID: inv.SDIExternalID,
		Errors:        inv.SDIErrorMessages,
	})
}

// Errors classifica i messaggi di scarto con il catalogo SDI. Se il testo non
// contiene codici riconosciuti e l'AI è configurata, allega il suggerimento
// del modello.
// GET /api/invoices/:id/errors
func (h *InvoiceHandler) Errors(c *fiber.Ctx) error {
	structureID := GetStructureID(c)
	invoiceID := c.Params("id")
	parsed, summary, err := h.send.ClassifyErrors(c.Context(), structureID, invoiceID)
	if err != nil {
		return respondDomainError(c, err)
	}

	out := dto.SDIErrorReportResponse{
		Errors:        make([]dto.SDIErrorResponse, 0, len(parsed)),
		TotalCount:    summary.Total,
		CriticalCount: summary.Critical,
		Version:       h.send.CatalogueVersion(),
	}
	for _, p := range parsed {
		out.Errors = append(out.Errors, dto.SDIErrorResponse{
			Code:        p.Code,
			Description: p.Description,
			Suggestion:  p.Suggestion,
			Severity:    p.Severity,
			AutoFixable: p.AutoFixable,
			DocLink:     p.DocLink,
			RawFragment: p.Raw,
		})
	}
	out.CanAutoFix = h.send.CanAutoFix(parsed)

	// best-effort, nil se il catalogo copre già lo scarto
	advice, err := h.send.SuggestRejectionAdvice(c.Context(), structureID, invoiceID)
	if err == nil && advice != nil {
		return c.JSON(fiber.Map{"report": out, "ai_advice": advice})
	}
	return c.JSON(fiber.Map{"report": out})
}

// Attempts restituisce l'audit trail dei tentativi di invio.
// GET /api/invoices/:id/attempts
func (h *InvoiceHandler) Attempts(c *fiber.Ctx) error {
	attempts, err := h.send.ListAttempts(c.Context(), GetStructureID(c), c.Params("id"))
	if err != nil {
		return respondDomainError(c, err)
	}
	out := make([]dto.SendAttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, dto.SendAttemptResponse{
			AttemptNumber: a.AttemptNumber,
			Status:        a.Status,
			ErrorText:     a.ErrorText,
			CreatedAt:     a.CreatedAt,
		})
	}
	return c.JSON(out)
}

// DownloadPDF scarica la copia di cortesia (generata a richiesta e poi servita
// dalla cache su storage).
// GET /api/invoices/:id/pdf
func (h *InvoiceHandler) DownloadPDF(c *fiber.Ctx) error {
	pdfBytes, filename, err := h.pdf.DownloadInvoicePDF(c.Context(), GetStructureID(c), c.Params("id"))
	if err != nil {
		return respondDomainError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdfBytes)
}

// DownloadXML scarica l'XML FatturaPA della fattura.
// GET /api/invoices/:id/xml
func (h *InvoiceHandler) DownloadXML(c *fiber.Ctx) error {
	xmlBytes, filename, err := h.pdf.DownloadInvoiceXML(c.Context(), GetStructureID(c), c.Params("id"))
	if err != nil {
		return respondDomainError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/xml")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(xmlBytes)
}

// DownloadReceipt scarica la ricevuta SDI (esito/consegna), se arrivata.
// GET /api/invoices/:id/receipt
func (h *InvoiceHandler) DownloadReceipt(c *fiber.Ctx) error {
	xmlBytes, filename, err := h.pdf.DownloadReceiptXML(c.Context(), GetStructureID(c), c.Params("id"))
	if err != nil {
		return respondDomainError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/xml")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(xmlBytes)
}

// sdiWebhookPayload è la notifica di cambio stato del provider SDI.
type sdiWebhookPayload struct {
	ID           string `json:"id"` // external_id assegnato all'invio
	SDIStato     string `json:"sdi_stato"`
	SDIMessaggio string `json:"sdi_messaggio"`
	RicevutaXML  string `json:"ricevuta_xml"`
}

// Webhook riceve le notifiche di stato del provider. Endpoint pubblico
// autenticato con il token statico configurato (header X-Webhook-Token).
// POST /api/webhooks/sdi
func (h *InvoiceHandler) Webhook(expectedToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if expectedToken == "" || c.Get("X-Webhook-Token") != expectedToken {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token webhook non valido"})
		}
		var in sdiWebhookPayload
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo non valido"})
		}
		if in.ID == "" || in.SDIStato == "" {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id e sdi_stato sono obbligatori"})
		}
		inv, err := h.send.HandleStatusCallback(c.Context(), in.ID, in.SDIStato, in.SDIMessaggio, in.RicevutaXML)
		if err != nil {
			return respondDomainError(c, err)
		}
		return c.JSON(dto.InvoiceSDIStatusDTO{
			ID:            inv.ID,
			SDIStatus:     inv.SDIStatus,
			SDIExternalID: inv.SDIExternalID,
			Errors:        inv.SDIErrorMessages,
		})
	}
}
