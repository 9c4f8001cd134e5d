package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
)

// CreateCustomerRequest body per POST /api/customers.
type CreateCustomerRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	CompanyName   string `json:"company_name,omitempty"`
	VATNumber     string `json:"vat_number,omitempty"`
	TaxCode       string `json:"tax_code,omitempty"`
	ForeignTaxID  string `json:"foreign_tax_id,omitempty"`
	RecipientCode string `json:"recipient_code,omitempty"`
	PEC           string `json:"pec,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Address       string `json:"address,omitempty"`
	StreetNumber  string `json:"street_number,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
	City          string `json:"city,omitempty"`
	Province      string `json:"province,omitempty"`
	Country       string `json:"country,omitempty"`
}

// CustomerResponse cliente nelle risposte.
type CustomerResponse struct {
	ID            string `json:"id"`
	StructureID   string `json:"structure_id"`
	DisplayName   string `json:"display_name"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	CompanyName   string `json:"company_name,omitempty"`
	VATNumber     string `json:"vat_number,omitempty"`
	TaxCode       string `json:"tax_code,omitempty"`
	RecipientCode string `json:"recipient_code,omitempty"`
	PEC           string `json:"pec,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	City          string `json:"city,omitempty"`
	Anonymized    bool   `json:"anonymized"`
}

// NewCustomerResponse mappa l'entità sul DTO.
func NewCustomerResponse(c *entity.Customer) *CustomerResponse {
	return &CustomerResponse{
		ID:            c.ID,
		StructureID:   c.StructureID,
		DisplayName:   c.DisplayName(),
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		CompanyName:   c.CompanyName,
		VATNumber:     c.VATNumber,
		TaxCode:       c.TaxCode,
		RecipientCode: c.RecipientCode,
		PEC:           c.PEC,
		Email:         c.Email,
		Phone:         c.Phone,
		City:          c.City,
		Anonymized:    c.AnonymizedAt != nil,
	}
}

// CreateVatRateRequest body per POST /api/vat-rates.
type CreateVatRateRequest struct {
	Name         string `json:"name"`
	PercentCents int64  `json:"percent_cents"` // 2200 = 22.00%
	Nature       string `json:"nature,omitempty"`
}

// VatRateResponse aliquota IVA nelle risposte.
type VatRateResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PercentCents int64  `json:"percent_cents"`
	Nature       string `json:"nature,omitempty"`
}

// NewVatRateResponse mappa l'entità sul DTO.
func NewVatRateResponse(v *entity.VatRate) *VatRateResponse {
	return &VatRateResponse{
		ID:           v.ID,
		Name:         v.Name,
		PercentCents: v.PercentCents,
		Nature:       v.Nature,
	}
}

// SaleRowRequest riga di vendita in ingresso. Il prezzo è sempre IVA esclusa,
// in centesimi interi.
type SaleRowRequest struct {
	Description          string          `json:"description"`
	Quantity             decimal.Decimal `json:"quantity"`
	UnitPriceNetCents    int64           `json:"unit_price_net_cents"`
	DiscountPercentCents int64           `json:"discount_percent_cents,omitempty"`
	DiscountAmountCents  int64           `json:"discount_amount_cents,omitempty"`
	VATRateID            string          `json:"vat_rate_id"`
}

// CreateSaleRequest body per POST /api/sales.
type CreateSaleRequest struct {
	CustomerID string           `json:"customer_id"`
	Date       string           `json:"date,omitempty"` // YYYY-MM-DD; vuota = oggi
	Type       string           `json:"type,omitempty"` // sale | credit_note | debit_note
	Prefix     string           `json:"prefix,omitempty"`
	Causale    string           `json:"causale,omitempty"`
	Rows       []SaleRowRequest `json:"rows"`

	// Ritenuta, bollo, cassa previdenziale (centesimi)
	WithholdingTaxCents     int64  `json:"withholding_tax_cents,omitempty"`
	WithholdingTaxRateCents int64  `json:"withholding_tax_rate_cents,omitempty"`
	WithholdingTaxType      string `json:"withholding_tax_type,omitempty"`
	StampDutyCents          int64  `json:"stamp_duty_cents,omitempty"`
	WelfareFundCents        int64  `json:"welfare_fund_cents,omitempty"`
	WelfareFundRateCents    int64  `json:"welfare_fund_rate_cents,omitempty"`
	WelfareFundTaxableCents int64  `json:"welfare_fund_taxable_cents,omitempty"`
	WelfareFundVATRateCents int64  `json:"welfare_fund_vat_rate_cents,omitempty"`

	// Pagamento (facoltativo)
	PaymentMethod           string `json:"payment_method,omitempty"`
	FirstInstallmentDueDays *int   `json:"first_installment_due_days,omitempty"`

	// Nota di credito/debito: vendita originale
	OriginalSaleID string `json:"original_sale_id,omitempty"`
}

// SaleRowResponse riga di vendita nelle risposte.
type SaleRowResponse struct {
	ID                string          `json:"id"`
	Description       string          `json:"description"`
	Quantity          decimal.Decimal `json:"quantity"`
	UnitPriceNetCents int64           `json:"unit_price_net_cents"`
	TotalNetCents     int64           `json:"total_net_cents"`
	VATCents          int64           `json:"vat_cents"`
	VATRateID         string          `json:"vat_rate_id"`
}

// SaleResponse vendita con righe per GET /api/sales/:id.
type SaleResponse struct {
	ID                string            `json:"id"`
	StructureID       string            `json:"structure_id"`
	CustomerID        string            `json:"customer_id"`
	Number            string            `json:"number,omitempty"` // vuoto finché non numerata
	Year              int               `json:"year,omitempty"`
	Date              string            `json:"date"`
	Type              string            `json:"type"`
	DocumentTypeCode  string            `json:"document_type_code,omitempty"`
	TotalNetCents     int64             `json:"total_net_cents"`
	TotalVATCents     int64             `json:"total_vat_cents"`
	TotalGrossCents   int64             `json:"total_gross_cents"`
	Causale           string            `json:"causale,omitempty"`
	OriginalSaleID    string            `json:"original_sale_id,omitempty"`
	Rows              []SaleRowResponse `json:"rows"`
}

// NewSaleResponse mappa l'entità sul DTO.
func NewSaleResponse(s *entity.Sale) *SaleResponse {
	resp := &SaleResponse{
		ID:               s.ID,
		StructureID:      s.StructureID,
		CustomerID:       s.CustomerID,
		Year:             s.Year,
		Date:             s.Date.Format("2006-01-02"),
		Type:             s.Type,
		DocumentTypeCode: s.DocumentTypeCode,
		TotalNetCents:    s.TotalNetCents(),
		TotalVATCents:    s.TotalVATCents(),
		TotalGrossCents:  s.TotalGrossCents(),
		Causale:          s.Causale,
		OriginalSaleID:   s.OriginalSaleID,
		Rows:             make([]SaleRowResponse, 0, len(s.Rows)),
	}
	if s.HasProgressiveNumber() {
		resp.Number = s.ProgressiveNumber()
	}
	for _, r := range s.Rows {
		resp.Rows = append(resp.Rows, SaleRowResponse{
			ID:                r.ID,
			Description:       r.Description,
			Quantity:          r.Quantity,
			UnitPriceNetCents: r.UnitPriceNetCents,
			TotalNetCents:     r.TotalNetCents,
			VATCents:          r.VATCents(),
			VATRateID:         r.VATRateID,
		})
	}
	return resp
}

// GenerateInvoiceRequest body per POST /api/sales/:id/invoice.
type GenerateInvoiceRequest struct {
	DocumentTypeCode string `json:"document_type_code,omitempty"` // override esplicito (TD01...)
}

// ElectronicInvoiceResponse fattura elettronica nelle risposte.
type ElectronicInvoiceResponse struct {
	ID                 string     `json:"id"`
	SaleID             string     `json:"sale_id"`
	TransmissionID     string     `json:"transmission_id"`
	TransmissionFormat string     `json:"transmission_format"`
	XMLVersion         string     `json:"xml_version"`
	SDIStatus          string     `json:"sdi_status"`
	SDIStatusUpdatedAt time.Time  `json:"sdi_status_updated_at"`
	SDIExternalID      string     `json:"sdi_external_id,omitempty"`
	SendAttempts       int        `json:"send_attempts"`
	PreservedAt        *time.Time `json:"preserved_at,omitempty"`
	AnonymizedAt       *time.Time `json:"anonymized_at,omitempty"`
}

// NewElectronicInvoiceResponse mappa l'entità sul DTO.
func NewElectronicInvoiceResponse(inv *entity.ElectronicInvoice) *ElectronicInvoiceResponse {
	return &ElectronicInvoiceResponse{
		ID:                 inv.ID,
		SaleID:             inv.SaleID,
		TransmissionID:     inv.TransmissionID,
		TransmissionFormat: inv.TransmissionFormat,
		XMLVersion:         inv.XMLVersion,
		SDIStatus:          inv.SDIStatus,
		SDIStatusUpdatedAt: inv.SDIStatusUpdatedAt,
		SDIExternalID:      inv.SDIExternalID,
		SendAttempts:       inv.SendAttempts,
		PreservedAt:        inv.PreservedAt,
		AnonymizedAt:       inv.AnonymizedAt,
	}
}

// InvoiceSDIStatusDTO risposta leggera per l'endpoint di polling
// GET /api/invoices/:id/status. Il frontend interroga finché sdi_status non
// è terminale (accepted o rejected).
type InvoiceSDIStatusDTO struct {
	ID            string `json:"id"`
	SDIStatus     string `json:"sdi_status"`
	SDIExternalID string `json:"sdi_external_id,omitempty"`
	Errors        string `json:"errors,omitempty"` // messaggi di scarto grezzi, vuoto se OK
}

// SendAttemptResponse riga dell'audit trail di trasmissione.
type SendAttemptResponse struct {
	AttemptNumber int       `json:"attempt_number"`
	Status        string    `json:"status"`
	ErrorText     string    `json:"error_text,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// SDIErrorResponse errore di scarto classificato.
type SDIErrorResponse struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion,omitempty"`
	Severity    string `json:"severity"`
	AutoFixable bool   `json:"auto_fixable"`
	DocLink     string `json:"doc_link,omitempty"`
	RawFragment string `json:"raw_fragment,omitempty"`
}

// SDIErrorReportResponse esito completo della classificazione.
type SDIErrorReportResponse struct {
	Errors        []SDIErrorResponse `json:"errors"`
	TotalCount    int                `json:"total_count"`
	CriticalCount int                `json:"critical_count"`
	CanAutoFix    bool               `json:"can_auto_fix"`
	Version       string             `json:"catalogue_version"`
}

// BillingDashboardDTO riepilogo di fatturato del giorno e del mese in corso.
// Gli importi sono in centesimi di euro.
type BillingDashboardDTO struct {
	TodayNetCents    int64          `json:"today_net_cents"`
	TodayGrossCents  int64          `json:"today_gross_cents"`
	TodayDocuments   int            `json:"today_documents"`
	MonthNetCents    int64          `json:"month_net_cents"`
	MonthVATCents    int64          `json:"month_vat_cents"`
	MonthGrossCents  int64          `json:"month_gross_cents"`
	MonthDocuments   int            `json:"month_documents"`
	InvoicesByStatus map[string]int `json:"invoices_by_status"`
	DateLabel        string         `json:"date_label"`
}
