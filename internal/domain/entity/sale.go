package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Tipi di vendita (determinano l'inferenza del TipoDocumento).
const (
	SaleTypeSale       = "sale"
	SaleTypeCreditNote = "credit_note"
	SaleTypeDebitNote  = "debit_note"
)

// Sale rappresenta una vendita (abbonamenti, ingressi, servizi) con i campi
// fiscali consumati dal builder XML. Possiede al più una ElectronicInvoice.
//
// Tutti gli importi sono centesimi interi; l'IVA è sempre derivata, mai
// memorizzata come prezzo primario della riga.
type Sale struct {
	ID          string
	StructureID string
	CustomerID  string

	// Numerazione progressiva (gapless per anno/struttura, vedi billing.NumberingService)
	ProgressivePrefix string // es. "FT-"
	ProgressiveValue  int    // 1, 2, 3... formattato a 4 cifre
	Year              int

	Date time.Time
	Type string // sale, credit_note, debit_note

	// TipoDocumento assegnato (TD01...) — vuoto = da inferire alla generazione XML
	DocumentTypeCode string

	// Ritenuta d'acconto
	WithholdingTaxCents     int64
	WithholdingTaxRateCents int64  // centesimi di punto (2000 = 20.00%)
	WithholdingTaxType      string // RT01, RT02

	// Imposta di bollo
	StampDutyCents   int64
	StampDutyApplied bool

	// Cassa previdenziale
	WelfareFundCents        int64
	WelfareFundRateCents    int64
	WelfareFundTaxableCents int64
	WelfareFundVATRateCents int64

	Causale string

	// Condizione di pagamento (facoltativa; se non impostata il blocco
	// DatiPagamento non viene emesso)
	PaymentConditionSet     bool
	PaymentMethod           string // cash, check, bank_transfer, credit_card, sepa_debit
	FirstInstallmentDueDays *int   // giorni alla scadenza della prima rata

	// Nota di credito: riferimento alla vendita originale
	OriginalSaleID string

	Rows []*SaleRow

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProgressiveNumber restituisce il numero documento formattato (prefisso + valore a 4 cifre).
func (s *Sale) ProgressiveNumber() string {
	return fmt.Sprintf("%s%04d", s.ProgressivePrefix, s.ProgressiveValue)
}

// HasProgressiveNumber indica se la vendita ha già un numero assegnato.
func (s *Sale) HasProgressiveNumber() bool {
	return s.ProgressiveValue > 0
}

// TotalNetCents somma degli imponibili di riga (IVA esclusa).
func (s *Sale) TotalNetCents() int64 {
	var total int64
	for _, r := range s.Rows {
		total += r.TotalNetCents
	}
	return total
}

// TotalVATCents somma dell'IVA derivata riga per riga.
func (s *Sale) TotalVATCents() int64 {
	var total int64
	for _, r := range s.Rows {
		total += r.VATCents()
	}
	return total
}

// TotalGrossCents imponibile + IVA di tutte le righe.
func (s *Sale) TotalGrossCents() int64 {
	return s.TotalNetCents() + s.TotalVATCents()
}

// SaleRow è una riga di vendita. unit_price_net e total_net sono sempre
// IVA esclusa (invariante di dominio).
type SaleRow struct {
	ID     string
	SaleID string

	Description string
	Quantity    decimal.Decimal

	UnitPriceNetCents int64
	TotalNetCents     int64

	// Sconto/maggiorazione: percentuale (centesimi di punto) o assoluto (centesimi)
	DiscountPercentCents int64
	DiscountAmountCents  int64

	VATRateID string
	VATRate   *VatRate
}

// VATCents deriva l'IVA della riga dall'imponibile e dall'aliquota.
func (r *SaleRow) VATCents() int64 {
	if r.VATRate == nil || r.VATRate.PercentCents == 0 {
		return 0
	}
	base := decimal.NewFromInt(r.TotalNetCents)
	rate := decimal.NewFromInt(r.VATRate.PercentCents).Div(decimal.NewFromInt(10000))
	return base.Mul(rate).Round(0).IntPart()
}

// VatRate aliquota IVA. Nature (N1..N7.x) è obbligatoria quando PercentCents
// è 0; assente implica IVA ordinaria imponibile.
type VatRate struct {
	ID           string
	StructureID  string
	Name         string
	PercentCents int64  // 2200 = 22.00%
	Nature       string // vuota per aliquote > 0
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
