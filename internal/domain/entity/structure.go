package entity

import "time"

// Structure rappresenta una palestra/centro fitness (tenant del sistema).
// Porta l'identità fiscale del cedente/prestatore usata nella fatturazione
// elettronica: serve almeno una tra partita IVA e codice fiscale.
type Structure struct {
	ID            string
	BusinessName  string // denominazione (CedentePrestatore)
	VATNumber     string // partita IVA (11 cifre, senza prefisso paese)
	TaxCode       string // codice fiscale
	FiscalRegime  string // RF01, RF19, ... (vedi pkg/fatturapa)
	Address       string // indirizzo sede legale
	StreetNumber  string
	PostalCode    string // CAP
	City          string
	Province      string // sigla provincia (MI, RM, ...)
	Country       string // ISO 3166-1 alpha-2, default IT
	Phone         string
	Email         string
	PEC           string
	Status        string // active, suspended, inactive
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasFiscalIdentity indica se la struttura può emettere fattura elettronica.
func (s *Structure) HasFiscalIdentity() bool {
	return s.VATNumber != "" || s.TaxCode != ""
}

// Moduli SaaS disponibili (devono coincidere con il CHECK della tabella structure_modules).
const (
	ModuleBilling      = "billing"
	ModulePreservation = "preservation"
	ModuleCRM          = "crm"
	ModuleBooking      = "booking"
)

// StructureModule rappresenta l'attivazione di un modulo SaaS su una struttura.
type StructureModule struct {
	ID          string
	StructureID string
	ModuleName  string // vedi costanti Module*
	IsActive    bool
	ActivatedAt time.Time
	ExpiresAt   *time.Time // nil = senza scadenza
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
