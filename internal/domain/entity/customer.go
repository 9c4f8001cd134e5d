package entity

import "time"

// Customer rappresenta un cliente della struttura (socio/azienda).
// Per la fatturazione elettronica serve almeno uno tra partita IVA,
// codice fiscale e codice identificativo estero.
//
// Il cliente è una risorsa condivisa tra il motore GDPR e tutti i percorsi di
// lettura: l'anonimizzazione avviene solo quando nessun'altra fattura viva lo
// referenzia (vedi il caso d'uso di retention).
type Customer struct {
	ID            string
	StructureID   string
	FirstName     string // persona fisica
	LastName      string
	CompanyName   string // se valorizzato insieme alla P.IVA → CessionarioCommittente azienda
	VATNumber     string
	TaxCode       string // codice fiscale
	ForeignTaxID  string // identificativo fiscale estero
	RecipientCode string // codice destinatario SDI (7 caratteri); vuoto → PEC o 0000000
	PEC           string
	Email         string
	Phone         string
	Address       string
	StreetNumber  string
	PostalCode    string
	City          string
	Province      string
	Country       string // default IT
	AnonymizedAt  *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsCompany distingue il ramo azienda (Denominazione) da quello persona
// fisica (Nome/Cognome) nel blocco CessionarioCommittente.
func (c *Customer) IsCompany() bool {
	return c.CompanyName != "" && c.VATNumber != ""
}

// HasFiscalIdentity indica se il cliente è fatturabile elettronicamente.
func (c *Customer) HasFiscalIdentity() bool {
	return c.VATNumber != "" || c.TaxCode != "" || c.ForeignTaxID != ""
}

// DisplayName nome leggibile del cliente (denominazione o nome e cognome).
func (c *Customer) DisplayName() string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	if c.FirstName == "" {
		return c.LastName
	}
	return c.FirstName + " " + c.LastName
}
