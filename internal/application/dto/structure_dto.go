package dto

import "time"

// CreateStructureRequest payload di creazione/aggiornamento struttura.
type CreateStructureRequest struct {
	BusinessName string `json:"business_name" validate:"required"`
	VATNumber    string `json:"vat_number"`
	TaxCode      string `json:"tax_code"`
	FiscalRegime string `json:"fiscal_regime"` // RF01 se vuoto
	Address      string `json:"address"`
	StreetNumber string `json:"street_number"`
	PostalCode   string `json:"postal_code"`
	City         string `json:"city"`
	Province     string `json:"province"`
	Country      string `json:"country"` // IT se vuoto
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	PEC          string `json:"pec"`
}

// StructureResponse rappresentazione pubblica della struttura.
type StructureResponse struct {
	ID           string    `json:"id"`
	BusinessName string    `json:"business_name"`
	VATNumber    string    `json:"vat_number"`
	TaxCode      string    `json:"tax_code"`
	FiscalRegime string    `json:"fiscal_regime"`
	Address      string    `json:"address"`
	StreetNumber string    `json:"street_number"`
	PostalCode   string    `json:"postal_code"`
	City         string    `json:"city"`
	Province     string    `json:"province"`
	Country      string    `json:"country"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	PEC          string    `json:"pec"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SettingRequest payload di scrittura di una impostazione tenant.
type SettingRequest struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value"`
}

// SettingResponse una impostazione tenant.
type SettingResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
