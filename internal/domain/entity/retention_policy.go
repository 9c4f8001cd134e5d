package entity

import "time"

// DataRetentionPolicy configura la ritenzione fiscale per struttura.
// Creata una volta per struttura, modificata dall'admin, mai auto-cancellata.
type DataRetentionPolicy struct {
	ID                   string
	StructureID          string
	FiscalRetentionYears int  // default 10 (conservazione sostitutiva)
	AutoAnonymize        bool // se true il job pianificato anonimizza senza conferma
	NotifyMonthsBefore   int  // preavviso di scadenza ritenzione
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// DefaultRetentionYears anni di conservazione a norma di legge.
const DefaultRetentionYears = 10
