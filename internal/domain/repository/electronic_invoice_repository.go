package repository

import (
	"context"
	"time"

	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
)

// RetentionStats aggregati per la dashboard di conformità GDPR.
type RetentionStats struct {
	Total                int
	ExpiredNotAnonymized int
	NearExpiry           int // scadono entro 3 mesi
	Anonymized           int
}

// ElectronicInvoiceRepository definisce la porta di persistenza per
// ElectronicInvoice. Le fatture non vengono mai cancellate fisicamente.
type ElectronicInvoiceRepository interface {
	Create(ctx context.Context, inv *entity.ElectronicInvoice) error
	GetByID(ctx context.Context, id string) (*entity.ElectronicInvoice, error)
	GetBySaleID(ctx context.Context, saleID string) (*entity.ElectronicInvoice, error)

	// Update persiste i campi mutabili (XML in stato draft/generated, stato
	// SDI, contatori, path file). Il chiamante è responsabile di validare la
	// transizione con entity.CanTransitionSDI.
	Update(ctx context.Context, inv *entity.ElectronicInvoice) error

	// UpdatePreservation persiste i soli campi di conservazione.
	UpdatePreservation(ctx context.Context, inv *entity.ElectronicInvoice) error

	// UpdateAnonymization persiste i campi di anonimizzazione e il nuovo XML
	// riscritto (unica eccezione ammessa all'immutabilità, GDPR).
	UpdateAnonymization(ctx context.Context, inv *entity.ElectronicInvoice) error

	SoftDelete(ctx context.Context, id string, at time.Time) error

	ListByStatus(ctx context.Context, structureID, status string, limit int) ([]*entity.ElectronicInvoice, error)

	// ListPreservedInPeriod restituisce le fatture conservate nell'anno
	// (month = 0) o nell'anno+mese indicati.
	ListPreservedInPeriod(ctx context.Context, structureID string, year, month int) ([]*entity.ElectronicInvoice, error)

	// ListPreservedBefore restituisce le fatture conservate con created_at
	// antecedente al cutoff e artefatto fisico ancora presente.
	ListPreservedBefore(ctx context.Context, structureID string, cutoff time.Time) ([]*entity.ElectronicInvoice, error)

	// CountOtherLiveByCustomer conta le fatture non anonimizzate di altri
	// sale dello stesso cliente (decisione risorsa-condivisa del motore GDPR;
	// va eseguita nella stessa transazione della mutazione).
	CountOtherLiveByCustomer(ctx context.Context, customerID, excludeInvoiceID string) (int, error)

	// SaveExternalLookup registra la mappa external_id → struttura/fattura per
	// instradare i webhook di stato in ingresso.
	SaveExternalLookup(ctx context.Context, externalID, structureID, invoiceID string) error
	ResolveExternalLookup(ctx context.Context, externalID string) (structureID, invoiceID string, err error)

	RetentionStats(ctx context.Context, structureID string, retentionYears int, now time.Time) (*RetentionStats, error)

	// CountBySDIStatus conta le fatture della struttura per stato SDI,
	// limitate alle fatture create nell'intervallo [from, to].
	CountBySDIStatus(ctx context.Context, structureID string, from, to time.Time) (map[string]int, error)
}
