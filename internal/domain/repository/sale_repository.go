package repository

import (
	"context"
	"time"

	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
)

// SaleRepository definisce la porta di persistenza per Sale e righe.
type SaleRepository interface {
	Create(ctx context.Context, s *entity.Sale) error
	CreateRow(ctx context.Context, r *entity.SaleRow) error
	// GetByID carica la vendita completa di righe e aliquote IVA.
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
	Update(ctx context.Context, s *entity.Sale) error
	ListByStructure(ctx context.Context, structureID string, limit, offset int) ([]*entity.Sale, error)

	// MaxProgressiveForUpdate legge il massimo progressive_value per
	// (anno [, struttura] [, tipo documento]) acquisendo un lock pessimistico
	// di scrittura sulle righe candidate (SELECT ... FOR UPDATE). Va chiamato
	// dentro una transazione: il lock serializza i chiamanti concorrenti.
	MaxProgressiveForUpdate(ctx context.Context, year int, structureID, documentTypeCode string) (int, error)

	// ListProgressiveValues restituisce i valori emessi per l'anno, ordinati
	// (audit di integrità della sequenza, non enforcement).
	ListProgressiveValues(ctx context.Context, year int, structureID string) ([]int, error)

	// ListDatedBefore restituisce le vendite con data <= cutoff la cui fattura
	// non è ancora anonimizzata (selezione del motore GDPR).
	ListDatedBefore(ctx context.Context, structureID string, cutoff time.Time) ([]*entity.Sale, error)

	// RevenueMetrics aggrega i totali dei documenti emessi (con numero
	// progressivo) nell'intervallo [from, to]. Le note di credito vengono
	// sottratte dal fatturato.
	RevenueMetrics(ctx context.Context, structureID string, from, to time.Time) (*RevenueMetrics, error)
}

// RevenueMetrics aggregati di fatturato per la dashboard.
type RevenueMetrics struct {
	NetCents   int64
	VATCents   int64
	GrossCents int64
	Documents  int
}

// VatRateRepository definisce la porta per le aliquote IVA.
type VatRateRepository interface {
	Create(ctx context.Context, v *entity.VatRate) error
	GetByID(ctx context.Context, id string) (*entity.VatRate, error)
	ListByStructure(ctx context.Context, structureID string) ([]*entity.VatRate, error)
}
