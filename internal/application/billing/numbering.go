package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/palestra-cloud/gestionale-api/internal/domain"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
)

// NumberingService gestisce la numerazione progressiva senza buchi
// (obbligo normativo: sequenza 1..N per anno, struttura e tipo documento).
//
// L'assegnazione avviene sempre dentro la transazione che persiste la
// vendita: MaxProgressiveForUpdate blocca le righe candidate, quindi due
// chiamanti concorrenti si serializzano e non possono ottenere lo stesso
// numero. Il constraint UNIQUE su (structure_id, year, progressive_value)
// resta come ultima rete di sicurezza.
type NumberingService struct {
	saleRepo repository.SaleRepository
}

// NewNumberingService costruisce il servizio con il repo di sola lettura
// (per l'audit di integrità; l'assegnazione usa il repo della tx).
func NewNumberingService(saleRepo repository.SaleRepository) *NumberingService {
	return &NumberingService{saleRepo: saleRepo}
}

// AssignProgressive assegna alla vendita il prossimo numero progressivo per
// (anno, struttura, tipo documento). saleRepo deve essere quello legato alla
// transazione corrente.
func (s *NumberingService) AssignProgressive(ctx context.Context, saleRepo repository.SaleRepository, sale *entity.Sale, now time.Time) error {
	if sale.HasProgressiveNumber() {
		return fmt.Errorf("%w: la vendita %s ha già il numero %s", domain.ErrConflict, sale.ID, sale.ProgressiveNumber())
	}
	year := sale.Date.Year()
	if year == 1 {
		year = now.Year()
		sale.Date = now
	}
	max, err := saleRepo.MaxProgressiveForUpdate(ctx, year, sale.StructureID, sale.DocumentTypeCode)
	if err != nil {
		return fmt.Errorf("numerazione: %w", err)
	}
	sale.ProgressiveValue = max + 1
	sale.Year = year
	return nil
}

// SequenceGap è un intervallo di numeri mancanti nella sequenza annuale.
type SequenceGap struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// SequenceReport esito dell'audit di integrità della numerazione.
type SequenceReport struct {
	Year       int           `json:"year"`
	Count      int           `json:"count"`
	MaxValue   int           `json:"max_value"`
	Gaps       []SequenceGap `json:"gaps"`
	Duplicates []int         `json:"duplicates"`
	Intact     bool          `json:"intact"`
}

// ValidateSequenceIntegrity verifica che la sequenza dell'anno sia 1..N senza
// buchi né duplicati. È un audit, non un enforcement: segnala, non corregge.
func (s *NumberingService) ValidateSequenceIntegrity(ctx context.Context, year int, structureID string) (*SequenceReport, error) {
	values, err := s.saleRepo.ListProgressiveValues(ctx, year, structureID)
	if err != nil {
		return nil, fmt.Errorf("audit numerazione: %w", err)
	}
	report := &SequenceReport{Year: year, Count: len(values)}
	expected := 1
	for i, v := range values {
		if i > 0 && v == values[i-1] {
			report.Duplicates = append(report.Duplicates, v)
			continue
		}
		if v > expected {
			report.Gaps = append(report.Gaps, SequenceGap{From: expected, To: v - 1})
		}
		expected = v + 1
	}
	if len(values) > 0 {
		report.MaxValue = values[len(values)-1]
	}
	report.Intact = len(report.Gaps) == 0 && len(report.Duplicates) == 0
	return report, nil
}
