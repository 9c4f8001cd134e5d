package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
	"github.com/palestra-cloud/gestionale-api/internal/domain"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
	"github.com/palestra-cloud/gestionale-api/pkg/fatturapa"
)

// VatRateUseCase gestione delle aliquote IVA per struttura.
type VatRateUseCase struct {
	repo repository.VatRateRepository
}

// NewVatRateUseCase costruisce il caso d'uso.
func NewVatRateUseCase(repo repository.VatRateRepository) *VatRateUseCase {
	return &VatRateUseCase{repo: repo}
}

// CreateVatRate crea una aliquota. Aliquota zero richiede un codice natura
// valido (N1..N7); aliquote positive non devono averlo.
func (uc *VatRateUseCase) CreateVatRate(ctx context.Context, structureID string, in dto.CreateVatRateRequest) (*dto.VatRateResponse, error) {
	if in.Name == "" || in.PercentCents < 0 {
		return nil, domain.ErrInvalidInput
	}
	if in.PercentCents == 0 {
		if !fatturapa.ValidNatureCodes[in.Nature] {
			return nil, domain.ErrInvalidInput
		}
	} else if in.Nature != "" {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now()
	rate := &entity.VatRate{
		ID:           uuid.New().String(),
		StructureID:  structureID,
		Name:         in.Name,
		PercentCents: in.PercentCents,
		Nature:       in.Nature,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.repo.Create(ctx, rate); err != nil {
		return nil, err
	}
	return dto.NewVatRateResponse(rate), nil
}

// ListVatRates elenca le aliquote della struttura.
func (uc *VatRateUseCase) ListVatRates(ctx context.Context, structureID string) ([]*dto.VatRateResponse, error) {
	rates, err := uc.repo.ListByStructure(ctx, structureID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.VatRateResponse, 0, len(rates))
	for _, r := range rates {
		out = append(out, dto.NewVatRateResponse(r))
	}
	return out, nil
}
