package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palestra-cloud/gestionale-api/internal/application/billing"
	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
	"github.com/palestra-cloud/gestionale-api/internal/domain"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
)

func TestCreateVatRate_AliquotaOrdinaria(t *testing.T) {
	repo := &fakeVatRateRepo{}
	uc := billing.NewVatRateUseCase(repo)

	got, err := uc.CreateVatRate(context.Background(), "str-1", dto.CreateVatRateRequest{
		Name:         "IVA 22%",
		PercentCents: 2200,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, got.ID)
	assert.Equal(t, int64(2200), got.PercentCents)
	assert.Empty(t, got.Nature)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "str-1", repo.created[0].StructureID)
}

func TestCreateVatRate_AliquotaZeroConNatura(t *testing.T) {
	repo := &fakeVatRateRepo{}
	uc := billing.NewVatRateUseCase(repo)

	got, err := uc.CreateVatRate(context.Background(), "str-1", dto.CreateVatRateRequest{
		Name:         "Esente art.10",
		PercentCents: 0,
		Nature:       "N4",
	})
	require.NoError(t, err)
	assert.Equal(t, "N4", got.Nature)
}

func TestCreateVatRate_InputNonValido(t *testing.T) {
	tests := []struct {
		name string
		in   dto.CreateVatRateRequest
	}{
		{"nome vuoto", dto.CreateVatRateRequest{PercentCents: 2200}},
		{"percentuale negativa", dto.CreateVatRateRequest{Name: "x", PercentCents: -100}},
		{"aliquota zero senza natura", dto.CreateVatRateRequest{Name: "Esente", PercentCents: 0}},
		{"aliquota zero con natura sconosciuta", dto.CreateVatRateRequest{Name: "Esente", PercentCents: 0, Nature: "N9"}},
		{"aliquota positiva con natura", dto.CreateVatRateRequest{Name: "IVA 22%", PercentCents: 2200, Nature: "N4"}},
	}

	repo := &fakeVatRateRepo{}
	uc := billing.NewVatRateUseCase(repo)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.CreateVatRate(context.Background(), "str-1", tc.in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
	assert.Empty(t, repo.created)
}

func TestListVatRates(t *testing.T) {
	now := time.Now()
	repo := &fakeVatRateRepo{rates: []*entity.VatRate{
		{ID: "vat-1", Name: "IVA 22%", PercentCents: 2200, CreatedAt: now},
		{ID: "vat-2", Name: "Esente art.10", PercentCents: 0, Nature: "N4", CreatedAt: now},
	}}
	uc := billing.NewVatRateUseCase(repo)

	got, err := uc.ListVatRates(context.Background(), "str-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "vat-1", got[0].ID)
	assert.Equal(t, "N4", got[1].Nature)
}
