package analytics_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palestra-cloud/gestionale-api/internal/application/analytics"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
)

// ── Fake repository ───────────────────────────────────────────────────────────

// fakeSaleRepo distingue la query del giorno da quella del mese tramite
// l'estremo inferiore dell'intervallo.
type fakeSaleRepo struct {
	repository.SaleRepository

	byFrom map[string]*repository.RevenueMetrics // from "2006-01-02" → metriche
	err    error
}

func (f *fakeSaleRepo) RevenueMetrics(_ context.Context, _ string, from, _ time.Time) (*repository.RevenueMetrics, error) {
	if f.err != nil {
		return nil, f.err
	}
	m := f.byFrom[from.Format("2006-01-02")]
	if m == nil {
		return &repository.RevenueMetrics{}, nil
	}
	return m, nil
}

type fakeInvoiceRepo struct {
	repository.ElectronicInvoiceRepository

	counts map[string]int
	err    error
}

func (f *fakeInvoiceRepo) CountBySDIStatus(_ context.Context, _ string, _, _ time.Time) (map[string]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.counts, nil
}

// ── GetSummary ────────────────────────────────────────────────────────────────

func TestGetSummary(t *testing.T) {
	now := time.Now()
	todayKey := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).Format("2006-01-02")
	monthKey := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).Format("2006-01-02")

	todayMetrics := &repository.RevenueMetrics{NetCents: 15000, VATCents: 3300, GrossCents: 18300, Documents: 3}
	monthMetrics := &repository.RevenueMetrics{NetCents: 420000, VATCents: 92400, GrossCents: 512400, Documents: 61}
	if monthKey == todayKey {
		// Il primo del mese le due query coincidono
		monthMetrics = todayMetrics
	}

	saleRepo := &fakeSaleRepo{byFrom: map[string]*repository.RevenueMetrics{
		todayKey: todayMetrics,
		monthKey: monthMetrics,
	}}
	invoiceRepo := &fakeInvoiceRepo{counts: map[string]int{
		"delivered": 40,
		"accepted":  18,
		"rejected":  3,
	}}
	uc := analytics.NewDashboardUseCase(saleRepo, invoiceRepo)

	got, err := uc.GetSummary(context.Background(), "str-1")
	require.NoError(t, err)

	assert.Equal(t, todayMetrics.NetCents, got.TodayNetCents)
	assert.Equal(t, todayMetrics.GrossCents, got.TodayGrossCents)
	assert.Equal(t, todayMetrics.Documents, got.TodayDocuments)
	assert.Equal(t, monthMetrics.NetCents, got.MonthNetCents)
	assert.Equal(t, monthMetrics.VATCents, got.MonthVATCents)
	assert.Equal(t, monthMetrics.GrossCents, got.MonthGrossCents)
	assert.Equal(t, monthMetrics.Documents, got.MonthDocuments)
	assert.Equal(t, 3, got.InvoicesByStatus["rejected"])

	// Etichetta leggibile del mese corrente, es: "Agosto 2026"
	assert.Contains(t, got.DateLabel, fmt.Sprintf("%d", now.Year()))
}

func TestGetSummary_ErroreFatturato(t *testing.T) {
	saleRepo := &fakeSaleRepo{err: errors.New("connessione persa")}
	invoiceRepo := &fakeInvoiceRepo{counts: map[string]int{}}
	uc := analytics.NewDashboardUseCase(saleRepo, invoiceRepo)

	_, err := uc.GetSummary(context.Background(), "str-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dashboard")
}

func TestGetSummary_ErroreStatiSDI(t *testing.T) {
	saleRepo := &fakeSaleRepo{byFrom: map[string]*repository.RevenueMetrics{}}
	invoiceRepo := &fakeInvoiceRepo{err: errors.New("connessione persa")}
	uc := analytics.NewDashboardUseCase(saleRepo, invoiceRepo)

	_, err := uc.GetSummary(context.Background(), "str-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stati SDI")
}
