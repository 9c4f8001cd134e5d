// Package analytics contiene i casi d'uso di reportistica: il riepilogo di
// fatturato per la dashboard della struttura.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
)

// DashboardUseCase genera il riepilogo di fatturato del giorno e del mese in
// corso, con il conteggio delle fatture per stato SDI.
//
// Fonte dati: query read-only aggregate sui repository. Non carica mai le
// vendite riga per riga.
type DashboardUseCase struct {
	saleRepo    repository.SaleRepository
	invoiceRepo repository.ElectronicInvoiceRepository
	now         func() time.Time
}

// NewDashboardUseCase costruisce il caso d'uso.
func NewDashboardUseCase(saleRepo repository.SaleRepository, invoiceRepo repository.ElectronicInvoiceRepository) *DashboardUseCase {
	return &DashboardUseCase{saleRepo: saleRepo, invoiceRepo: invoiceRepo, now: time.Now}
}

// GetSummary costruisce il BillingDashboardDTO per la struttura indicata.
//
// Tre chiamate in parallelo:
//  1. RevenueMetrics(oggi)   → fatturato del giorno
//  2. RevenueMetrics(mese)   → fatturato del mese
//  3. CountBySDIStatus(mese) → fatture per stato SDI
func (uc *DashboardUseCase) GetSummary(
	ctx context.Context,
	structureID string,
) (*dto.BillingDashboardDTO, error) {
	now := uc.now()

	// Oggi: 00:00:00.000 – 23:59:59.999
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	todayEnd := todayStart.Add(24*time.Hour - time.Nanosecond)

	// Mese in corso: giorno 1 alle 00:00 – oggi alle 23:59:59
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := todayEnd

	type metricsResult struct {
		m   *repository.RevenueMetrics
		err error
	}
	type statusResult struct {
		counts map[string]int
		err    error
	}

	todayCh := make(chan metricsResult, 1)
	monthCh := make(chan metricsResult, 1)
	statusCh := make(chan statusResult, 1)

	go func() {
		m, err := uc.saleRepo.RevenueMetrics(ctx, structureID, todayStart, todayEnd)
		todayCh <- metricsResult{m, err}
	}()
	go func() {
		m, err := uc.saleRepo.RevenueMetrics(ctx, structureID, monthStart, monthEnd)
		monthCh <- metricsResult{m, err}
	}()
	go func() {
		counts, err := uc.invoiceRepo.CountBySDIStatus(ctx, structureID, monthStart, monthEnd)
		statusCh <- statusResult{counts, err}
	}()

	today := <-todayCh
	month := <-monthCh
	status := <-statusCh

	if today.err != nil {
		return nil, fmt.Errorf("dashboard: fatturato di oggi: %w", today.err)
	}
	if month.err != nil {
		return nil, fmt.Errorf("dashboard: fatturato del mese: %w", month.err)
	}
	if status.err != nil {
		return nil, fmt.Errorf("dashboard: stati SDI: %w", status.err)
	}

	return &dto.BillingDashboardDTO{
		TodayNetCents:    today.m.NetCents,
		TodayGrossCents:  today.m.GrossCents,
		TodayDocuments:   today.m.Documents,
		MonthNetCents:    month.m.NetCents,
		MonthVATCents:    month.m.VATCents,
		MonthGrossCents:  month.m.GrossCents,
		MonthDocuments:   month.m.Documents,
		InvoicesByStatus: status.counts,
		DateLabel:        monthLabel(now),
	}, nil
}

// monthLabel restituisce un'etichetta leggibile del mese, es: "Febbraio 2026".
func monthLabel(t time.Time) string {
	months := [...]string{
		"Gennaio", "Febbraio", "Marzo", "Aprile", "Maggio", "Giugno",
		"Luglio", "Agosto", "Settembre", "Ottobre", "Novembre", "Dicembre",
	}
	return fmt.Sprintf("%s %d", months[t.Month()-1], t.Year())
}
