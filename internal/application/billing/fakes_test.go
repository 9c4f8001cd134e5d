package billing_test

import (
	"context"
	"time"

	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
	"github.com/palestra-cloud/gestionale-api/internal/infrastructure/sdi"
	"github.com/palestra-cloud/gestionale-api/pkg/logger"
)

// Fake in memoria per i test del package. Ogni fake incorpora l'interfaccia:
// i metodi non sovrascritti vanno in panic se chiamati, segnalando subito un
// percorso di codice inatteso.

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "production", Level: "error"})
}

// ── SaleRepository ────────────────────────────────────────────────────────────

type fakeSaleRepo struct {
	repository.SaleRepository

	maxProgressive    int
	maxProgressiveErr error
	progressiveValues []int
	lockCalls         int
}

func (f *fakeSaleRepo) MaxProgressiveForUpdate(_ context.Context, _ int, _, _ string) (int, error) {
	f.lockCalls++
	if f.maxProgressiveErr != nil {
		return 0, f.maxProgressiveErr
	}
	return f.maxProgressive, nil
}

func (f *fakeSaleRepo) ListProgressiveValues(_ context.Context, _ int, _ string) ([]int, error) {
	return f.progressiveValues, nil
}

// ── ElectronicInvoiceRepository ───────────────────────────────────────────────

type fakeInvoiceRepo struct {
	repository.ElectronicInvoiceRepository

	invoices map[string]*entity.ElectronicInvoice
	lookup   map[string]string // external_id → invoice_id

	updated       []*entity.ElectronicInvoice
	savedLookups  []string
	lookupByValue map[string]string // external_id → structure_id
}

func newFakeInvoiceRepo(invoices ...*entity.ElectronicInvoice) *fakeInvoiceRepo {
	f := &fakeInvoiceRepo{
		invoices:      make(map[string]*entity.ElectronicInvoice),
		lookup:        make(map[string]string),
		lookupByValue: make(map[string]string),
	}
	for _, inv := range invoices {
		f.invoices[inv.ID] = inv
	}
	return f
}

func (f *fakeInvoiceRepo) GetByID(_ context.Context, id string) (*entity.ElectronicInvoice, error) {
	return f.invoices[id], nil
}

func (f *fakeInvoiceRepo) Update(_ context.Context, inv *entity.ElectronicInvoice) error {
	f.updated = append(f.updated, inv)
	f.invoices[inv.ID] = inv
	return nil
}

func (f *fakeInvoiceRepo) SaveExternalLookup(_ context.Context, externalID, structureID, invoiceID string) error {
	f.savedLookups = append(f.savedLookups, externalID)
	f.lookup[externalID] = invoiceID
	f.lookupByValue[externalID] = structureID
	return nil
}

func (f *fakeInvoiceRepo) ResolveExternalLookup(_ context.Context, externalID string) (string, string, error) {
	return f.lookupByValue[externalID], f.lookup[externalID], nil
}

// ── SendAttemptRepository ─────────────────────────────────────────────────────

type fakeAttemptRepo struct {
	attempts []*entity.SendAttempt
}

func (f *fakeAttemptRepo) Append(_ context.Context, a *entity.SendAttempt) error {
	a.AttemptNumber = len(f.attempts) + 1
	f.attempts = append(f.attempts, a)
	return nil
}

func (f *fakeAttemptRepo) ListByInvoice(_ context.Context, invoiceID string) ([]*entity.SendAttempt, error) {
	var out []*entity.SendAttempt
	for _, a := range f.attempts {
		if a.InvoiceID == invoiceID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ── TxRunner ──────────────────────────────────────────────────────────────────

// fakeTxRunner esegue la funzione direttamente, senza transazione reale.
type fakeTxRunner struct {
	saleRepo    repository.SaleRepository
	invoiceRepo repository.ElectronicInvoiceRepository
	attemptRepo repository.SendAttemptRepository
}

func (f *fakeTxRunner) RunBilling(_ context.Context, fn func(
	repository.SaleRepository,
	repository.ElectronicInvoiceRepository,
	repository.SendAttemptRepository,
) error) error {
	return fn(f.saleRepo, f.invoiceRepo, f.attemptRepo)
}

// ── sdi.Gateway ───────────────────────────────────────────────────────────────

type fakeGateway struct {
	sendResult   *sdi.SendResult
	statusResult *sdi.StatusResult

	sentPayloads [][]byte
	statusCalls  int
}

func (f *fakeGateway) Send(_ context.Context, xmlContent []byte) *sdi.SendResult {
	f.sentPayloads = append(f.sentPayloads, xmlContent)
	return f.sendResult
}

func (f *fakeGateway) CheckStatus(_ context.Context, _ string) *sdi.StatusResult {
	f.statusCalls++
	return f.statusResult
}

func (f *fakeGateway) DownloadPDF(_ context.Context, _ string) []byte     { return nil }
func (f *fakeGateway) DownloadReceipt(_ context.Context, _ string) []byte { return nil }

// ── ports.LLMService ──────────────────────────────────────────────────────────

type fakeLLM struct {
	advice *dto.AIRejectionAdviceDTO
	err    error
	calls  int
}

func (f *fakeLLM) SuggestRejectionFix(_ context.Context, _ string) (*dto.AIRejectionAdviceDTO, error) {
	f.calls++
	return f.advice, f.err
}

// ── VatRateRepository ─────────────────────────────────────────────────────────

type fakeVatRateRepo struct {
	created []*entity.VatRate
	rates   []*entity.VatRate
}

func (f *fakeVatRateRepo) Create(_ context.Context, v *entity.VatRate) error {
	f.created = append(f.created, v)
	return nil
}

func (f *fakeVatRateRepo) GetByID(_ context.Context, id string) (*entity.VatRate, error) {
	for _, r := range f.rates {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeVatRateRepo) ListByStructure(_ context.Context, _ string) ([]*entity.VatRate, error) {
	return f.rates, nil
}

// ── Fixture fatture ───────────────────────────────────────────────────────────

func generatedInvoice() *entity.ElectronicInvoice {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	return &entity.ElectronicInvoice{
		ID:                 "inv-1",
		StructureID:        "str-1",
		SaleID:             "sale-1",
		XMLContent:         "<p:FatturaElettronica/>",
		TransmissionID:     "03151A2B3C",
		TransmissionFormat: "FPR12",
		SDIStatus:          entity.SDIStatusGenerated,
		SDIStatusUpdatedAt: now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}
