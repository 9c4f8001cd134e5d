package billing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palestra-cloud/gestionale-api/internal/application/billing"
	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
	"github.com/palestra-cloud/gestionale-api/internal/application/ports"
	"github.com/palestra-cloud/gestionale-api/internal/domain"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
	"github.com/palestra-cloud/gestionale-api/internal/infrastructure/sdi"
)

// newSendUseCase cabla il caso d'uso con i fake e il classificatore reale.
func newSendUseCase(t *testing.T, invoiceRepo *fakeInvoiceRepo, attemptRepo *fakeAttemptRepo, gw *fakeGateway, llm *fakeLLM) *billing.SendInvoiceUseCase {
	t.Helper()
	classifier, err := sdi.NewErrorClassifier()
	require.NoError(t, err)

	tx := &fakeTxRunner{
		saleRepo:    &fakeSaleRepo{},
		invoiceRepo: invoiceRepo,
		attemptRepo: attemptRepo,
	}
	// Un *fakeLLM nil dentro l'interfaccia non sarebbe una interfaccia nil:
	// il caso "AI spenta" richiede il nil letterale.
	var llmPort ports.LLMService
	if llm != nil {
		llmPort = llm
	}
	return billing.NewSendInvoiceUseCase(tx, invoiceRepo, attemptRepo, gw, classifier, llmPort, testLogger())
}

// ── Send ──────────────────────────────────────────────────────────────────────

func TestSend_InvioRiuscito(t *testing.T) {
	invoice := generatedInvoice()
	invoiceRepo := newFakeInvoiceRepo(invoice)
	attemptRepo := &fakeAttemptRepo{}
	gw := &fakeGateway{sendResult: &sdi.SendResult{
		OK:             true,
		ExternalID:     "ext-99",
		ProviderStatus: "INVI",
		InternalStatus: entity.SDIStatusSent,
		RawResponse:    `{"id":"ext-99"}`,
	}}
	uc := newSendUseCase(t, invoiceRepo, attemptRepo, gw, nil)

	got, err := uc.Send(context.Background(), "str-1", "inv-1")
	require.NoError(t, err)

	assert.Equal(t, entity.SDIStatusSent, got.SDIStatus)
	assert.Equal(t, "ext-99", got.SDIExternalID)
	assert.Equal(t, 1, got.SendAttempts)
	require.NotNil(t, got.LastSendAttemptAt)

	// Il payload inviato è il XML della fattura
	require.Len(t, gw.sentPayloads, 1)
	assert.Equal(t, invoice.XMLContent, string(gw.sentPayloads[0]))

	// Audit: un tentativo ok con richiesta e risposta grezze
	require.Len(t, attemptRepo.attempts, 1)
	attempt := attemptRepo.attempts[0]
	assert.Equal(t, entity.SendAttemptOK, attempt.Status)
	assert.Equal(t, invoice.XMLContent, attempt.RequestBody)
	assert.Equal(t, `{"id":"ext-99"}`, attempt.ResponseBody)

	// Lookup external_id registrato per i webhook
	assert.Equal(t, []string{"ext-99"}, invoiceRepo.savedLookups)
}

func TestSend_FallimentoTrasporto(t *testing.T) {
	invoice := generatedInvoice()
	invoiceRepo := newFakeInvoiceRepo(invoice)
	attemptRepo := &fakeAttemptRepo{}
	gw := &fakeGateway{sendResult: &sdi.SendResult{
		OK:      false,
		Message: "chiamata HTTP fallita: connection refused",
	}}
	uc := newSendUseCase(t, invoiceRepo, attemptRepo, gw, nil)

	got, err := uc.Send(context.Background(), "str-1", "inv-1")
	require.NoError(t, err) // il fallimento di trasporto non è un errore del caso d'uso

	// La fattura resta generated e quindi inviabile di nuovo
	assert.Equal(t, entity.SDIStatusGenerated, got.SDIStatus)
	assert.Equal(t, 1, got.SendAttempts)
	assert.Equal(t, "chiamata HTTP fallita: connection refused", got.SDIErrorMessages)

	require.Len(t, attemptRepo.attempts, 1)
	assert.Equal(t, entity.SendAttemptFailed, attemptRepo.attempts[0].Status)
	assert.Equal(t, "chiamata HTTP fallita: connection refused", attemptRepo.attempts[0].ErrorText)
	assert.Empty(t, invoiceRepo.savedLookups)
}

func TestSend_TentativiMultipli(t *testing.T) {
	invoice := generatedInvoice()
	invoiceRepo := newFakeInvoiceRepo(invoice)
	attemptRepo := &fakeAttemptRepo{}
	gw := &fakeGateway{sendResult: &sdi.SendResult{OK: false, Message: "timeout"}}
	uc := newSendUseCase(t, invoiceRepo, attemptRepo, gw, nil)

	_, err := uc.Send(context.Background(), "str-1", "inv-1")
	require.NoError(t, err)
	got, err := uc.Send(context.Background(), "str-1", "inv-1")
	require.NoError(t, err)

	assert.Equal(t, 2, got.SendAttempts)
	require.Len(t, attemptRepo.attempts, 2)
	// attempt_number strettamente crescente
	assert.Equal(t, 1, attemptRepo.attempts[0].AttemptNumber)
	assert.Equal(t, 2, attemptRepo.attempts[1].AttemptNumber)
}

func TestSend_Precondizioni(t *testing.T) {
	t.Run("fattura inesistente", func(t *testing.T) {
		uc := newSendUseCase(t, newFakeInvoiceRepo(), &fakeAttemptRepo{}, &fakeGateway{}, nil)
		_, err := uc.Send(context.Background(), "str-1", "manca")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("fattura di un'altra struttura", func(t *testing.T) {
		uc := newSendUseCase(t, newFakeInvoiceRepo(generatedInvoice()), &fakeAttemptRepo{}, &fakeGateway{}, nil)
		_, err := uc.Send(context.Background(), "str-2", "inv-1")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("stato diverso da generated", func(t *testing.T) {
		invoice := generatedInvoice()
		invoice.SDIStatus = entity.SDIStatusSent
		gw := &fakeGateway{}
		uc := newSendUseCase(t, newFakeInvoiceRepo(invoice), &fakeAttemptRepo{}, gw, nil)

		_, err := uc.Send(context.Background(), "str-1", "inv-1")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Empty(t, gw.sentPayloads)
	})
}

// ── RefreshStatus ─────────────────────────────────────────────────────────────

func TestRefreshStatus_Avanzamento(t *testing.T) {
	invoice := generatedInvoice()
	invoice.SDIStatus = entity.SDIStatusSent
	invoice.SDIExternalID = "ext-99"
	invoiceRepo := newFakeInvoiceRepo(invoice)
	gw := &fakeGateway{statusResult: &sdi.StatusResult{
		ProviderStatus: "CONS",
		InternalStatus: entity.SDIStatusDelivered,
		ReceiptXML:     "<ricevuta/>",
	}}
	uc := newSendUseCase(t, invoiceRepo, &fakeAttemptRepo{}, gw, nil)

	got, err := uc.RefreshStatus(context.Background(), "str-1", "inv-1")
	require.NoError(t, err)

	assert.Equal(t, entity.SDIStatusDelivered, got.SDIStatus)
	assert.Equal(t, "<ricevuta/>", got.SDIReceiptXML)
	require.Len(t, invoiceRepo.updated, 1)
}

func TestRefreshStatus_EsitoNonDisponibile(t *testing.T) {
	invoice := generatedInvoice()
	invoice.SDIStatus = entity.SDIStatusSent
	invoice.SDIExternalID = "ext-99"
	invoiceRepo := newFakeInvoiceRepo(invoice)
	gw := &fakeGateway{statusResult: nil} // nil = riprova più tardi
	uc := newSendUseCase(t, invoiceRepo, &fakeAttemptRepo{}, gw, nil)

	got, err := uc.RefreshStatus(context.Background(), "str-1", "inv-1")
	require.NoError(t, err)

	assert.Equal(t, entity.SDIStatusSent, got.SDIStatus)
	assert.Empty(t, invoiceRepo.updated)
}

func TestRefreshStatus_StatoTerminaleNonInterroga(t *testing.T) {
	invoice := generatedInvoice()
	invoice.SDIStatus = entity.SDIStatusAccepted
	invoice.SDIExternalID = "ext-99"
	gw := &fakeGateway{}
	uc := newSendUseCase(t, newFakeInvoiceRepo(invoice), &fakeAttemptRepo{}, gw, nil)

	got, err := uc.RefreshStatus(context.Background(), "str-1", "inv-1")
	require.NoError(t, err)

	assert.Equal(t, entity.SDIStatusAccepted, got.SDIStatus)
	assert.Equal(t, 0, gw.statusCalls)
}

func TestRefreshStatus_StatoRegressivoIgnorato(t *testing.T) {
	invoice := generatedInvoice()
	invoice.SDIStatus = entity.SDIStatusDelivered
	invoice.SDIExternalID = "ext-99"
	invoiceRepo := newFakeInvoiceRepo(invoice)
	gw := &fakeGateway{statusResult: &sdi.StatusResult{
		ProviderStatus: "INVI",
		InternalStatus: entity.SDIStatusSent,
	}}
	uc := newSendUseCase(t, invoiceRepo, &fakeAttemptRepo{}, gw, nil)

	got, err := uc.RefreshStatus(context.Background(), "str-1", "inv-1")
	require.NoError(t, err)

	// delivered → sent è regressiva: lo stato corrente resta
	assert.Equal(t, entity.SDIStatusDelivered, got.SDIStatus)
	assert.Empty(t, invoiceRepo.updated)
}

// ── HandleStatusCallback ──────────────────────────────────────────────────────

func TestHandleStatusCallback_Scarto(t *testing.T) {
	invoice := generatedInvoice()
	invoice.SDIStatus = entity.SDIStatusSent
	invoice.SDIExternalID = "ext-99"
	invoiceRepo := newFakeInvoiceRepo(invoice)
	invoiceRepo.lookup["ext-99"] = "inv-1"
	invoiceRepo.lookupByValue["ext-99"] = "str-1"
	uc := newSendUseCase(t, invoiceRepo, &fakeAttemptRepo{}, &fakeGateway{}, nil)

	got, err := uc.HandleStatusCallback(context.Background(), "ext-99", "RIFI", "00404 Fattura duplicata", "<notifica/>")
	require.NoError(t, err)

	assert.Equal(t, entity.SDIStatusRejected, got.SDIStatus)
	assert.Equal(t, "00404 Fattura duplicata", got.SDIErrorMessages)
	assert.Equal(t, "<notifica/>", got.SDIReceiptXML)
}

func TestHandleStatusCallback_ExternalIDSconosciuto(t *testing.T) {
	uc := newSendUseCase(t, newFakeInvoiceRepo(), &fakeAttemptRepo{}, &fakeGateway{}, nil)

	_, err := uc.HandleStatusCallback(context.Background(), "fantasma", "CONS", "", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHandleStatusCallback_RicevutaNonSovrascritta(t *testing.T) {
	invoice := generatedInvoice()
	invoice.SDIStatus = entity.SDIStatusDelivered
	invoice.SDIReceiptXML = "<prima/>"
	invoiceRepo := newFakeInvoiceRepo(invoice)
	invoiceRepo.lookup["ext-99"] = "inv-1"
	invoiceRepo.lookupByValue["ext-99"] = "str-1"
	uc := newSendUseCase(t, invoiceRepo, &fakeAttemptRepo{}, &fakeGateway{}, nil)

	got, err := uc.HandleStatusCallback(context.Background(), "ext-99", "ACCE", "", "<seconda/>")
	require.NoError(t, err)

	assert.Equal(t, entity.SDIStatusAccepted, got.SDIStatus)
	assert.Equal(t, "<prima/>", got.SDIReceiptXML)
}

// ── ClassifyErrors ────────────────────────────────────────────────────────────

func TestClassifyErrors(t *testing.T) {
	invoice := generatedInvoice()
	invoice.SDIStatus = entity.SDIStatusRejected
	invoice.SDIErrorMessages = "00404 Fattura duplicata; 00400 Natura non presente a fronte di aliquota IVA zero"
	uc := newSendUseCase(t, newFakeInvoiceRepo(invoice), &fakeAttemptRepo{}, &fakeGateway{}, nil)

	errs, summary, err := uc.ClassifyErrors(context.Background(), "str-1", "inv-1")
	require.NoError(t, err)
	require.Len(t, errs, 2)

	// Ordinati per gravità decrescente
	assert.Equal(t, "00404", errs[0].Code)
	assert.Equal(t, "00400", errs[1].Code)
	assert.Equal(t, 1, summary.Critical)
	assert.Equal(t, 1, summary.High)
	assert.False(t, uc.CanAutoFix(errs)) // 00404 non è auto-correggibile
}

// ── SuggestRejectionAdvice ────────────────────────────────────────────────────

func TestSuggestRejectionAdvice_AISpenta(t *testing.T) {
	invoice := generatedInvoice()
	invoice.SDIErrorMessages = "scarto senza codice"
	uc := newSendUseCase(t, newFakeInvoiceRepo(invoice), &fakeAttemptRepo{}, &fakeGateway{}, nil)

	advice, err := uc.SuggestRejectionAdvice(context.Background(), "str-1", "inv-1")
	require.NoError(t, err)
	assert.Nil(t, advice)
}

func TestSuggestRejectionAdvice_CatalogoSufficiente(t *testing.T) {
	invoice := generatedInvoice()
	invoice.SDIErrorMessages = "00404 Fattura duplicata"
	llm := &fakeLLM{advice: &dto.AIRejectionAdviceDTO{ProbableCause: "non atteso"}}
	uc := newSendUseCase(t, newFakeInvoiceRepo(invoice), &fakeAttemptRepo{}, &fakeGateway{}, llm)

	advice, err := uc.SuggestRejectionAdvice(context.Background(), "str-1", "inv-1")
	require.NoError(t, err)

	// Codice riconosciuto dal catalogo: nessuna chiamata esterna
	assert.Nil(t, advice)
	assert.Equal(t, 0, llm.calls)
}

func TestSuggestRejectionAdvice_ScartoNonRiconosciuto(t *testing.T) {
	invoice := generatedInvoice()
	invoice.SDIErrorMessages = "firma del file non conforme alle specifiche"
	llm := &fakeLLM{advice: &dto.AIRejectionAdviceDTO{
		ProbableCause:   "firma digitale applicata con formato errato",
		SuggestedFix:    "rigenerare il file e firmare in CAdES-BES",
		ConfidenceScore: 0.8,
	}}
	uc := newSendUseCase(t, newFakeInvoiceRepo(invoice), &fakeAttemptRepo{}, &fakeGateway{}, llm)

	advice, err := uc.SuggestRejectionAdvice(context.Background(), "str-1", "inv-1")
	require.NoError(t, err)

	require.NotNil(t, advice)
	assert.Equal(t, "firma digitale applicata con formato errato", advice.ProbableCause)
	assert.Equal(t, 1, llm.calls)
}

func TestSuggestRejectionAdvice_FallimentoAIBestEffort(t *testing.T) {
	invoice := generatedInvoice()
	invoice.SDIErrorMessages = "scarto senza codice riconosciuto"
	llm := &fakeLLM{err: context.DeadlineExceeded}
	uc := newSendUseCase(t, newFakeInvoiceRepo(invoice), &fakeAttemptRepo{}, &fakeGateway{}, llm)

	advice, err := uc.SuggestRejectionAdvice(context.Background(), "str-1", "inv-1")

	// Il fallimento AI non rompe la consultazione
	require.NoError(t, err)
	assert.Nil(t, advice)
}

func TestSuggestRejectionAdvice_SenzaMessaggi(t *testing.T) {
	llm := &fakeLLM{}
	uc := newSendUseCase(t, newFakeInvoiceRepo(generatedInvoice()), &fakeAttemptRepo{}, &fakeGateway{}, llm)

	advice, err := uc.SuggestRejectionAdvice(context.Background(), "str-1", "inv-1")
	require.NoError(t, err)
	assert.Nil(t, advice)
	assert.Equal(t, 0, llm.calls)
}

// ── ListAttempts ──────────────────────────────────────────────────────────────

func TestListAttempts(t *testing.T) {
	invoice := generatedInvoice()
	invoiceRepo := newFakeInvoiceRepo(invoice)
	attemptRepo := &fakeAttemptRepo{}
	gw := &fakeGateway{sendResult: &sdi.SendResult{OK: false, Message: "timeout"}}
	uc := newSendUseCase(t, invoiceRepo, attemptRepo, gw, nil)

	_, err := uc.Send(context.Background(), "str-1", "inv-1")
	require.NoError(t, err)

	attempts, err := uc.ListAttempts(context.Background(), "str-1", "inv-1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, "inv-1", attempts[0].InvoiceID)
}
