package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
	"github.com/palestra-cloud/gestionale-api/internal/application/ports"
	"github.com/palestra-cloud/gestionale-api/internal/domain"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
	"github.com/palestra-cloud/gestionale-api/internal/infrastructure/sdi"
	"github.com/palestra-cloud/gestionale-api/pkg/logger"
)

// SendInvoiceUseCase orchestra il ciclo di trasmissione verso il canale SDI:
//
//	fattura generated → invio al provider → audit del tentativo →
//	transizione di stato → lookup external_id per i webhook
//
// Ogni invio, riuscito o fallito, produce una riga di audit append-only e
// incrementa il contatore sulla fattura. Le transizioni di stato passano
// sempre da entity.CanTransitionSDI: uno stato regressivo dal provider non
// sovrascrive mai quello corrente.
type SendInvoiceUseCase struct {
	txRunner    TxRunner
	invoiceRepo repository.ElectronicInvoiceRepository
	attemptRepo repository.SendAttemptRepository
	gateway     sdi.Gateway
	classifier  *sdi.ErrorClassifier
	llm         ports.LLMService // opzionale, nil disabilita i suggerimenti AI
	log         *logger.Logger

	now func() time.Time
}

// NewSendInvoiceUseCase costruisce il caso d'uso.
func NewSendInvoiceUseCase(
	txRunner TxRunner,
	invoiceRepo repository.ElectronicInvoiceRepository,
	attemptRepo repository.SendAttemptRepository,
	gateway sdi.Gateway,
	classifier *sdi.ErrorClassifier,
	llm ports.LLMService,
	log *logger.Logger,
) *SendInvoiceUseCase {
	return &SendInvoiceUseCase{
		txRunner:    txRunner,
		invoiceRepo: invoiceRepo,
		attemptRepo: attemptRepo,
		gateway:     gateway,
		classifier:  classifier,
		llm:         llm,
		log:         log,
		now:         time.Now,
	}
}

// Send invia la fattura al provider SDI. Precondizione: stato generated.
// Il fallimento di trasporto non è un errore del caso d'uso: viene
// registrato nell'audit e la fattura resta inviabile di nuovo.
func (uc *SendInvoiceUseCase) Send(ctx context.Context, structureID, invoiceID string) (*entity.ElectronicInvoice, error) {
	invoice, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}
	if invoice.StructureID != structureID {
		return nil, domain.ErrForbidden
	}
	if invoice.SDIStatus != entity.SDIStatusGenerated {
		return nil, fmt.Errorf("%w: da %s a sent", domain.ErrInvalidTransition, invoice.SDIStatus)
	}

	// La chiamata di rete sta fuori dalla transazione: tenere un lock DB
	// aperto per 60 secondi di timeout HTTP non è accettabile.
	result := uc.gateway.Send(ctx, []byte(invoice.XMLContent))
	now := uc.now()

	err = uc.txRunner.RunBilling(ctx, func(
		_ repository.SaleRepository,
		invoiceRepo repository.ElectronicInvoiceRepository,
		attemptRepo repository.SendAttemptRepository,
	) error {
		attempt := &entity.SendAttempt{
			InvoiceID:    invoiceID,
			Status:       entity.SendAttemptOK,
			RequestBody:  invoice.XMLContent,
			ResponseBody: result.RawResponse,
			CreatedAt:    now,
		}
		if !result.OK {
			attempt.Status = entity.SendAttemptFailed
			attempt.ErrorText = result.Message
		}
		if err := attemptRepo.Append(ctx, attempt); err != nil {
			return err
		}

		invoice.SendAttempts++
		invoice.LastSendAttemptAt = &now
		invoice.UpdatedAt = now

		if result.OK {
			newStatus := result.InternalStatus
			if newStatus == "" {
				newStatus = entity.SDIStatusSent
			}
			if entity.CanTransitionSDI(invoice.SDIStatus, newStatus) {
				invoice.SDIStatus = newStatus
				invoice.SDIStatusUpdatedAt = now
			}
			invoice.SDIExternalID = result.ExternalID
			if result.ExternalID != "" {
				if err := invoiceRepo.SaveExternalLookup(ctx, result.ExternalID, structureID, invoiceID); err != nil {
					return err
				}
			}
		} else {
			invoice.SDIErrorMessages = result.Message
		}
		return invoiceRepo.Update(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	if result.OK {
		uc.log.Info().
			Str("invoice_id", invoiceID).
			Str("external_id", result.ExternalID).
			Int("tentativo", invoice.SendAttempts).
			Msg("fattura inviata al canale SDI")
	} else {
		uc.log.Warn().
			Str("invoice_id", invoiceID).
			Int("tentativo", invoice.SendAttempts).
			Str("errore", result.Message).
			Msg("invio SDI fallito")
	}
	return invoice, nil
}

// RefreshStatus interroga il provider e applica l'eventuale avanzamento di
// stato. Un esito nil dal gateway significa "riprova più tardi".
func (uc *SendInvoiceUseCase) RefreshStatus(ctx context.Context, structureID, invoiceID string) (*entity.ElectronicInvoice, error) {
	invoice, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}
	if invoice.StructureID != structureID {
		return nil, domain.ErrForbidden
	}
	if invoice.SDIExternalID == "" || entity.IsTerminalSDIStatus(invoice.SDIStatus) {
		return invoice, nil
	}

	status := uc.gateway.CheckStatus(ctx, invoice.SDIExternalID)
	if status == nil {
		return invoice, nil
	}
	return uc.applyStatus(ctx, invoice, status.InternalStatus, status.Message, status.ReceiptXML)
}

// HandleStatusCallback instrada una notifica di stato in ingresso (webhook
// del provider) alla fattura tramite il lookup external_id.
func (uc *SendInvoiceUseCase) HandleStatusCallback(ctx context.Context, externalID, providerStatus, message, receiptXML string) (*entity.ElectronicInvoice, error) {
	_, invoiceID, err := uc.invoiceRepo.ResolveExternalLookup(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if invoiceID == "" {
		return nil, domain.ErrNotFound
	}
	invoice, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}
	return uc.applyStatus(ctx, invoice, sdi.MapProviderStatus(providerStatus), message, receiptXML)
}

// applyStatus applica una transizione validata e persiste ricevuta ed errori.
func (uc *SendInvoiceUseCase) applyStatus(ctx context.Context, invoice *entity.ElectronicInvoice, newStatus, message, receiptXML string) (*entity.ElectronicInvoice, error) {
	now := uc.now()
	changed := false

	if entity.CanTransitionSDI(invoice.SDIStatus, newStatus) {
		invoice.SDIStatus = newStatus
		invoice.SDIStatusUpdatedAt = now
		changed = true
	}
	if receiptXML != "" && invoice.SDIReceiptXML == "" {
		invoice.SDIReceiptXML = receiptXML
		changed = true
	}
	if newStatus == entity.SDIStatusRejected && message != "" {
		invoice.SDIErrorMessages = message
		changed = true
	}
	if !changed {
		return invoice, nil
	}

	invoice.UpdatedAt = now
	if err := uc.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("invoice_id", invoice.ID).
		Str("stato", invoice.SDIStatus).
		Msg("stato SDI aggiornato")
	return invoice, nil
}

// ClassifyErrors interpreta i messaggi di scarto della fattura con il
// catalogo errori SDI e restituisce il riepilogo ordinato per gravità.
func (uc *SendInvoiceUseCase) ClassifyErrors(ctx context.Context, structureID, invoiceID string) ([]sdi.ParsedError, *sdi.ErrorSummary, error) {
	invoice, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	if invoice == nil {
		return nil, nil, domain.ErrNotFound
	}
	if invoice.StructureID != structureID {
		return nil, nil, domain.ErrForbidden
	}
	errs := uc.classifier.ParseErrors(invoice.SDIErrorMessages)
	sdi.SortBySeverity(errs)
	summary := sdi.Summarize(errs)
	return errs, &summary, nil
}

// CatalogueVersion versione del catalogo errori SDI in uso.
func (uc *SendInvoiceUseCase) CatalogueVersion() string {
	return uc.classifier.CatalogueVersion()
}

// CanAutoFix indica se tutti gli errori classificati sono auto-correggibili.
func (uc *SendInvoiceUseCase) CanAutoFix(errs []sdi.ParsedError) bool {
	return sdi.CanAutoFix(errs)
}

// SuggestRejectionAdvice chiede al modello LLM un suggerimento per scarti il
// cui testo non contiene codici riconosciuti dal catalogo. Restituisce nil
// senza errore se l'AI non è configurata o se il catalogo copre già lo scarto.
func (uc *SendInvoiceUseCase) SuggestRejectionAdvice(ctx context.Context, structureID, invoiceID string) (*dto.AIRejectionAdviceDTO, error) {
	if uc.llm == nil {
		return nil, nil
	}
	invoice, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}
	if invoice.StructureID != structureID {
		return nil, domain.ErrForbidden
	}
	if invoice.SDIErrorMessages == "" {
		return nil, nil
	}
	parsed := uc.classifier.ParseErrors(invoice.SDIErrorMessages)
	for _, p := range parsed {
		if p.Code != "" {
			return nil, nil // catalogo sufficiente, niente chiamata esterna
		}
	}

	aiCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	advice, err := uc.llm.SuggestRejectionFix(aiCtx, invoice.SDIErrorMessages)
	if err != nil {
		// Il suggerimento è best-effort: un fallimento AI non deve rompere
		// la consultazione degli errori.
		uc.log.Warn().Err(err).Str("invoice_id", invoiceID).Msg("suggerimento AI non disponibile")
		return nil, nil
	}
	return advice, nil
}

// ListAttempts restituisce l'audit trail di trasmissione della fattura.
func (uc *SendInvoiceUseCase) ListAttempts(ctx context.Context, structureID, invoiceID string) ([]*entity.SendAttempt, error) {
	invoice, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}
	if invoice.StructureID != structureID {
		return nil, domain.ErrForbidden
	}
	return uc.attemptRepo.ListByInvoice(ctx, invoiceID)
}
