// Package retention implementa il motore GDPR: anonimizzazione delle fatture
// a fine ritenzione fiscale, gestione delle policy e dashboard di conformità.
package retention

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/palestra-cloud/gestionale-api/internal/application/ports"
	"github.com/palestra-cloud/gestionale-api/internal/domain"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
	"github.com/palestra-cloud/gestionale-api/pkg/logger"
)

// TxRunner esegue una funzione dentro una transazione con i repo del motore
// GDPR. La verifica cliente-condiviso e la mutazione devono stare nella
// stessa transazione.
type TxRunner interface {
	RunRetention(ctx context.Context, fn func(
		invoiceRepo repository.ElectronicInvoiceRepository,
		customerRepo repository.CustomerRepository,
		saleRepo repository.SaleRepository,
	) error) error
}

// Anonymizer riscrive l'XML sostituendo i dati personali del cessionario
// con placeholder. Implementato dall'anonimizzatore XML dell'infrastruttura.
type Anonymizer interface {
	Anonymize(xmlContent []byte) ([]byte, error)
}

// Placeholder applicati all'anagrafica cliente. I codici fiscali mantengono
// la forma del dato originale per non rompere i tracciati di audit.
const (
	placeholderName        = "ANONIMIZZATO"
	placeholderCompany     = "DATO ANONIMIZZATO"
	placeholderVAT         = "00000000000"
	placeholderTaxCode     = "AAAAAA00A00A000A"
	placeholderEmailDomain = "@anonimo.invalid"
)

// UseCase motore di anonimizzazione e conformità GDPR.
type UseCase struct {
	txRunner    TxRunner
	invoiceRepo repository.ElectronicInvoiceRepository
	saleRepo    repository.SaleRepository
	policyRepo  repository.RetentionPolicyRepository
	anonymizer  Anonymizer
	storage     ports.Storage
	log         *logger.Logger

	now func() time.Time
}

// NewUseCase costruisce il motore GDPR.
func NewUseCase(
	txRunner TxRunner,
	invoiceRepo repository.ElectronicInvoiceRepository,
	saleRepo repository.SaleRepository,
	policyRepo repository.RetentionPolicyRepository,
	anonymizer Anonymizer,
	storage ports.Storage,
	log *logger.Logger,
) *UseCase {
	return &UseCase{
		txRunner:    txRunner,
		invoiceRepo: invoiceRepo,
		saleRepo:    saleRepo,
		policyRepo:  policyRepo,
		anonymizer:  anonymizer,
		storage:     storage,
		log:         log,
		now:         time.Now,
	}
}

func (uc *UseCase) retentionYears(ctx context.Context, structureID string) (int, error) {
	policy, err := uc.policyRepo.GetByStructure(ctx, structureID)
	if err != nil {
		return 0, err
	}
	if policy == nil || policy.FiscalRetentionYears <= 0 {
		return entity.DefaultRetentionYears, nil
	}
	return policy.FiscalRetentionYears, nil
}

// AnonymizeReport esito di un giro di anonimizzazione.
type AnonymizeReport struct {
	DryRun     bool     `json:"dry_run"`
	Candidates int      `json:"candidates"`
	Anonymized int      `json:"anonymized"`
	Customers  int      `json:"customers_anonymized"`
	Skipped    int      `json:"skipped"`
	Errors     []string `json:"errors,omitempty"`
}

// AnonymizeExpiredInvoices anonimizza tutte le fatture la cui ritenzione
// fiscale è scaduta. Con dryRun il giro è di sola lettura: conta i candidati
// senza mutare nulla. Ogni fattura viene processata in una transazione
// indipendente: un errore su una non blocca le altre.
func (uc *UseCase) AnonymizeExpiredInvoices(ctx context.Context, structureID, actor string, dryRun bool) (*AnonymizeReport, error) {
	years, err := uc.retentionYears(ctx, structureID)
	if err != nil {
		return nil, err
	}
	cutoff := uc.now().AddDate(-years, 0, 0)

	sales, err := uc.saleRepo.ListDatedBefore(ctx, structureID, cutoff)
	if err != nil {
		return nil, err
	}

	report := &AnonymizeReport{DryRun: dryRun, Candidates: len(sales)}
	if dryRun {
		return report, nil
	}

	for _, sale := range sales {
		customerDone, err := uc.anonymizeSale(ctx, structureID, sale, actor)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", sale.ID, err))
			uc.log.Error().Err(err).Str("sale_id", sale.ID).Msg("anonimizzazione fallita")
			continue
		}
		report.Anonymized++
		if customerDone {
			report.Customers++
		}
	}
	report.Skipped = report.Candidates - report.Anonymized - len(report.Errors)
	return report, nil
}

// AnonymizeInvoice anonimizza una singola fattura su richiesta esplicita
// (diritto all'oblio), senza attendere la scadenza della ritenzione.
func (uc *UseCase) AnonymizeInvoice(ctx context.Context, structureID, invoiceID, actor string) error {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv == nil {
		return domain.ErrNotFound
	}
	if inv.StructureID != structureID {
		return domain.ErrForbidden
	}
	if inv.IsAnonymized() {
		return domain.ErrAlreadyAnonymized
	}
	sale, err := uc.saleRepo.GetByID(ctx, inv.SaleID)
	if err != nil {
		return err
	}
	if sale == nil {
		return domain.ErrNotFound
	}
	_, err = uc.anonymizeSale(ctx, structureID, sale, actor)
	return err
}

// anonymizeSale esegue l'anonimizzazione della fattura della vendita in una
// transazione. Restituisce true se anche il cliente è stato anonimizzato
// (nessun'altra fattura viva lo referenzia).
func (uc *UseCase) anonymizeSale(ctx context.Context, structureID string, sale *entity.Sale, actor string) (bool, error) {
	customerAnonymized := false
	var anonymizedInv *entity.ElectronicInvoice

	err := uc.txRunner.RunRetention(ctx, func(
		invoiceRepo repository.ElectronicInvoiceRepository,
		customerRepo repository.CustomerRepository,
		_ repository.SaleRepository,
	) error {
		inv, err := invoiceRepo.GetBySaleID(ctx, sale.ID)
		if err != nil {
			return err
		}
		if inv == nil {
			return domain.ErrNotFound
		}
		if inv.IsAnonymized() {
			return domain.ErrAlreadyAnonymized
		}

		// 1) Riscrittura XML: i dati del cessionario diventano placeholder.
		rewritten, err := uc.anonymizer.Anonymize([]byte(inv.XMLContent))
		if err != nil {
			return fmt.Errorf("riscrittura XML: %w", err)
		}

		now := uc.now()
		originalHash := inv.PreservationHash

		inv.XMLContent = string(rewritten)
		inv.AnonymizedAt = &now
		inv.AnonymizedBy = actor
		inv.UpdatedAt = now

		// 2) Se conservata, riallineare l'artefatto e ricalcolare l'hash;
		// l'hash originale resta nei metadati per l'audit.
		if inv.IsPreserved() && inv.PreservationDeletedAt == nil {
			newHash, err := uc.rewritePreservedArtifacts(ctx, inv, rewritten, originalHash, now)
			if err != nil {
				return err
			}
			inv.PreservationHash = newHash
		}

		// 3) Copia di cortesia PDF: eliminata, conteneva dati personali.
		if inv.PDFFilePath != "" {
			if err := uc.storage.Delete(ctx, "local", inv.PDFFilePath); err != nil {
				return fmt.Errorf("eliminazione PDF: %w", err)
			}
			inv.PDFFilePath = ""
		}

		if err := invoiceRepo.UpdateAnonymization(ctx, inv); err != nil {
			return err
		}
		anonymizedInv = inv

		// 4) Cliente condiviso: anonimizzare l'anagrafica solo se nessuna
		// altra fattura viva lo referenzia. Il conteggio avviene in questa
		// stessa transazione.
		others, err := invoiceRepo.CountOtherLiveByCustomer(ctx, sale.CustomerID, inv.ID)
		if err != nil {
			return err
		}
		if others == 0 {
			customer, err := customerRepo.GetByID(ctx, sale.CustomerID)
			if err != nil {
				return err
			}
			if customer != nil && customer.AnonymizedAt == nil {
				customer.FirstName = placeholderName
				customer.LastName = placeholderName
				if customer.CompanyName != "" {
					customer.CompanyName = placeholderCompany
				}
				customer.Email = "anonimizzato." + customer.ID + placeholderEmailDomain
				if customer.VATNumber != "" {
					customer.VATNumber = placeholderVAT
				}
				if customer.TaxCode != "" {
					customer.TaxCode = placeholderTaxCode
				}
				customer.Phone = ""
				customer.Address = ""
				customer.AnonymizedAt = &now
				if err := customerRepo.Anonymize(ctx, customer); err != nil {
					return err
				}
				customerAnonymized = true
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	uc.log.Info().
		Str("invoice_id", anonymizedInv.ID).
		Str("sale_id", sale.ID).
		Bool("cliente_anonimizzato", customerAnonymized).
		Str("operatore", actor).
		Msg("fattura anonimizzata")
	return customerAnonymized, nil
}

// rewritePreservedArtifacts sovrascrive l'XML conservato con la versione
// anonimizzata, registra l'hash pre-anonimizzazione nei metadati e ricalcola
// l'hash su tutti i file archiviati, metadati inclusi.
func (uc *UseCase) rewritePreservedArtifacts(ctx context.Context, inv *entity.ElectronicInvoice, rewritten []byte, originalHash string, now time.Time) (string, error) {
	const disk = "preservation"
	xmlPath := inv.PreservationPath + "/fattura.xml"
	if err := uc.storage.Put(ctx, disk, xmlPath, rewritten); err != nil {
		return "", fmt.Errorf("riscrittura artefatto conservato: %w", err)
	}

	// Metadati aggiornati prima del ricalcolo: rientrano anch'essi nell'hash.
	metaPath := inv.PreservationPath + "/metadata.json"
	if metaBytes, err := uc.storage.Get(ctx, disk, metaPath); err == nil {
		var meta map[string]any
		if json.Unmarshal(metaBytes, &meta) == nil {
			meta["original_hash"] = originalHash
			meta["anonymized_at"] = now
			// L'hash corrente vive solo sulla riga della fattura.
			delete(meta, "hash")
			updated, err := json.MarshalIndent(meta, "", "  ")
			if err != nil {
				return "", fmt.Errorf("metadati conservazione: %w", err)
			}
			if err := uc.storage.Put(ctx, disk, metaPath, updated); err != nil {
				return "", fmt.Errorf("metadati conservazione: %w", err)
			}
		}
	}

	files, err := uc.storage.AllFiles(ctx, disk, inv.PreservationPath)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, f := range files {
		data, err := uc.storage.Get(ctx, disk, f)
		if err != nil {
			return "", err
		}
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Dashboard esito della dashboard di conformità GDPR.
type Dashboard struct {
	Total                int     `json:"total"`
	Anonymized           int     `json:"anonymized"`
	ExpiredNotAnonymized int     `json:"expired_not_anonymized"`
	NearExpiry           int     `json:"near_expiry"`
	CompliancePercent    float64 `json:"compliance_percent"`
	ComplianceLevel      string  `json:"compliance_level"` // compliant | warning | critical
	RetentionYears       int     `json:"retention_years"`
}

// GetRetentionDashboard calcola i contatori di conformità. Il livello è
// compliant al 100% di copertura delle scadute, warning da 90%, critical sotto.
func (uc *UseCase) GetRetentionDashboard(ctx context.Context, structureID string) (*Dashboard, error) {
	years, err := uc.retentionYears(ctx, structureID)
	if err != nil {
		return nil, err
	}
	stats, err := uc.invoiceRepo.RetentionStats(ctx, structureID, years, uc.now())
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		Total:                stats.Total,
		Anonymized:           stats.Anonymized,
		ExpiredNotAnonymized: stats.ExpiredNotAnonymized,
		NearExpiry:           stats.NearExpiry,
		RetentionYears:       years,
	}
	expiredTotal := stats.ExpiredNotAnonymized + stats.Anonymized
	if expiredTotal == 0 {
		d.CompliancePercent = 100
	} else {
		d.CompliancePercent = float64(stats.Anonymized) / float64(expiredTotal) * 100
	}
	switch {
	case d.CompliancePercent >= 100:
		d.ComplianceLevel = "compliant"
	case d.CompliancePercent >= 90:
		d.ComplianceLevel = "warning"
	default:
		d.ComplianceLevel = "critical"
	}
	return d, nil
}

// GetPolicy restituisce la policy di ritenzione, con i default di legge se
// non ancora configurata.
func (uc *UseCase) GetPolicy(ctx context.Context, structureID string) (*entity.DataRetentionPolicy, error) {
	policy, err := uc.policyRepo.GetByStructure(ctx, structureID)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return &entity.DataRetentionPolicy{
			StructureID:          structureID,
			FiscalRetentionYears: entity.DefaultRetentionYears,
			NotifyMonthsBefore:   3,
		}, nil
	}
	return policy, nil
}

// UpdatePolicy crea o aggiorna la policy. La ritenzione non può scendere
// sotto il minimo di legge.
func (uc *UseCase) UpdatePolicy(ctx context.Context, structureID string, years int, autoAnonymize bool, notifyMonths int) (*entity.DataRetentionPolicy, error) {
	if years < entity.DefaultRetentionYears {
		return nil, fmt.Errorf("%w: ritenzione minima %d anni", domain.ErrInvalidInput, entity.DefaultRetentionYears)
	}
	now := uc.now()
	policy, err := uc.policyRepo.GetByStructure(ctx, structureID)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		policy = &entity.DataRetentionPolicy{
			StructureID:          structureID,
			FiscalRetentionYears: years,
			AutoAnonymize:        autoAnonymize,
			NotifyMonthsBefore:   notifyMonths,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := uc.policyRepo.Create(ctx, policy); err != nil {
			return nil, err
		}
		return policy, nil
	}
	policy.FiscalRetentionYears = years
	policy.AutoAnonymize = autoAnonymize
	policy.NotifyMonthsBefore = notifyMonths
	policy.UpdatedAt = now
	if err := uc.policyRepo.Update(ctx, policy); err != nil {
		return nil, err
	}
	return policy, nil
}
