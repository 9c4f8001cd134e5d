// Package preservation implementa la conservazione sostitutiva delle fatture
// elettroniche: archiviazione decennale a norma con hash di integrità,
// verifica, export e pulizia a fine ritenzione.
package preservation

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/palestra-cloud/gestionale-api/internal/application/ports"
	"github.com/palestra-cloud/gestionale-api/internal/domain"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
	"github.com/palestra-cloud/gestionale-api/pkg/fatturapa"
	"github.com/palestra-cloud/gestionale-api/pkg/logger"
)

// Nomi file dell'archivio di conservazione di una fattura.
const (
	preservationDisk = "preservation"
	fileInvoiceXML   = "fattura.xml"
	fileReceiptXML   = "receipts/ricevuta_sdi.xml"
	fileMetadata     = "metadata.json"
)

// Metadata è il descrittore JSON archiviato accanto agli artefatti. Viene
// scritto prima del calcolo dell'hash, quindi anche i metadati rientrano
// nella verifica di integrità; l'hash vive solo sulla riga della fattura.
// OriginalHash conserva l'hash pre-anonimizzazione quando l'XML viene
// riscritto dal motore GDPR.
type Metadata struct {
	InvoiceID      string      `json:"invoice_id"`
	InvoiceStatus  string      `json:"invoice_status"`
	TransmissionID string      `json:"transmission_id"`
	StructureID    string      `json:"structure_id"`
	StructureName  string      `json:"structure_name"`
	PreservedBy    string      `json:"preserved_by"`
	PreservedAt    time.Time   `json:"preserved_at"`
	ExpiresAt      time.Time   `json:"expires_at"`
	Sale           SaleSummary `json:"sale"`
	OriginalHash   string      `json:"original_hash,omitempty"`
	Compliance     struct {
		RetentionYears int    `json:"retention_years"`
		HashAlgorithm  string `json:"hash_algorithm"` // sempre "sha256"
		Regulation     string `json:"regulation"`
	} `json:"compliance"`
}

// SaleSummary riepilogo della vendita collegata, riportato nei metadati.
type SaleSummary struct {
	Number       string    `json:"number"`
	Date         time.Time `json:"date"`
	CustomerName string    `json:"customer_name"`
	Total        string    `json:"total"` // euro, due decimali
}

// complianceRegulation riferimento normativo riportato nei metadati.
const complianceRegulation = "D.Lgs. 82/2005 (CAD), DPCM 3 dicembre 2013"

// UseCase motore di conservazione sostitutiva.
type UseCase struct {
	invoiceRepo   repository.ElectronicInvoiceRepository
	saleRepo      repository.SaleRepository
	customerRepo  repository.CustomerRepository
	structureRepo repository.StructureRepository
	policyRepo    repository.RetentionPolicyRepository
	storage       ports.Storage
	log           *logger.Logger

	now func() time.Time
}

// NewUseCase costruisce il motore di conservazione.
func NewUseCase(
	invoiceRepo repository.ElectronicInvoiceRepository,
	saleRepo repository.SaleRepository,
	customerRepo repository.CustomerRepository,
	structureRepo repository.StructureRepository,
	policyRepo repository.RetentionPolicyRepository,
	storage ports.Storage,
	log *logger.Logger,
) *UseCase {
	return &UseCase{
		invoiceRepo:   invoiceRepo,
		saleRepo:      saleRepo,
		customerRepo:  customerRepo,
		structureRepo: structureRepo,
		policyRepo:    policyRepo,
		storage:       storage,
		log:           log,
		now:           time.Now,
	}
}

// retentionYears anni di ritenzione della struttura (policy o default di legge).
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

// preservationPath directory di archiviazione della fattura sul disco di
// conservazione, partizionata per anno/mese di creazione della fattura.
func preservationPath(at time.Time, transmissionID string) string {
	return fmt.Sprintf("preservation/electronic_invoices/%d/%02d/%s", at.Year(), int(at.Month()), transmissionID)
}

// Preserve archivia la fattura in conservazione sostitutiva. actor è lo
// UserID dell'operatore, registrato nei metadati.
//
// Precondizioni: stato SDI accepted (domain.ErrInvoiceNotAccepted altrimenti).
// L'operazione è idempotente: una fattura già conservata viene restituita
// senza riarchiviare nulla.
func (uc *UseCase) Preserve(ctx context.Context, structureID, invoiceID, actor string) (*entity.ElectronicInvoice, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if inv.StructureID != structureID {
		return nil, domain.ErrForbidden
	}
	if inv.IsPreserved() {
		return inv, nil
	}
	if inv.SDIStatus != entity.SDIStatusAccepted {
		return nil, fmt.Errorf("%w: stato %s", domain.ErrInvoiceNotAccepted, inv.SDIStatus)
	}

	saleSummary, err := uc.saleSummary(ctx, inv.SaleID)
	if err != nil {
		return nil, err
	}
	structureName := ""
	if structure, err := uc.structureRepo.GetByID(ctx, structureID); err != nil {
		return nil, err
	} else if structure != nil {
		structureName = structure.BusinessName
	}

	years, err := uc.retentionYears(ctx, structureID)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	createdAt := inv.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	basePath := preservationPath(createdAt, inv.TransmissionID)

	// 1) Artefatti: XML della fattura e ricevuta SDI se presente.
	if err := uc.storage.Put(ctx, preservationDisk, basePath+"/"+fileInvoiceXML, []byte(inv.XMLContent)); err != nil {
		return nil, fmt.Errorf("conservazione: scrittura XML: %w", err)
	}
	if inv.SDIReceiptXML != "" {
		if err := uc.storage.Put(ctx, preservationDisk, basePath+"/"+fileReceiptXML, []byte(inv.SDIReceiptXML)); err != nil {
			return nil, fmt.Errorf("conservazione: scrittura ricevuta: %w", err)
		}
	}

	// 2) Metadati con blocco di conformità. Scritti prima dell'hash: anche
	// una loro manomissione deve far fallire la verifica di integrità.
	expiresAt := now.AddDate(years, 0, 0)
	meta := Metadata{
		InvoiceID:      inv.ID,
		InvoiceStatus:  inv.SDIStatus,
		TransmissionID: inv.TransmissionID,
		StructureID:    structureID,
		StructureName:  structureName,
		PreservedBy:    actor,
		PreservedAt:    now,
		ExpiresAt:      expiresAt,
		Sale:           saleSummary,
	}
	meta.Compliance.RetentionYears = years
	meta.Compliance.HashAlgorithm = "sha256"
	meta.Compliance.Regulation = complianceRegulation
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("conservazione: metadati: %w", err)
	}
	if err := uc.storage.Put(ctx, preservationDisk, basePath+"/"+fileMetadata, metaBytes); err != nil {
		return nil, fmt.Errorf("conservazione: scrittura metadati: %w", err)
	}

	// 3) Hash di integrità su tutti i file archiviati, metadati inclusi.
	// L'hash vive solo sulla riga della fattura, mai dentro l'archivio.
	hash, err := uc.computeHash(ctx, basePath)
	if err != nil {
		return nil, err
	}

	// 4) Persistenza sullo stato della fattura.
	inv.PreservedAt = &now
	inv.PreservationHash = hash
	inv.PreservationPath = basePath
	inv.PreservationExpiresAt = &expiresAt
	inv.UpdatedAt = now
	if err := uc.invoiceRepo.UpdatePreservation(ctx, inv); err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("invoice_id", inv.ID).
		Str("path", basePath).
		Str("hash", hash).
		Time("scadenza", expiresAt).
		Msg("fattura in conservazione sostitutiva")
	return inv, nil
}

// saleSummary costruisce il riepilogo della vendita collegata per i metadati.
func (uc *UseCase) saleSummary(ctx context.Context, saleID string) (SaleSummary, error) {
	var summary SaleSummary
	sale, err := uc.saleRepo.GetByID(ctx, saleID)
	if err != nil {
		return summary, err
	}
	if sale == nil {
		return summary, nil
	}
	summary.Number = sale.ProgressiveNumber()
	summary.Date = sale.Date
	summary.Total = fatturapa.EuroString(sale.TotalGrossCents())
	customer, err := uc.customerRepo.GetByID(ctx, sale.CustomerID)
	if err != nil {
		return summary, err
	}
	if customer != nil {
		summary.CustomerName = customer.DisplayName()
	}
	return summary, nil
}

// computeHash calcola il SHA-256 concatenando i byte di ogni file archiviato
// nell'ordine deterministico di AllFiles, metadati compresi.
func (uc *UseCase) computeHash(ctx context.Context, basePath string) (string, error) {
	files, err := uc.storage.AllFiles(ctx, preservationDisk, basePath)
	if err != nil {
		return "", fmt.Errorf("conservazione: elenco file: %w", err)
	}
	h := sha256.New()
	for _, f := range files {
		data, err := uc.storage.Get(ctx, preservationDisk, f)
		if err != nil {
			return "", fmt.Errorf("conservazione: lettura %s: %w", f, err)
		}
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// BatchResult esito di una conservazione batch.
type BatchResult struct {
	Preserved int      `json:"preserved"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

// PreserveBatch conserva tutte le fatture accepted non ancora conservate.
// Un errore su una fattura non interrompe il batch.
func (uc *UseCase) PreserveBatch(ctx context.Context, structureID, actor string, limit int) (*BatchResult, error) {
	if limit <= 0 {
		limit = 100
	}
	invoices, err := uc.invoiceRepo.ListByStatus(ctx, structureID, entity.SDIStatusAccepted, limit)
	if err != nil {
		return nil, err
	}
	result := &BatchResult{}
	for _, inv := range invoices {
		if inv.IsPreserved() {
			result.Skipped++
			continue
		}
		if _, err := uc.Preserve(ctx, structureID, inv.ID, actor); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", inv.ID, err))
			uc.log.Error().Err(err).Str("invoice_id", inv.ID).Msg("conservazione batch fallita")
			continue
		}
		result.Preserved++
	}
	return result, nil
}

// IntegrityReport esito della verifica di integrità di una fattura conservata.
// La verifica non fallisce mai con un errore applicativo: ogni problema è un
// campo del report.
type IntegrityReport struct {
	InvoiceID    string `json:"invoice_id"`
	Valid        bool   `json:"valid"`
	StoredHash   string `json:"stored_hash,omitempty"`
	ComputedHash string `json:"computed_hash,omitempty"`
	Problem      string `json:"problem,omitempty"`
}

// VerifyIntegrity ricalcola l'hash degli artefatti e lo confronta con quello
// registrato. Il confronto usa subtle.ConstantTimeCompare.
func (uc *UseCase) VerifyIntegrity(ctx context.Context, structureID, invoiceID string) (*IntegrityReport, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if inv.StructureID != structureID {
		return nil, domain.ErrForbidden
	}

	report := &IntegrityReport{InvoiceID: invoiceID, StoredHash: inv.PreservationHash}
	if !inv.IsPreserved() {
		report.Problem = "fattura non in conservazione"
		return report, nil
	}
	if inv.PreservationDeletedAt != nil {
		report.Problem = "artefatto fisico eliminato a fine ritenzione"
		return report, nil
	}

	computed, err := uc.computeHash(ctx, inv.PreservationPath)
	if err != nil {
		report.Problem = err.Error()
		return report, nil
	}
	report.ComputedHash = computed
	if subtle.ConstantTimeCompare([]byte(computed), []byte(inv.PreservationHash)) == 1 {
		report.Valid = true
	} else {
		report.Problem = "hash non corrispondente: archivio alterato o corrotto"
		uc.log.Error().
			Str("invoice_id", invoiceID).
			Str("atteso", inv.PreservationHash).
			Str("calcolato", computed).
			Msg("verifica di integrità fallita")
	}
	return report, nil
}

// ExportPeriod produce un archivio ZIP con tutti gli artefatti conservati
// nel periodo (month = 0 per l'intero anno). Periodo vuoto:
// domain.ErrNoInvoicesInPeriod.
func (uc *UseCase) ExportPeriod(ctx context.Context, structureID string, year, month int) ([]byte, string, error) {
	invoices, err := uc.invoiceRepo.ListPreservedInPeriod(ctx, structureID, year, month)
	if err != nil {
		return nil, "", err
	}
	if len(invoices) == 0 {
		return nil, "", domain.ErrNoInvoicesInPeriod
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, inv := range invoices {
		files, err := uc.storage.AllFiles(ctx, preservationDisk, inv.PreservationPath)
		if err != nil {
			return nil, "", fmt.Errorf("export: elenco file %s: %w", inv.TransmissionID, err)
		}
		for _, f := range files {
			data, err := uc.storage.Get(ctx, preservationDisk, f)
			if err != nil {
				return nil, "", fmt.Errorf("export: lettura %s: %w", f, err)
			}
			entryName := inv.TransmissionID + "/" + strings.TrimPrefix(f, inv.PreservationPath+"/")
			fw, err := zw.Create(entryName)
			if err != nil {
				return nil, "", fmt.Errorf("export: creazione voce %s: %w", entryName, err)
			}
			if _, err := fw.Write(data); err != nil {
				return nil, "", fmt.Errorf("export: scrittura %s: %w", entryName, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("export: chiusura archivio: %w", err)
	}

	name := fmt.Sprintf("conservazione_%d.zip", year)
	if month > 0 {
		name = fmt.Sprintf("conservazione_%d_%02d.zip", year, month)
	}
	return buf.Bytes(), name, nil
}

// CleanupResult esito della pulizia di fine ritenzione.
type CleanupResult struct {
	Deleted int      `json:"deleted"`
	Errors  []string `json:"errors,omitempty"`
}

// CleanupOldPreservations elimina gli artefatti fisici delle fatture la cui
// ritenzione è scaduta. La riga in DB resta: preservation_deleted_at marca
// l'avvenuta eliminazione per l'audit.
func (uc *UseCase) CleanupOldPreservations(ctx context.Context, structureID string) (*CleanupResult, error) {
	years, err := uc.retentionYears(ctx, structureID)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	cutoff := now.AddDate(-years, 0, 0)

	invoices, err := uc.invoiceRepo.ListPreservedBefore(ctx, structureID, cutoff)
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{}
	for _, inv := range invoices {
		if err := uc.storage.DeleteDirectory(ctx, preservationDisk, inv.PreservationPath); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", inv.ID, err))
			continue
		}
		inv.PreservationDeletedAt = &now
		inv.UpdatedAt = now
		if err := uc.invoiceRepo.UpdatePreservation(ctx, inv); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", inv.ID, err))
			continue
		}
		result.Deleted++
		uc.log.Info().
			Str("invoice_id", inv.ID).
			Str("path", inv.PreservationPath).
			Msg("artefatto di conservazione eliminato a fine ritenzione")
	}
	return result, nil
}

// Statistics aggregati della conservazione per un anno. Compliance10Years
// diventa vero solo quando la finestra di ritenzione è trascorsa per ogni
// fattura conservata del periodo.
type Statistics struct {
	Year              int   `json:"year"`
	PreservedCount    int   `json:"preserved_count"`
	TotalSizeBytes    int64 `json:"total_size_bytes"`
	Compliance10Years bool  `json:"compliance_10_years"`
}

// GetStatistics conteggio, dimensione e conformità decennale degli archivi
// conservati nell'anno.
func (uc *UseCase) GetStatistics(ctx context.Context, structureID string, year int) (*Statistics, error) {
	invoices, err := uc.invoiceRepo.ListPreservedInPeriod(ctx, structureID, year, 0)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	stats := &Statistics{Year: year, PreservedCount: len(invoices)}
	stats.Compliance10Years = len(invoices) > 0
	for _, inv := range invoices {
		if inv.PreservationExpiresAt == nil || inv.PreservationExpiresAt.After(now) {
			stats.Compliance10Years = false
		}
		files, err := uc.storage.AllFiles(ctx, preservationDisk, inv.PreservationPath)
		if err != nil {
			continue
		}
		for _, f := range files {
			if size, err := uc.storage.Size(ctx, preservationDisk, f); err == nil {
				stats.TotalSizeBytes += size
			}
		}
	}
	return stats, nil
}
