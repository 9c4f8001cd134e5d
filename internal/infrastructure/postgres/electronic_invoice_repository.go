package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
)

var _ repository.ElectronicInvoiceRepository = (*ElectronicInvoiceRepo)(nil)

// ElectronicInvoiceRepo implementazione di ElectronicInvoiceRepository.
// Le fatture non vengono mai cancellate fisicamente: solo soft delete.
type ElectronicInvoiceRepo struct {
	q Querier
}

// NewElectronicInvoiceRepository costruisce l'adattatore. Passare pool o tx (Querier).
func NewElectronicInvoiceRepository(q Querier) *ElectronicInvoiceRepo {
	return &ElectronicInvoiceRepo{q: q}
}

const invoiceColumns = `id, structure_id, sale_id,
	       xml_content, xml_version, transmission_id, transmission_format,
	       sdi_status, sdi_status_updated_at, sdi_external_id, sdi_receipt_xml, sdi_error_messages,
	       xml_file_path, pdf_file_path,
	       preserved_at, preservation_hash, preservation_path, preservation_expires_at, preservation_deleted_at,
	       anonymized_at, anonymized_by,
	       send_attempts, last_send_attempt_at,
	       created_at, updated_at, deleted_at`

func (r *ElectronicInvoiceRepo) Create(ctx context.Context, inv *entity.ElectronicInvoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	query := `
		INSERT INTO electronic_invoices (id, structure_id, sale_id,
			xml_content, xml_version, transmission_id, transmission_format,
			sdi_status, sdi_status_updated_at, xml_file_path, pdf_file_path,
			send_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.StructureID, inv.SaleID,
		inv.XMLContent, inv.XMLVersion, inv.TransmissionID, inv.TransmissionFormat,
		inv.SDIStatus, inv.SDIStatusUpdatedAt,
		nullIfEmpty(inv.XMLFilePath), nullIfEmpty(inv.PDFFilePath),
		inv.SendAttempts, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// collisione su transmission_id o fattura già esistente per la vendita
			return fmt.Errorf("fattura elettronica duplicata: %w", err)
		}
		return fmt.Errorf("insert electronic invoice: %w", err)
	}
	return nil
}

func (r *ElectronicInvoiceRepo) GetByID(ctx context.Context, id string) (*entity.ElectronicInvoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM electronic_invoices WHERE id = $1 AND deleted_at IS NULL`
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get electronic invoice: %w", err)
	}
	return inv, nil
}

func (r *ElectronicInvoiceRepo) GetBySaleID(ctx context.Context, saleID string) (*entity.ElectronicInvoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM electronic_invoices WHERE sale_id = $1 AND deleted_at IS NULL`
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, saleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get electronic invoice by sale: %w", err)
	}
	return inv, nil
}

// Update persiste i campi mutabili del ciclo di vita SDI. Il chiamante ha
// già validato la transizione con entity.CanTransitionSDI.
func (r *ElectronicInvoiceRepo) Update(ctx context.Context, inv *entity.ElectronicInvoice) error {
	query := `
		UPDATE electronic_invoices
		SET xml_content = $2, sdi_status = $3, sdi_status_updated_at = $4,
		    sdi_external_id = COALESCE($5, sdi_external_id),
		    sdi_receipt_xml = COALESCE($6, sdi_receipt_xml),
		    sdi_error_messages = $7,
		    xml_file_path = COALESCE($8, xml_file_path),
		    pdf_file_path = COALESCE($9, pdf_file_path),
		    send_attempts = $10, last_send_attempt_at = $11,
		    updated_at = $12
		WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.XMLContent, inv.SDIStatus, inv.SDIStatusUpdatedAt,
		nullIfEmpty(inv.SDIExternalID), nullIfEmpty(inv.SDIReceiptXML),
		inv.SDIErrorMessages,
		nullIfEmpty(inv.XMLFilePath), nullIfEmpty(inv.PDFFilePath),
		inv.SendAttempts, inv.LastSendAttemptAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update electronic invoice: %w", err)
	}
	return nil
}

// UpdatePreservation persiste i soli campi di conservazione sostitutiva.
func (r *ElectronicInvoiceRepo) UpdatePreservation(ctx context.Context, inv *entity.ElectronicInvoice) error {
	query := `
		UPDATE electronic_invoices
		SET preserved_at = $2, preservation_hash = $3, preservation_path = $4,
		    preservation_expires_at = $5, preservation_deleted_at = $6, updated_at = $7
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.PreservedAt, nullIfEmpty(inv.PreservationHash),
		nullIfEmpty(inv.PreservationPath), inv.PreservationExpiresAt,
		inv.PreservationDeletedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update preservation: %w", err)
	}
	return nil
}

// UpdateAnonymization persiste i campi di anonimizzazione e il nuovo XML
// riscritto: unica eccezione ammessa all'immutabilità del contenuto.
func (r *ElectronicInvoiceRepo) UpdateAnonymization(ctx context.Context, inv *entity.ElectronicInvoice) error {
	query := `
		UPDATE electronic_invoices
		SET xml_content = $2, preservation_hash = $3, pdf_file_path = NULL,
		    anonymized_at = $4, anonymized_by = $5, updated_at = $6
		WHERE id = $1 AND anonymized_at IS NULL`
	tag, err := r.q.Exec(ctx, query,
		inv.ID, inv.XMLContent, nullIfEmpty(inv.PreservationHash),
		inv.AnonymizedAt, nullIfEmpty(inv.AnonymizedBy), inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update anonymization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("anonymization fattura %s: già anonimizzata o inesistente", inv.ID)
	}
	return nil
}

func (r *ElectronicInvoiceRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE electronic_invoices SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.q.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("soft delete electronic invoice: %w", err)
	}
	return nil
}

func (r *ElectronicInvoiceRepo) ListByStatus(ctx context.Context, structureID, status string, limit int) ([]*entity.ElectronicInvoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM electronic_invoices
		WHERE structure_id = $1 AND sdi_status = $2 AND deleted_at IS NULL
		ORDER BY created_at LIMIT $3`
	return r.queryInvoices(ctx, query, structureID, status, limit)
}

// ListPreservedInPeriod restituisce le fatture conservate nell'anno (month=0)
// o nell'anno+mese indicati, tranne quelle con artefatto già eliminato.
func (r *ElectronicInvoiceRepo) ListPreservedInPeriod(ctx context.Context, structureID string, year, month int) ([]*entity.ElectronicInvoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM electronic_invoices
		WHERE structure_id = $1 AND preserved_at IS NOT NULL
		  AND preservation_deleted_at IS NULL AND deleted_at IS NULL
		  AND EXTRACT(YEAR FROM preserved_at) = $2
		  AND ($3 = 0 OR EXTRACT(MONTH FROM preserved_at) = $3)
		ORDER BY preserved_at`
	return r.queryInvoices(ctx, query, structureID, year, month)
}

// ListPreservedBefore restituisce le fatture conservate con created_at
// antecedente al cutoff e artefatto fisico ancora presente.
func (r *ElectronicInvoiceRepo) ListPreservedBefore(ctx context.Context, structureID string, cutoff time.Time) ([]*entity.ElectronicInvoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM electronic_invoices
		WHERE structure_id = $1 AND preserved_at IS NOT NULL
		  AND preservation_deleted_at IS NULL AND deleted_at IS NULL
		  AND created_at < $2
		ORDER BY created_at`
	return r.queryInvoices(ctx, query, structureID, cutoff)
}

// CountOtherLiveByCustomer conta le fatture non anonimizzate di altre
// vendite dello stesso cliente. Va chiamata nella stessa transazione della
// mutazione di anonimizzazione.
func (r *ElectronicInvoiceRepo) CountOtherLiveByCustomer(ctx context.Context, customerID, excludeInvoiceID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM electronic_invoices ei
		JOIN sales s ON s.id = ei.sale_id
		WHERE s.customer_id = $1 AND ei.id <> $2
		  AND ei.anonymized_at IS NULL AND ei.deleted_at IS NULL`
	var n int
	if err := r.q.QueryRow(ctx, query, customerID, excludeInvoiceID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count live invoices by customer: %w", err)
	}
	return n, nil
}

// SaveExternalLookup registra la mappa external_id -> struttura/fattura per
// instradare i webhook di stato in ingresso. Idempotente sullo stesso external_id.
func (r *ElectronicInvoiceRepo) SaveExternalLookup(ctx context.Context, externalID, structureID, invoiceID string) error {
	query := `
		INSERT INTO sdi_external_lookups (external_id, structure_id, invoice_id, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (external_id) DO UPDATE SET structure_id = $2, invoice_id = $3`
	_, err := r.q.Exec(ctx, query, externalID, structureID, invoiceID)
	if err != nil {
		return fmt.Errorf("save external lookup: %w", err)
	}
	return nil
}

func (r *ElectronicInvoiceRepo) ResolveExternalLookup(ctx context.Context, externalID string) (string, string, error) {
	query := `SELECT structure_id, invoice_id FROM sdi_external_lookups WHERE external_id = $1`
	var structureID, invoiceID string
	err := r.q.QueryRow(ctx, query, externalID).Scan(&structureID, &invoiceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", nil
		}
		return "", "", fmt.Errorf("resolve external lookup: %w", err)
	}
	return structureID, invoiceID, nil
}

// RetentionStats aggrega i contatori della dashboard GDPR in una sola query.
// La scadenza si calcola dalla data della vendita + anni di ritenzione.
func (r *ElectronicInvoiceRepo) RetentionStats(ctx context.Context, structureID string, retentionYears int, now time.Time) (*repository.RetentionStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE ei.anonymized_at IS NULL
		                          AND s.date + ($2 || ' years')::interval <= $3),
		       COUNT(*) FILTER (WHERE ei.anonymized_at IS NULL
		                          AND s.date + ($2 || ' years')::interval > $3
		                          AND s.date + ($2 || ' years')::interval <= $3 + interval '3 months'),
		       COUNT(*) FILTER (WHERE ei.anonymized_at IS NOT NULL)
		FROM electronic_invoices ei
		JOIN sales s ON s.id = ei.sale_id
		WHERE ei.structure_id = $1 AND ei.deleted_at IS NULL`
	var stats repository.RetentionStats
	err := r.q.QueryRow(ctx, query, structureID, retentionYears, now).Scan(
		&stats.Total, &stats.ExpiredNotAnonymized, &stats.NearExpiry, &stats.Anonymized,
	)
	if err != nil {
		return nil, fmt.Errorf("retention stats: %w", err)
	}
	return &stats, nil
}

func (r *ElectronicInvoiceRepo) CountBySDIStatus(ctx context.Context, structureID string, from, to time.Time) (map[string]int, error) {
	query := `
		SELECT sdi_status, COUNT(*)
		FROM electronic_invoices
		WHERE structure_id = $1 AND deleted_at IS NULL
		  AND created_at >= $2 AND created_at <= $3
		GROUP BY sdi_status`
	rows, err := r.q.Query(ctx, query, structureID, from, to)
	if err != nil {
		return nil, fmt.Errorf("count by sdi status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan sdi status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *ElectronicInvoiceRepo) queryInvoices(ctx context.Context, query string, args ...any) ([]*entity.ElectronicInvoice, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list electronic invoices: %w", err)
	}
	defer rows.Close()
	var list []*entity.ElectronicInvoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan electronic invoice: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

func scanInvoice(row pgx.Row) (*entity.ElectronicInvoice, error) {
	var inv entity.ElectronicInvoice
	var externalID, receiptXML, xmlPath, pdfPath *string
	var preservationHash, preservationPath, anonymizedBy *string
	err := row.Scan(
		&inv.ID, &inv.StructureID, &inv.SaleID,
		&inv.XMLContent, &inv.XMLVersion, &inv.TransmissionID, &inv.TransmissionFormat,
		&inv.SDIStatus, &inv.SDIStatusUpdatedAt, &externalID, &receiptXML, &inv.SDIErrorMessages,
		&xmlPath, &pdfPath,
		&inv.PreservedAt, &preservationHash, &preservationPath,
		&inv.PreservationExpiresAt, &inv.PreservationDeletedAt,
		&inv.AnonymizedAt, &anonymizedBy,
		&inv.SendAttempts, &inv.LastSendAttemptAt,
		&inv.CreatedAt, &inv.UpdatedAt, &inv.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.SDIExternalID = derefStr(externalID)
	inv.SDIReceiptXML = derefStr(receiptXML)
	inv.XMLFilePath = derefStr(xmlPath)
	inv.PDFFilePath = derefStr(pdfPath)
	inv.PreservationHash = derefStr(preservationHash)
	inv.PreservationPath = derefStr(preservationPath)
	inv.AnonymizedBy = derefStr(anonymizedBy)
	return &inv, nil
}
