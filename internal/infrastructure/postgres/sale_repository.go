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

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo implementazione di SaleRepository (usabile con pool o tx).
type SaleRepo struct {
	q Querier
}

// NewSaleRepository costruisce l'adattatore. Passare pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

const saleColumns = `id, structure_id, customer_id,
	       progressive_prefix, progressive_value, year, date, type, document_type_code,
	       withholding_tax_cents, withholding_tax_rate_cents, withholding_tax_type,
	       stamp_duty_cents, stamp_duty_applied,
	       welfare_fund_cents, welfare_fund_rate_cents, welfare_fund_taxable_cents, welfare_fund_vat_rate_cents,
	       causale, payment_condition_set, payment_method, first_installment_due_days,
	       original_sale_id, created_at, updated_at`

func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	query := `
		INSERT INTO sales (id, structure_id, customer_id,
			progressive_prefix, progressive_value, year, date, type, document_type_code,
			withholding_tax_cents, withholding_tax_rate_cents, withholding_tax_type,
			stamp_duty_cents, stamp_duty_applied,
			welfare_fund_cents, welfare_fund_rate_cents, welfare_fund_taxable_cents, welfare_fund_vat_rate_cents,
			causale, payment_condition_set, payment_method, first_installment_due_days,
			original_sale_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.StructureID, s.CustomerID,
		s.ProgressivePrefix, s.ProgressiveValue, s.Year, s.Date, s.Type, nullIfEmpty(s.DocumentTypeCode),
		s.WithholdingTaxCents, s.WithholdingTaxRateCents, nullIfEmpty(s.WithholdingTaxType),
		s.StampDutyCents, s.StampDutyApplied,
		s.WelfareFundCents, s.WelfareFundRateCents, s.WelfareFundTaxableCents, s.WelfareFundVATRateCents,
		s.Causale, s.PaymentConditionSet, nullIfEmpty(s.PaymentMethod), s.FirstInstallmentDueDays,
		nullIfEmpty(s.OriginalSaleID), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("numero progressivo già assegnato: %w", err)
		}
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

func (r *SaleRepo) CreateRow(ctx context.Context, row *entity.SaleRow) error {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	query := `
		INSERT INTO sale_rows (id, sale_id, description, quantity,
			unit_price_net_cents, total_net_cents,
			discount_percent_cents, discount_amount_cents, vat_rate_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		row.ID, row.SaleID, row.Description, row.Quantity,
		row.UnitPriceNetCents, row.TotalNetCents,
		row.DiscountPercentCents, row.DiscountAmountCents, row.VATRateID,
	)
	if err != nil {
		return fmt.Errorf("insert sale row: %w", err)
	}
	return nil
}

// GetByID carica la vendita completa di righe e aliquote IVA.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`
	s, err := scanSale(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	rows, err := r.loadRows(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Rows = rows
	return s, nil
}

// loadRows carica le righe della vendita con l'aliquota IVA in join
// (il builder XML ha bisogno di percentuale e natura di ogni riga).
func (r *SaleRepo) loadRows(ctx context.Context, saleID string) ([]*entity.SaleRow, error) {
	query := `
		SELECT sr.id, sr.sale_id, sr.description, sr.quantity,
		       sr.unit_price_net_cents, sr.total_net_cents,
		       sr.discount_percent_cents, sr.discount_amount_cents,
		       vr.id, vr.structure_id, vr.name, vr.percent_cents, COALESCE(vr.nature, '')
		FROM sale_rows sr
		JOIN vat_rates vr ON vr.id = sr.vat_rate_id
		WHERE sr.sale_id = $1
		ORDER BY sr.id`
	rows, err := r.q.Query(ctx, query, saleID)
	if err != nil {
		return nil, fmt.Errorf("list sale rows: %w", err)
	}
	defer rows.Close()
	var list []*entity.SaleRow
	for rows.Next() {
		var sr entity.SaleRow
		var vr entity.VatRate
		if err := rows.Scan(
			&sr.ID, &sr.SaleID, &sr.Description, &sr.Quantity,
			&sr.UnitPriceNetCents, &sr.TotalNetCents,
			&sr.DiscountPercentCents, &sr.DiscountAmountCents,
			&vr.ID, &vr.StructureID, &vr.Name, &vr.PercentCents, &vr.Nature,
		); err != nil {
			return nil, fmt.Errorf("scan sale row: %w", err)
		}
		sr.VATRateID = vr.ID
		sr.VATRate = &vr
		list = append(list, &sr)
	}
	return list, rows.Err()
}

func (r *SaleRepo) Update(ctx context.Context, s *entity.Sale) error {
	query := `
		UPDATE sales
		SET progressive_prefix = $2, progressive_value = $3, year = $4,
		    document_type_code = $5, causale = $6, updated_at = $7
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.ProgressivePrefix, s.ProgressiveValue, s.Year,
		nullIfEmpty(s.DocumentTypeCode), s.Causale, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("numero progressivo già assegnato: %w", err)
		}
		return fmt.Errorf("update sale: %w", err)
	}
	return nil
}

func (r *SaleRepo) ListByStructure(ctx context.Context, structureID string, limit, offset int) ([]*entity.Sale, error) {
	query := `SELECT ` + saleColumns + `
		FROM sales WHERE structure_id = $1
		ORDER BY date DESC, progressive_value DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, structureID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()
	var list []*entity.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// MaxProgressiveForUpdate legge il massimo progressive_value acquisendo un
// lock di scrittura sulle righe candidate. La subquery con FOR UPDATE
// serializza i chiamanti concorrenti dentro la transazione; MAX su zero
// righe restituisce 0 via COALESCE.
func (r *SaleRepo) MaxProgressiveForUpdate(ctx context.Context, year int, structureID, documentTypeCode string) (int, error) {
	query := `
		SELECT COALESCE(MAX(progressive_value), 0) FROM (
			SELECT progressive_value FROM sales
			WHERE year = $1 AND structure_id = $2
			  AND ($3 = '' OR document_type_code = $3)
			FOR UPDATE
		) locked`
	var max int
	if err := r.q.QueryRow(ctx, query, year, structureID, documentTypeCode).Scan(&max); err != nil {
		return 0, fmt.Errorf("max progressive for update: %w", err)
	}
	return max, nil
}

// ListProgressiveValues restituisce i valori emessi nell'anno, ordinati.
func (r *SaleRepo) ListProgressiveValues(ctx context.Context, year int, structureID string) ([]int, error) {
	query := `
		SELECT progressive_value FROM sales
		WHERE year = $1 AND structure_id = $2 AND progressive_value > 0
		ORDER BY progressive_value`
	rows, err := r.q.Query(ctx, query, year, structureID)
	if err != nil {
		return nil, fmt.Errorf("list progressive values: %w", err)
	}
	defer rows.Close()
	var values []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan progressive value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// ListDatedBefore restituisce le vendite con data <= cutoff la cui fattura
// elettronica esiste e non è ancora anonimizzata.
func (r *SaleRepo) ListDatedBefore(ctx context.Context, structureID string, cutoff time.Time) ([]*entity.Sale, error) {
	query := `
		SELECT ` + saleColumnsPrefixed("s") + `
		FROM sales s
		JOIN electronic_invoices ei ON ei.sale_id = s.id
		WHERE s.structure_id = $1 AND s.date <= $2
		  AND ei.anonymized_at IS NULL AND ei.deleted_at IS NULL
		ORDER BY s.date`
	rows, err := r.q.Query(ctx, query, structureID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list sales before cutoff: %w", err)
	}
	defer rows.Close()
	var list []*entity.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// RevenueMetrics aggrega i totali dei documenti emessi nell'intervallo.
// L'IVA si deriva riga per riga come nel calcolo applicativo
// (arrotondamento half-up su imponibile × aliquota); le note di credito
// pesano con segno negativo.
func (r *SaleRepo) RevenueMetrics(ctx context.Context, structureID string, from, to time.Time) (*repository.RevenueMetrics, error) {
	query := `
		SELECT COALESCE(SUM(sgn.sign * sr.total_net_cents), 0),
		       COALESCE(SUM(sgn.sign * ROUND(sr.total_net_cents * vr.percent_cents / 10000.0)), 0),
		       COUNT(DISTINCT s.id)
		FROM sales s
		JOIN sale_rows sr ON sr.sale_id = s.id
		JOIN vat_rates vr ON vr.id = sr.vat_rate_id
		CROSS JOIN LATERAL (SELECT CASE WHEN s.type = 'credit_note' THEN -1 ELSE 1 END AS sign) sgn
		WHERE s.structure_id = $1 AND s.progressive_value > 0
		  AND s.date >= $2 AND s.date <= $3`
	var m repository.RevenueMetrics
	err := r.q.QueryRow(ctx, query, structureID, from, to).Scan(&m.NetCents, &m.VATCents, &m.Documents)
	if err != nil {
		return nil, fmt.Errorf("revenue metrics: %w", err)
	}
	m.GrossCents = m.NetCents + m.VATCents
	return &m, nil
}

func saleColumnsPrefixed(alias string) string {
	return alias + `.id, ` + alias + `.structure_id, ` + alias + `.customer_id,
	       ` + alias + `.progressive_prefix, ` + alias + `.progressive_value, ` + alias + `.year,
	       ` + alias + `.date, ` + alias + `.type, ` + alias + `.document_type_code,
	       ` + alias + `.withholding_tax_cents, ` + alias + `.withholding_tax_rate_cents, ` + alias + `.withholding_tax_type,
	       ` + alias + `.stamp_duty_cents, ` + alias + `.stamp_duty_applied,
	       ` + alias + `.welfare_fund_cents, ` + alias + `.welfare_fund_rate_cents, ` + alias + `.welfare_fund_taxable_cents, ` + alias + `.welfare_fund_vat_rate_cents,
	       ` + alias + `.causale, ` + alias + `.payment_condition_set, ` + alias + `.payment_method, ` + alias + `.first_installment_due_days,
	       ` + alias + `.original_sale_id, ` + alias + `.created_at, ` + alias + `.updated_at`
}

func scanSale(row pgx.Row) (*entity.Sale, error) {
	var s entity.Sale
	var docType, withholdingType, paymentMethod, originalSaleID *string
	err := row.Scan(
		&s.ID, &s.StructureID, &s.CustomerID,
		&s.ProgressivePrefix, &s.ProgressiveValue, &s.Year, &s.Date, &s.Type, &docType,
		&s.WithholdingTaxCents, &s.WithholdingTaxRateCents, &withholdingType,
		&s.StampDutyCents, &s.StampDutyApplied,
		&s.WelfareFundCents, &s.WelfareFundRateCents, &s.WelfareFundTaxableCents, &s.WelfareFundVATRateCents,
		&s.Causale, &s.PaymentConditionSet, &paymentMethod, &s.FirstInstallmentDueDays,
		&originalSaleID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.DocumentTypeCode = derefStr(docType)
	s.WithholdingTaxType = derefStr(withholdingType)
	s.PaymentMethod = derefStr(paymentMethod)
	s.OriginalSaleID = derefStr(originalSaleID)
	return &s, nil
}
