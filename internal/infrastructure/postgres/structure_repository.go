package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
)

var _ repository.StructureRepository = (*StructureRepo)(nil)

// StructureRepo implementazione di StructureRepository (usabile con pool o tx).
type StructureRepo struct {
	q Querier
}

// NewStructureRepository costruisce l'adattatore. Passare pool o tx (Querier).
func NewStructureRepository(q Querier) *StructureRepo {
	return &StructureRepo{q: q}
}

const structureColumns = `id, business_name, vat_number, tax_code, fiscal_regime,
	       address, street_number, postal_code, city, province, country,
	       phone, email, pec, status, created_at, updated_at`

func (r *StructureRepo) Create(ctx context.Context, s *entity.Structure) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	query := `
		INSERT INTO structures (id, business_name, vat_number, tax_code, fiscal_regime,
			address, street_number, postal_code, city, province, country,
			phone, email, pec, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.BusinessName, nullIfEmpty(s.VATNumber), nullIfEmpty(s.TaxCode), s.FiscalRegime,
		s.Address, s.StreetNumber, s.PostalCode, s.City, s.Province, s.Country,
		s.Phone, s.Email, nullIfEmpty(s.PEC), s.Status, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("partita IVA già registrata: %w", err)
		}
		return fmt.Errorf("insert structure: %w", err)
	}
	return nil
}

func (r *StructureRepo) GetByID(ctx context.Context, id string) (*entity.Structure, error) {
	query := `SELECT ` + structureColumns + ` FROM structures WHERE id = $1`
	s, err := scanStructure(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get structure: %w", err)
	}
	return s, nil
}

func (r *StructureRepo) List(ctx context.Context) ([]*entity.Structure, error) {
	query := `SELECT ` + structureColumns + ` FROM structures ORDER BY business_name`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list structures: %w", err)
	}
	defer rows.Close()
	var list []*entity.Structure
	for rows.Next() {
		s, err := scanStructure(rows)
		if err != nil {
			return nil, fmt.Errorf("scan structure: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *StructureRepo) Update(ctx context.Context, s *entity.Structure) error {
	query := `
		UPDATE structures
		SET business_name = $2, vat_number = $3, tax_code = $4, fiscal_regime = $5,
		    address = $6, street_number = $7, postal_code = $8, city = $9,
		    province = $10, country = $11, phone = $12, email = $13, pec = $14,
		    status = $15, updated_at = $16
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.BusinessName, nullIfEmpty(s.VATNumber), nullIfEmpty(s.TaxCode), s.FiscalRegime,
		s.Address, s.StreetNumber, s.PostalCode, s.City, s.Province, s.Country,
		s.Phone, s.Email, nullIfEmpty(s.PEC), s.Status, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update structure: %w", err)
	}
	return nil
}

// GetActiveModules restituisce i nomi dei moduli attivi e non scaduti.
func (r *StructureRepo) GetActiveModules(ctx context.Context, structureID string) ([]string, error) {
	query := `
		SELECT module_name FROM structure_modules
		WHERE structure_id = $1 AND is_active = TRUE
		  AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY module_name`
	rows, err := r.q.Query(ctx, query, structureID)
	if err != nil {
		return nil, fmt.Errorf("list active modules: %w", err)
	}
	defer rows.Close()
	var modules []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

func scanStructure(row pgx.Row) (*entity.Structure, error) {
	var s entity.Structure
	var vat, taxCode, pec *string
	err := row.Scan(
		&s.ID, &s.BusinessName, &vat, &taxCode, &s.FiscalRegime,
		&s.Address, &s.StreetNumber, &s.PostalCode, &s.City, &s.Province, &s.Country,
		&s.Phone, &s.Email, &pec, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.VATNumber = derefStr(vat)
	s.TaxCode = derefStr(taxCode)
	s.PEC = derefStr(pec)
	return &s, nil
}
