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

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

// CustomerRepo implementazione di CustomerRepository (usabile con pool o tx).
type CustomerRepo struct {
	q Querier
}

// NewCustomerRepository costruisce l'adattatore. Passare pool o tx (Querier).
func NewCustomerRepository(q Querier) *CustomerRepo {
	return &CustomerRepo{q: q}
}

const customerColumns = `id, structure_id, first_name, last_name, company_name,
	       vat_number, tax_code, foreign_tax_id, recipient_code, pec,
	       email, phone, address, street_number, postal_code, city, province, country,
	       anonymized_at, created_at, updated_at`

func (r *CustomerRepo) Create(ctx context.Context, c *entity.Customer) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	query := `
		INSERT INTO customers (id, structure_id, first_name, last_name, company_name,
			vat_number, tax_code, foreign_tax_id, recipient_code, pec,
			email, phone, address, street_number, postal_code, city, province, country,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.StructureID, c.FirstName, c.LastName, nullIfEmpty(c.CompanyName),
		nullIfEmpty(c.VATNumber), nullIfEmpty(c.TaxCode), nullIfEmpty(c.ForeignTaxID),
		nullIfEmpty(c.RecipientCode), nullIfEmpty(c.PEC),
		c.Email, c.Phone, c.Address, c.StreetNumber, c.PostalCode, c.City, c.Province, c.Country,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	c, err := scanCustomer(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (r *CustomerRepo) ListByStructure(ctx context.Context, structureID string, limit, offset int) ([]*entity.Customer, error) {
	query := `SELECT ` + customerColumns + `
		FROM customers WHERE structure_id = $1
		ORDER BY last_name, first_name LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, structureID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()
	var list []*entity.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *CustomerRepo) Update(ctx context.Context, c *entity.Customer) error {
	query := `
		UPDATE customers
		SET first_name = $2, last_name = $3, company_name = $4,
		    vat_number = $5, tax_code = $6, foreign_tax_id = $7,
		    recipient_code = $8, pec = $9, email = $10, phone = $11,
		    address = $12, street_number = $13, postal_code = $14,
		    city = $15, province = $16, country = $17, updated_at = $18
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.FirstName, c.LastName, nullIfEmpty(c.CompanyName),
		nullIfEmpty(c.VATNumber), nullIfEmpty(c.TaxCode), nullIfEmpty(c.ForeignTaxID),
		nullIfEmpty(c.RecipientCode), nullIfEmpty(c.PEC), c.Email, c.Phone,
		c.Address, c.StreetNumber, c.PostalCode, c.City, c.Province, c.Country,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	return nil
}

// Anonymize sovrascrive i campi identificativi con i placeholder già
// impostati sull'entità e valorizza anonymized_at. Irreversibile.
func (r *CustomerRepo) Anonymize(ctx context.Context, c *entity.Customer) error {
	query := `
		UPDATE customers
		SET first_name = $2, last_name = $3, company_name = $4,
		    vat_number = $5, tax_code = $6, foreign_tax_id = NULL,
		    recipient_code = NULL, pec = NULL, email = $7, phone = $8,
		    address = $9, street_number = '', postal_code = '',
		    city = '', province = '', anonymized_at = $10, updated_at = $10
		WHERE id = $1 AND anonymized_at IS NULL`
	tag, err := r.q.Exec(ctx, query,
		c.ID, c.FirstName, c.LastName, nullIfEmpty(c.CompanyName),
		nullIfEmpty(c.VATNumber), nullIfEmpty(c.TaxCode),
		c.Email, c.Phone, c.Address, c.AnonymizedAt,
	)
	if err != nil {
		return fmt.Errorf("anonymize customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("anonymize customer %s: già anonimizzato o inesistente", c.ID)
	}
	return nil
}

func scanCustomer(row pgx.Row) (*entity.Customer, error) {
	var c entity.Customer
	var companyName, vat, taxCode, foreignTaxID, recipientCode, pec *string
	err := row.Scan(
		&c.ID, &c.StructureID, &c.FirstName, &c.LastName, &companyName,
		&vat, &taxCode, &foreignTaxID, &recipientCode, &pec,
		&c.Email, &c.Phone, &c.Address, &c.StreetNumber, &c.PostalCode,
		&c.City, &c.Province, &c.Country,
		&c.AnonymizedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.CompanyName = derefStr(companyName)
	c.VATNumber = derefStr(vat)
	c.TaxCode = derefStr(taxCode)
	c.ForeignTaxID = derefStr(foreignTaxID)
	c.RecipientCode = derefStr(recipientCode)
	c.PEC = derefStr(pec)
	return &c, nil
}
