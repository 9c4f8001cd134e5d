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

var _ repository.VatRateRepository = (*VatRateRepo)(nil)

// VatRateRepo implementazione di VatRateRepository.
type VatRateRepo struct {
	q Querier
}

// NewVatRateRepository costruisce l'adattatore. Passare pool o tx (Querier).
func NewVatRateRepository(q Querier) *VatRateRepo {
	return &VatRateRepo{q: q}
}

func (r *VatRateRepo) Create(ctx context.Context, v *entity.VatRate) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	query := `
		INSERT INTO vat_rates (id, structure_id, name, percent_cents, nature, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		v.ID, v.StructureID, v.Name, v.PercentCents, nullIfEmpty(v.Nature),
		v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert vat rate: %w", err)
	}
	return nil
}

func (r *VatRateRepo) GetByID(ctx context.Context, id string) (*entity.VatRate, error) {
	query := `
		SELECT id, structure_id, name, percent_cents, COALESCE(nature, ''), created_at, updated_at
		FROM vat_rates WHERE id = $1`
	var v entity.VatRate
	err := r.q.QueryRow(ctx, query, id).Scan(
		&v.ID, &v.StructureID, &v.Name, &v.PercentCents, &v.Nature, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get vat rate: %w", err)
	}
	return &v, nil
}

func (r *VatRateRepo) ListByStructure(ctx context.Context, structureID string) ([]*entity.VatRate, error) {
	query := `
		SELECT id, structure_id, name, percent_cents, COALESCE(nature, ''), created_at, updated_at
		FROM vat_rates WHERE structure_id = $1 ORDER BY percent_cents DESC`
	rows, err := r.q.Query(ctx, query, structureID)
	if err != nil {
		return nil, fmt.Errorf("list vat rates: %w", err)
	}
	defer rows.Close()
	var list []*entity.VatRate
	for rows.Next() {
		var v entity.VatRate
		if err := rows.Scan(&v.ID, &v.StructureID, &v.Name, &v.PercentCents, &v.Nature, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan vat rate: %w", err)
		}
		list = append(list, &v)
	}
	return list, rows.Err()
}
