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

var _ repository.RetentionPolicyRepository = (*RetentionPolicyRepo)(nil)

// RetentionPolicyRepo implementazione di RetentionPolicyRepository.
type RetentionPolicyRepo struct {
	q Querier
}

// NewRetentionPolicyRepository costruisce l'adattatore. Passare pool o tx (Querier).
func NewRetentionPolicyRepository(q Querier) *RetentionPolicyRepo {
	return &RetentionPolicyRepo{q: q}
}

func (r *RetentionPolicyRepo) Create(ctx context.Context, p *entity.DataRetentionPolicy) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	query := `
		INSERT INTO data_retention_policies
			(id, structure_id, fiscal_retention_years, auto_anonymize, notify_months_before, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.StructureID, p.FiscalRetentionYears, p.AutoAnonymize,
		p.NotifyMonthsBefore, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("policy già presente per la struttura: %w", err)
		}
		return fmt.Errorf("insert retention policy: %w", err)
	}
	return nil
}

// GetByStructure restituisce la policy della struttura, nil se assente.
func (r *RetentionPolicyRepo) GetByStructure(ctx context.Context, structureID string) (*entity.DataRetentionPolicy, error) {
	query := `
		SELECT id, structure_id, fiscal_retention_years, auto_anonymize, notify_months_before, created_at, updated_at
		FROM data_retention_policies WHERE structure_id = $1`
	var p entity.DataRetentionPolicy
	err := r.q.QueryRow(ctx, query, structureID).Scan(
		&p.ID, &p.StructureID, &p.FiscalRetentionYears, &p.AutoAnonymize,
		&p.NotifyMonthsBefore, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get retention policy: %w", err)
	}
	return &p, nil
}

func (r *RetentionPolicyRepo) Update(ctx context.Context, p *entity.DataRetentionPolicy) error {
	query := `
		UPDATE data_retention_policies
		SET fiscal_retention_years = $2, auto_anonymize = $3, notify_months_before = $4, updated_at = $5
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.FiscalRetentionYears, p.AutoAnonymize, p.NotifyMonthsBefore, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update retention policy: %w", err)
	}
	return nil
}
