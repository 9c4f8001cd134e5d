package repository

import (
	"context"

	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
)

// RetentionPolicyRepository definisce la porta per le policy di ritenzione.
type RetentionPolicyRepository interface {
	Create(ctx context.Context, p *entity.DataRetentionPolicy) error
	// GetByStructure restituisce la policy della struttura, nil se assente
	// (il chiamante applica i default di legge).
	GetByStructure(ctx context.Context, structureID string) (*entity.DataRetentionPolicy, error)
	Update(ctx context.Context, p *entity.DataRetentionPolicy) error
}
