package repository

import (
	"context"

	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
)

// StructureRepository definisce la porta di persistenza per Structure.
type StructureRepository interface {
	Create(ctx context.Context, s *entity.Structure) error
	GetByID(ctx context.Context, id string) (*entity.Structure, error)
	List(ctx context.Context) ([]*entity.Structure, error)
	Update(ctx context.Context, s *entity.Structure) error
	// GetActiveModules restituisce i nomi dei moduli attivi della struttura.
	GetActiveModules(ctx context.Context, structureID string) ([]string, error)
}
