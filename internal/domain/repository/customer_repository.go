package repository

import (
	"context"

	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
)

// CustomerRepository definisce la porta di persistenza per Customer.
type CustomerRepository interface {
	Create(ctx context.Context, c *entity.Customer) error
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
	ListByStructure(ctx context.Context, structureID string, limit, offset int) ([]*entity.Customer, error)
	Update(ctx context.Context, c *entity.Customer) error
	// Anonymize sovrascrive in place i campi identificativi del cliente con i
	// placeholder passati e valorizza anonymized_at. Irreversibile.
	Anonymize(ctx context.Context, c *entity.Customer) error
}
