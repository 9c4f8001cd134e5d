package repository

import (
	"context"

	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
)

// UserRepository definisce la porta di persistenza per User.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}
