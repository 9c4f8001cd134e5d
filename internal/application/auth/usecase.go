// Package auth implementa registrazione e login degli utenti di struttura.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
	"github.com/palestra-cloud/gestionale-api/internal/domain"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
	"github.com/palestra-cloud/gestionale-api/pkg/jwt"
)

// JWTConfig configurazione per la generazione dei token.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// UseCase casi d'uso di autenticazione: registrazione e login.
type UseCase struct {
	userRepo      repository.UserRepository
	structureRepo repository.StructureRepository
	jwtCfg        JWTConfig
}

// NewUseCase costruisce il caso d'uso di auth.
func NewUseCase(userRepo repository.UserRepository, structureRepo repository.StructureRepository, jwtCfg JWTConfig) *UseCase {
	return &UseCase{userRepo: userRepo, structureRepo: structureRepo, jwtCfg: jwtCfg}
}

// Register crea un utente: hash bcrypt della password e persistenza.
// Restituisce ErrEmailAlreadyExists se l'email è già registrata.
func (uc *UseCase) Register(ctx context.Context, in dto.RegisterRequest) (*dto.UserResponse, error) {
	existing, _ := uc.userRepo.GetByEmail(ctx, in.Email)
	if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}
	structure, err := uc.structureRepo.GetByID(ctx, in.StructureID)
	if err != nil {
		return nil, err
	}
	if structure == nil {
		return nil, domain.ErrNotFound // struttura inesistente
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	name := in.Name
	if name == "" {
		name = in.Email
	}
	role := in.Role
	switch role {
	case "":
		role = entity.RoleSegreteria
	case entity.RoleAdmin, entity.RoleSegreteria, entity.RoleIstruttore:
	default:
		return nil, domain.ErrInvalidInput
	}
	user := &entity.User{
		ID:           uuid.New().String(),
		StructureID:  in.StructureID,
		Email:        in.Email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// Login verifica email/password, genera il JWT e restituisce token + utente.
func (uc *UseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := uc.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if user.Status != "active" {
		return nil, domain.ErrForbidden
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, user.StructureID, user.Role, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token: token,
		User:  *toUserResponse(user),
	}, nil
}

func toUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:          u.ID,
		StructureID: u.StructureID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		Status:      u.Status,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
