package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
	"github.com/palestra-cloud/gestionale-api/internal/domain"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
	"github.com/palestra-cloud/gestionale-api/pkg/fatturapa"
)

// StructureUseCase regole di business per le strutture (tenant).
type StructureUseCase struct {
	repo repository.StructureRepository
}

// NewStructureUseCase costruisce il caso d'uso con la porta di persistenza.
func NewStructureUseCase(repo repository.StructureRepository) *StructureUseCase {
	return &StructureUseCase{repo: repo}
}

// Create crea una nuova struttura. Genera ID e stato iniziale. La struttura
// deve avere almeno una identità fiscale per poter emettere fatture.
func (uc *StructureUseCase) Create(ctx context.Context, in dto.CreateStructureRequest) (*dto.StructureResponse, error) {
	if in.BusinessName == "" {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now()
	structure := &entity.Structure{
		ID:           uuid.New().String(),
		BusinessName: in.BusinessName,
		VATNumber:    in.VATNumber,
		TaxCode:      in.TaxCode,
		FiscalRegime: in.FiscalRegime,
		Address:      in.Address,
		StreetNumber: in.StreetNumber,
		PostalCode:   in.PostalCode,
		City:         in.City,
		Province:     in.Province,
		Country:      in.Country,
		Phone:        in.Phone,
		Email:        in.Email,
		PEC:          in.PEC,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if structure.FiscalRegime == "" {
		structure.FiscalRegime = fatturapa.RegimeOrdinario
	}
	if structure.Country == "" {
		structure.Country = "IT"
	}
	if err := uc.repo.Create(ctx, structure); err != nil {
		return nil, err
	}
	return entityToStructureResponse(structure), nil
}

// GetByID restituisce una struttura per ID, nil se non esiste.
func (uc *StructureUseCase) GetByID(ctx context.Context, id string) (*dto.StructureResponse, error) {
	structure, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if structure == nil {
		return nil, nil
	}
	return entityToStructureResponse(structure), nil
}

// List elenca le strutture.
func (uc *StructureUseCase) List(ctx context.Context) ([]*dto.StructureResponse, error) {
	list, err := uc.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]*dto.StructureResponse, 0, len(list))
	for _, s := range list {
		items = append(items, entityToStructureResponse(s))
	}
	return items, nil
}

// Update aggiorna i dati anagrafici e fiscali della struttura.
func (uc *StructureUseCase) Update(ctx context.Context, id string, in dto.CreateStructureRequest) (*dto.StructureResponse, error) {
	structure, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if structure == nil {
		return nil, domain.ErrNotFound
	}
	if in.BusinessName != "" {
		structure.BusinessName = in.BusinessName
	}
	structure.VATNumber = in.VATNumber
	structure.TaxCode = in.TaxCode
	if in.FiscalRegime != "" {
		structure.FiscalRegime = in.FiscalRegime
	}
	structure.Address = in.Address
	structure.StreetNumber = in.StreetNumber
	structure.PostalCode = in.PostalCode
	structure.City = in.City
	structure.Province = in.Province
	if in.Country != "" {
		structure.Country = in.Country
	}
	structure.Phone = in.Phone
	structure.Email = in.Email
	structure.PEC = in.PEC
	structure.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, structure); err != nil {
		return nil, err
	}
	return entityToStructureResponse(structure), nil
}

func entityToStructureResponse(s *entity.Structure) *dto.StructureResponse {
	if s == nil {
		return nil
	}
	return &dto.StructureResponse{
		ID:           s.ID,
		BusinessName: s.BusinessName,
		VATNumber:    s.VATNumber,
		TaxCode:      s.TaxCode,
		FiscalRegime: s.FiscalRegime,
		Address:      s.Address,
		StreetNumber: s.StreetNumber,
		PostalCode:   s.PostalCode,
		City:         s.City,
		Province:     s.Province,
		Country:      s.Country,
		Phone:        s.Phone,
		Email:        s.Email,
		PEC:          s.PEC,
		Status:       s.Status,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}
