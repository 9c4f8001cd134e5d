package billing

import (
	"context"
	"time"

	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
	"github.com/palestra-cloud/gestionale-api/internal/domain"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
)

// CustomerUseCase CRUD dei clienti della struttura.
type CustomerUseCase struct {
	customerRepo repository.CustomerRepository

	now func() time.Time
}

// NewCustomerUseCase costruisce il caso d'uso.
func NewCustomerUseCase(customerRepo repository.CustomerRepository) *CustomerUseCase {
	return &CustomerUseCase{customerRepo: customerRepo, now: time.Now}
}

// CreateCustomer crea un cliente. L'identità fiscale non è obbligatoria alla
// creazione: lo diventa alla generazione della fattura elettronica.
func (uc *CustomerUseCase) CreateCustomer(ctx context.Context, structureID string, in dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
	if in.FirstName == "" && in.LastName == "" && in.CompanyName == "" {
		return nil, domain.ErrInvalidInput
	}
	country := in.Country
	if country == "" {
		country = "IT"
	}
	now := uc.now()
	c := &entity.Customer{
		StructureID:   structureID,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		CompanyName:   in.CompanyName,
		VATNumber:     in.VATNumber,
		TaxCode:       in.TaxCode,
		ForeignTaxID:  in.ForeignTaxID,
		RecipientCode: in.RecipientCode,
		PEC:           in.PEC,
		Email:         in.Email,
		Phone:         in.Phone,
		Address:       in.Address,
		StreetNumber:  in.StreetNumber,
		PostalCode:    in.PostalCode,
		City:          in.City,
		Province:      in.Province,
		Country:       country,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.customerRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	return dto.NewCustomerResponse(c), nil
}

// GetCustomer restituisce il cliente della struttura.
func (uc *CustomerUseCase) GetCustomer(ctx context.Context, structureID, id string) (*dto.CustomerResponse, error) {
	c, err := uc.load(ctx, structureID, id)
	if err != nil {
		return nil, err
	}
	return dto.NewCustomerResponse(c), nil
}

// ListCustomers lista paginata dei clienti.
func (uc *CustomerUseCase) ListCustomers(ctx context.Context, structureID string, page dto.PageRequest) ([]*dto.CustomerResponse, error) {
	page.DefaultPage()
	customers, err := uc.customerRepo.ListByStructure(ctx, structureID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.CustomerResponse, 0, len(customers))
	for _, c := range customers {
		out = append(out, dto.NewCustomerResponse(c))
	}
	return out, nil
}

// UpdateCustomer aggiorna l'anagrafica. Un cliente anonimizzato non è più
// modificabile: l'anonimizzazione è terminale.
func (uc *CustomerUseCase) UpdateCustomer(ctx context.Context, structureID, id string, in dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
	c, err := uc.load(ctx, structureID, id)
	if err != nil {
		return nil, err
	}
	if c.AnonymizedAt != nil {
		return nil, domain.ErrAlreadyAnonymized
	}
	c.FirstName = in.FirstName
	c.LastName = in.LastName
	c.CompanyName = in.CompanyName
	c.VATNumber = in.VATNumber
	c.TaxCode = in.TaxCode
	c.ForeignTaxID = in.ForeignTaxID
	c.RecipientCode = in.RecipientCode
	c.PEC = in.PEC
	c.Email = in.Email
	c.Phone = in.Phone
	c.Address = in.Address
	c.StreetNumber = in.StreetNumber
	c.PostalCode = in.PostalCode
	c.City = in.City
	c.Province = in.Province
	if in.Country != "" {
		c.Country = in.Country
	}
	c.UpdatedAt = uc.now()
	if err := uc.customerRepo.Update(ctx, c); err != nil {
		return nil, err
	}
	return dto.NewCustomerResponse(c), nil
}

func (uc *CustomerUseCase) load(ctx context.Context, structureID, id string) (*entity.Customer, error) {
	c, err := uc.customerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	if c.StructureID != structureID {
		return nil, domain.ErrForbidden
	}
	return c, nil
}
