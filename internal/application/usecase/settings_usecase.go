package usecase

import (
	"context"

	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
	"github.com/palestra-cloud/gestionale-api/internal/domain"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
	"github.com/palestra-cloud/gestionale-api/pkg/fatturapa"
)

// SettingsUseCase letture e scritture delle impostazioni key-value per
// struttura consumate dal motore di fatturazione.
type SettingsUseCase struct {
	repo repository.TenantSettingRepository
}

// NewSettingsUseCase costruisce il caso d'uso.
func NewSettingsUseCase(repo repository.TenantSettingRepository) *SettingsUseCase {
	return &SettingsUseCase{repo: repo}
}

// Get restituisce il valore della chiave, stringa vuota se assente.
func (uc *SettingsUseCase) Get(ctx context.Context, structureID, key string) (*dto.SettingResponse, error) {
	value, _, err := uc.repo.Get(ctx, structureID, key)
	if err != nil {
		return nil, err
	}
	return &dto.SettingResponse{Key: key, Value: value}, nil
}

// Set scrive una impostazione. Le chiavi note sono validate prima della
// persistenza; le altre passano senza vincoli.
func (uc *SettingsUseCase) Set(ctx context.Context, structureID string, in dto.SettingRequest) (*dto.SettingResponse, error) {
	if in.Key == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.Key == entity.SettingTransmissionFormat && in.Value != "" {
		if !fatturapa.ValidTransmissionFormats[in.Value] {
			return nil, domain.ErrInvalidInput
		}
	}
	if in.Key == entity.SettingStampDutyChargeCustomer && in.Value != "" {
		switch in.Value {
		case "true", "false", "1", "0":
		default:
			return nil, domain.ErrInvalidInput
		}
	}
	if err := uc.repo.Set(ctx, structureID, in.Key, in.Value); err != nil {
		return nil, err
	}
	return &dto.SettingResponse{Key: in.Key, Value: in.Value}, nil
}
