package usecase

import (
	"context"
	"fmt"

	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
)

// ModuleService verifica quali moduli SaaS sono attivi per una struttura.
// È l'unico punto dell'applicazione che conosce la logica di attivazione.
type ModuleService struct {
	structureRepo repository.StructureRepository
}

// NewModuleService costruisce il servizio moduli.
func NewModuleService(structureRepo repository.StructureRepository) *ModuleService {
	return &ModuleService{structureRepo: structureRepo}
}

// HasActiveModule indica se la struttura ha il modulo attivo e non scaduto.
// Restituisce false (senza errore) se il modulo non è attivato.
// Restituisce errore solo per guasti di infrastruttura (DB giù, timeout).
func (s *ModuleService) HasActiveModule(ctx context.Context, structureID, moduleName string) (bool, error) {
	if structureID == "" || moduleName == "" {
		return false, fmt.Errorf("module: structureID e moduleName sono obbligatori")
	}
	active, err := s.structureRepo.GetActiveModules(ctx, structureID)
	if err != nil {
		return false, err
	}
	for _, m := range active {
		if m == moduleName {
			return true, nil
		}
	}
	return false, nil
}

// ListActiveModules restituisce i moduli attivi della struttura.
func (s *ModuleService) ListActiveModules(ctx context.Context, structureID string) ([]string, error) {
	return s.structureRepo.GetActiveModules(ctx, structureID)
}
