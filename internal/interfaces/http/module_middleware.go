package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
)

// moduleChecker è il contratto minimo che serve al middleware per verificare
// i moduli. Lo implementa *usecase.ModuleService; l'interfaccia evita
// l'import circolare.
type moduleChecker interface {
	HasActiveModule(ctx context.Context, structureID, moduleName string) (bool, error)
}

// RequireModule restituisce un middleware Fiber che verifica se la struttura
// del token JWT ha il modulo attivo. Va usato DOPO AuthMiddleware (serve
// LocalStructureID).
//
// Comportamento:
//   - 403 Forbidden → modulo non attivato o scaduto.
//   - 503 Service Unavailable → guasto di infrastruttura sulla verifica.
//   - Senza structure_id nel contesto risponde 401 (AuthMiddleware avrebbe
//     dovuto caricarlo).
func RequireModule(moduleName string, checker moduleChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		structureID := GetStructureID(c)
		if structureID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "structure_id non presente nel token",
			})
		}

		active, err := checker.HasActiveModule(c.Context(), structureID, moduleName)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "MODULE_CHECK_FAILED",
				Message: "verifica modulo non riuscita, riprovare più tardi",
			})
		}

		if !active {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "MODULE_DISABLED",
				Message: "il modulo '" + moduleName + "' non è attivo per questa struttura",
			})
		}

		return c.Next()
	}
}
