package ports

import (
	"context"

	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
)

// LLMService definisce la porta di uscita verso i servizi di intelligenza
// artificiale. Qualunque adattatore (Gemini, Anthropic, mock) deve
// implementare questa interfaccia: l'applicazione conosce solo il contratto,
// mai l'implementazione concreta.
type LLMService interface {
	// SuggestRejectionFix analizza il testo grezzo di uno scarto SDI non
	// riconosciuto dal catalogo dei codici e suggerisce causa probabile e
	// correzione. Il contesto deve portare un timeout per non bloccare la
	// risposta su una chiamata esterna.
	SuggestRejectionFix(
		ctx context.Context,
		rejectionText string,
	) (*dto.AIRejectionAdviceDTO, error)
}
