package repository

import (
	"context"

	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
)

// SendAttemptRepository definisce la porta per l'audit trail di trasmissione.
// La tabella è append-only: nessun Update, nessun Delete.
type SendAttemptRepository interface {
	// Append inserisce un tentativo assegnando attempt_number = max+1 per la
	// fattura (strettamente crescente).
	Append(ctx context.Context, a *entity.SendAttempt) error
	ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.SendAttempt, error)
}
