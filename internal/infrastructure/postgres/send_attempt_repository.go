package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
)

var _ repository.SendAttemptRepository = (*SendAttemptRepo)(nil)

// SendAttemptRepo implementazione append-only di SendAttemptRepository.
type SendAttemptRepo struct {
	q Querier
}

// NewSendAttemptRepository costruisce l'adattatore. Passare pool o tx (Querier).
func NewSendAttemptRepository(q Querier) *SendAttemptRepo {
	return &SendAttemptRepo{q: q}
}

// Append inserisce un tentativo calcolando attempt_number = max+1 nella
// stessa istruzione: dentro la transazione di invio il numero resta
// strettamente crescente per fattura.
func (r *SendAttemptRepo) Append(ctx context.Context, a *entity.SendAttempt) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	query := `
		INSERT INTO electronic_invoice_send_attempts
			(id, invoice_id, attempt_number, status, request_body, response_body, error_text, created_at)
		SELECT $1, $2, COALESCE(MAX(attempt_number), 0) + 1, $3, $4, $5, $6, $7
		FROM electronic_invoice_send_attempts WHERE invoice_id = $2
		RETURNING attempt_number`
	err := r.q.QueryRow(ctx, query,
		a.ID, a.InvoiceID, a.Status, a.RequestBody, a.ResponseBody, a.ErrorText, a.CreatedAt,
	).Scan(&a.AttemptNumber)
	if err != nil {
		return fmt.Errorf("append send attempt: %w", err)
	}
	return nil
}

func (r *SendAttemptRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.SendAttempt, error) {
	query := `
		SELECT id, invoice_id, attempt_number, status, request_body, response_body, error_text, created_at
		FROM electronic_invoice_send_attempts
		WHERE invoice_id = $1 ORDER BY attempt_number`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list send attempts: %w", err)
	}
	defer rows.Close()
	var list []*entity.SendAttempt
	for rows.Next() {
		var a entity.SendAttempt
		if err := rows.Scan(&a.ID, &a.InvoiceID, &a.AttemptNumber, &a.Status,
			&a.RequestBody, &a.ResponseBody, &a.ErrorText, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan send attempt: %w", err)
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}
