package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/palestra-cloud/gestionale-api/internal/application/billing"
	"github.com/palestra-cloud/gestionale-api/internal/application/retention"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
)

var _ billing.TxRunner = (*TxRunner)(nil)
var _ retention.TxRunner = (*TxRunner)(nil)

// TxRunner esegue callback dentro una transazione PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner costruisce il runner con il pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunBilling apre una transazione con i repo di fatturazione legati alla tx
// e fa Commit o Rollback. Il lock di MaxProgressiveForUpdate vive dentro
// questa transazione: è ciò che serializza l'assegnazione dei progressivi.
func (r *TxRunner) RunBilling(ctx context.Context, fn func(
	saleRepo repository.SaleRepository,
	invoiceRepo repository.ElectronicInvoiceRepository,
	attemptRepo repository.SendAttemptRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	saleRepo := NewSaleRepository(tx)
	invoiceRepo := NewElectronicInvoiceRepository(tx)
	attemptRepo := NewSendAttemptRepository(tx)

	if err := fn(saleRepo, invoiceRepo, attemptRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunRetention apre una transazione con i repo del motore GDPR: la verifica
// cliente-condiviso e la mutazione di anonimizzazione devono stare nella
// stessa transazione per evitare corse con fatture emesse in parallelo.
func (r *TxRunner) RunRetention(ctx context.Context, fn func(
	invoiceRepo repository.ElectronicInvoiceRepository,
	customerRepo repository.CustomerRepository,
	saleRepo repository.SaleRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	invoiceRepo := NewElectronicInvoiceRepository(tx)
	customerRepo := NewCustomerRepository(tx)
	saleRepo := NewSaleRepository(tx)

	if err := fn(invoiceRepo, customerRepo, saleRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
