package billing

import (
	"context"

	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
)

// TxRunner esegue una funzione dentro una transazione con i repo di
// fatturazione legati alla stessa tx. Il lock della numerazione progressiva
// (MaxProgressiveForUpdate) vale solo dentro questa transazione.
type TxRunner interface {
	RunBilling(ctx context.Context, fn func(
		saleRepo repository.SaleRepository,
		invoiceRepo repository.ElectronicInvoiceRepository,
		attemptRepo repository.SendAttemptRepository,
	) error) error
}

// InvoiceRowForPDF riga di vendita arricchita per la copia di cortesia.
type InvoiceRowForPDF struct {
	Row         *entity.SaleRow
	VATPercent  string // "22.00"
	NetString   string // imponibile formattato
	GrossString string
}

// InvoicePDFGenerator genera la copia di cortesia PDF della fattura.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(
		ctx context.Context,
		sale *entity.Sale,
		invoice *entity.ElectronicInvoice,
		seller *entity.Structure,
		customer *entity.Customer,
		rows []InvoiceRowForPDF,
	) ([]byte, error)
}
