package billing

import (
	"context"
	"fmt"

	"github.com/palestra-cloud/gestionale-api/internal/application/ports"
	"github.com/palestra-cloud/gestionale-api/internal/domain"
	"github.com/palestra-cloud/gestionale-api/internal/domain/repository"
	"github.com/palestra-cloud/gestionale-api/pkg/fatturapa"
)

// PDFUseCase genera la copia di cortesia PDF della fattura elettronica.
// La copia di cortesia non ha valore fiscale (quello è dell'XML) e viene
// eliminata all'anonimizzazione GDPR.
type PDFUseCase struct {
	invoiceRepo   repository.ElectronicInvoiceRepository
	saleRepo      repository.SaleRepository
	structureRepo repository.StructureRepository
	customerRepo  repository.CustomerRepository
	generator     InvoicePDFGenerator
	storage       ports.Storage
}

// NewPDFUseCase costruisce il caso d'uso.
func NewPDFUseCase(
	invoiceRepo repository.ElectronicInvoiceRepository,
	saleRepo repository.SaleRepository,
	structureRepo repository.StructureRepository,
	customerRepo repository.CustomerRepository,
	generator InvoicePDFGenerator,
	storage ports.Storage,
) *PDFUseCase {
	return &PDFUseCase{
		invoiceRepo:   invoiceRepo,
		saleRepo:      saleRepo,
		structureRepo: structureRepo,
		customerRepo:  customerRepo,
		generator:     generator,
		storage:       storage,
	}
}

// DownloadInvoicePDF genera (o rilegge dallo storage) la copia di cortesia.
//
// Ritorna:
//   - (pdfBytes, filename, nil) in caso di successo
//   - domain.ErrNotFound se fattura o vendita non esistono
//   - domain.ErrForbidden se la fattura non appartiene alla struttura
//   - domain.ErrAlreadyAnonymized se la fattura è stata anonimizzata (il PDF
//     è stato eliminato e non è rigenerabile)
func (uc *PDFUseCase) DownloadInvoicePDF(ctx context.Context, structureID, invoiceID string) (pdfBytes []byte, filename string, err error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: carica fattura: %w", err)
	}
	if inv == nil {
		return nil, "", domain.ErrNotFound
	}
	if inv.StructureID != structureID {
		return nil, "", domain.ErrForbidden
	}
	if inv.IsAnonymized() {
		return nil, "", domain.ErrAlreadyAnonymized
	}

	sale, err := uc.saleRepo.GetByID(ctx, inv.SaleID)
	if err != nil || sale == nil {
		return nil, "", fmt.Errorf("pdf: carica vendita: %w", err)
	}
	filename = fmt.Sprintf("fattura_%s.pdf", sale.ProgressiveNumber())

	// Copia già generata in precedenza: servire dallo storage.
	if inv.PDFFilePath != "" {
		if ok, _ := uc.storage.Exists(ctx, "local", inv.PDFFilePath); ok {
			data, err := uc.storage.Get(ctx, "local", inv.PDFFilePath)
			if err == nil {
				return data, filename, nil
			}
		}
	}

	seller, err := uc.structureRepo.GetByID(ctx, structureID)
	if err != nil || seller == nil {
		return nil, "", fmt.Errorf("pdf: carica struttura: %w", err)
	}
	customer, err := uc.customerRepo.GetByID(ctx, sale.CustomerID)
	if err != nil || customer == nil {
		return nil, "", fmt.Errorf("pdf: carica cliente: %w", err)
	}

	rows := make([]InvoiceRowForPDF, 0, len(sale.Rows))
	for _, r := range sale.Rows {
		percent := "0.00"
		if r.VATRate != nil {
			percent = fatturapa.RateString(r.VATRate.PercentCents)
		}
		rows = append(rows, InvoiceRowForPDF{
			Row:         r,
			VATPercent:  percent,
			NetString:   fatturapa.EuroString(r.TotalNetCents),
			GrossString: fatturapa.EuroString(r.TotalNetCents + r.VATCents()),
		})
	}

	pdfBytes, err = uc.generator.GenerateInvoicePDF(ctx, sale, inv, seller, customer, rows)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generazione fallita: %w", err)
	}

	// Persistere la copia per i download successivi; un errore qui non
	// invalida il PDF già generato.
	pdfPath := fmt.Sprintf("fatture/%s/%d/%s.pdf", structureID, sale.Year, inv.TransmissionID)
	if err := uc.storage.Put(ctx, "local", pdfPath, pdfBytes); err == nil {
		inv.PDFFilePath = pdfPath
		_ = uc.invoiceRepo.Update(ctx, inv)
	}
	return pdfBytes, filename, nil
}

// DownloadInvoiceXML restituisce l'XML FatturaPA della fattura. L'XML resta
// scaricabile anche dopo l'anonimizzazione (è la versione riscritta).
func (uc *PDFUseCase) DownloadInvoiceXML(ctx context.Context, structureID, invoiceID string) (xmlBytes []byte, filename string, err error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, "", fmt.Errorf("xml: carica fattura: %w", err)
	}
	if inv == nil {
		return nil, "", domain.ErrNotFound
	}
	if inv.StructureID != structureID {
		return nil, "", domain.ErrForbidden
	}
	return []byte(inv.XMLContent), inv.TransmissionID + ".xml", nil
}

// DownloadReceiptXML restituisce la ricevuta SDI (esito/consegna) della
// fattura. ErrNotFound se nessuna ricevuta è ancora arrivata.
func (uc *PDFUseCase) DownloadReceiptXML(ctx context.Context, structureID, invoiceID string) (xmlBytes []byte, filename string, err error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, "", fmt.Errorf("ricevuta: carica fattura: %w", err)
	}
	if inv == nil {
		return nil, "", domain.ErrNotFound
	}
	if inv.StructureID != structureID {
		return nil, "", domain.ErrForbidden
	}
	if inv.SDIReceiptXML == "" {
		return nil, "", domain.ErrNotFound
	}
	return []byte(inv.SDIReceiptXML), inv.TransmissionID + "_ricevuta.xml", nil
}
