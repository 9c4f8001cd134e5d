// Package pdf implementa la copia di cortesia PDF della fattura elettronica.
// La copia di cortesia non ha valore fiscale: il documento fiscale è l'XML
// FatturaPA trasmesso al SDI.
//
// Layout della pagina A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Denominazione + P.IVA  │  N° Fattura + Data        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CEDENTE/PRESTATORE: indirizzo / tel / PEC                  │
//	│  CESSIONARIO/COMMITTENTE: anagrafica + identità fiscale     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABELLA: Qtà | Descrizione | Prezzo unit. | IVA | Totale   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALI: Imponibile / IVA / TOTALE DOCUMENTO                │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: Progressivo invio SDI + stato + legenda legale     │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	appbilling "github.com/palestra-cloud/gestionale-api/internal/application/billing"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
	"github.com/palestra-cloud/gestionale-api/pkg/fatturapa"
)

// ── Palette colori ────────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa billing.InvoicePDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator costruisce il generatore.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

var _ appbilling.InvoicePDFGenerator = (*MarotoPDFGenerator)(nil)

// GenerateInvoicePDF genera il PDF e ne restituisce i byte.
func (g *MarotoPDFGenerator) GenerateInvoicePDF(
	_ context.Context,
	sale *entity.Sale,
	invoice *entity.ElectronicInvoice,
	seller *entity.Structure,
	customer *entity.Customer,
	rows []appbilling.InvoiceRowForPDF,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Fattura "+sale.ProgressiveNumber(), true).
		WithAuthor(seller.BusinessName, true).
		Build()

	m := maroto.New(cfg)

	// Header principale
	m.AddRows(headerRow(sale, seller))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(cedenteRow(seller))
	m.AddRows(cessionarioRow(customer))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	// Tabella righe
	m.AddRows(tableHeaderRow())
	for _, r := range tableRowRows(rows) {
		m.AddRows(r)
	}

	// Totali
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(sale))

	// Footer SDI
	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	for _, r := range sdiFooterRows(invoice) {
		m.AddRows(r)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generazione documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Sezioni ───────────────────────────────────────────────────────────────────

// headerRow: denominazione + P.IVA (sx) e numero fattura + data (dx).
func headerRow(sale *entity.Sale, seller *entity.Structure) core.Row {
	title := "FATTURA"
	switch sale.Type {
	case entity.SaleTypeCreditNote:
		title = "NOTA DI CREDITO"
	case entity.SaleTypeDebitNote:
		title = "NOTA DI DEBITO"
	}
	data := sale.Date.Format("02/01/2006")

	return row.New(18).Add(
		col.New(7).Add(
			text.New(seller.BusinessName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("P.IVA: "+nonEmpty(seller.VATNumber, seller.TaxCode), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(sale.ProgressiveNumber(), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Data: "+data, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// cedenteRow: dati del cedente/prestatore (la struttura).
func cedenteRow(seller *entity.Structure) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("CEDENTE / PRESTATORE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("%s %s, %s %s (%s)   |   Tel: %s   |   PEC: %s",
				nonEmpty(seller.Address, "—"),
				seller.StreetNumber,
				seller.PostalCode,
				seller.City,
				seller.Province,
				nonEmpty(seller.Phone, "—"),
				nonEmpty(seller.PEC, "—"),
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

// cessionarioRow: dati del cessionario/committente (il cliente).
func cessionarioRow(customer *entity.Customer) core.Row {
	fiscalID := customer.VATNumber
	fiscalLabel := "P.IVA"
	if fiscalID == "" {
		fiscalID = customer.TaxCode
		fiscalLabel = "C.F."
	}
	if fiscalID == "" {
		fiscalID = customer.ForeignTaxID
		fiscalLabel = "ID estero"
	}
	recapito := customer.RecipientCode
	if recapito == "" {
		recapito = nonEmpty(customer.PEC, "—")
	}
	return row.New(14).Add(
		col.New(12).Add(
			text.New("CESSIONARIO / COMMITTENTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(customer.DisplayName(), props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("%s: %s   |   Recapito SDI: %s   |   %s, %s %s",
				fiscalLabel,
				nonEmpty(fiscalID, "—"),
				recapito,
				nonEmpty(customer.Address, "—"),
				customer.PostalCode,
				customer.City,
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// tableHeaderRow: intestazione della tabella righe.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Qtà", 1, align.Center),
		h("Descrizione", 5, align.Left),
		h("Prezzo unit.", 2, align.Right),
		h("IVA%", 1, align.Center),
		h("Imponibile", 3, align.Right),
	)
}

// tableRowRows: una riga di tabella per riga di vendita.
func tableRowRows(rows []appbilling.InvoiceRowForPDF) []core.Row {
	result := make([]core.Row, 0, len(rows))
	for _, r := range rows {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				r.Row.Quantity.StringFixed(2),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(5).Add(text.New(
				r.Row.Description,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				"€ "+fatturapa.EuroString(r.Row.UnitPriceNetCents),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(1).Add(text.New(
				r.VATPercent+"%",
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(3).Add(text.New(
				"€ "+r.NetString,
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// totalsRow: blocco totali allineato a destra.
func totalsRow(sale *entity.Sale) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	grandLabel := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 2,
		})
	}
	grandValue := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 1,
		})
	}

	return row.New(26).Add(
		col.New(3), // margine sinistro
		col.New(3).Add(
			label("Imponibile:"),
			label("IVA:"),
			grandLabel("TOTALE DOCUMENTO:"),
		),
		col.New(3).Add(
			value("€ "+fatturapa.EuroString(sale.TotalNetCents())),
			value("€ "+fatturapa.EuroString(sale.TotalVATCents())),
			grandValue("€ "+fatturapa.EuroString(sale.TotalGrossCents())),
		),
		col.New(3), // margine destro
	)
}

// sdiFooterRows: riferimenti SDI + legenda legale.
func sdiFooterRows(invoice *entity.ElectronicInvoice) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("RIFERIMENTI SISTEMA DI INTERSCAMBIO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
	}

	if invoice != nil && invoice.TransmissionID != "" {
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New(fmt.Sprintf("Progressivo invio: %s   |   Formato: %s   |   Stato SDI: %s",
				invoice.TransmissionID,
				invoice.TransmissionFormat,
				statoSDILabel(invoice.SDIStatus),
			), props.Text{Size: 7, Color: colorGray, Top: 1}),
		)))
	}

	rows = append(rows, row.New(3))

	// Legenda legale
	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New(
			"Copia di cortesia priva di valore fiscale. Il documento fiscale è la "+
				"fattura elettronica in formato XML trasmessa al Sistema di Interscambio "+
				"ai sensi del D.Lgs. 127/2015 e del Provvedimento AdE 89757/2018.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	)))

	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// statoSDILabel traduce lo stato interno in etichetta leggibile.
func statoSDILabel(status string) string {
	switch status {
	case entity.SDIStatusDraft:
		return "Bozza"
	case entity.SDIStatusGenerated:
		return "Generata"
	case entity.SDIStatusSent:
		return "Inviata"
	case entity.SDIStatusDelivered:
		return "Consegnata"
	case entity.SDIStatusAccepted:
		return "Accettata"
	case entity.SDIStatusRejected:
		return "Scartata"
	default:
		return status
	}
}
