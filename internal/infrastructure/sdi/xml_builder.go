// Package sdi implementa l'integrazione con il Sistema di Interscambio:
// costruzione del XML FatturaPA v1.2.1, trasmissione via provider HTTP,
// classificazione degli scarti e riscrittura GDPR del XML conservato.
package sdi

import (
	"fmt"
	"time"

	"github.com/palestra-cloud/gestionale-api/internal/domain"
	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
	domfpa "github.com/palestra-cloud/gestionale-api/internal/domain/fatturapa"
	pkgfpa "github.com/palestra-cloud/gestionale-api/pkg/fatturapa"
)

// Limiti di lunghezza imposti dallo schema XSD.
const (
	maxCausaleLen     = 200
	maxDescrizioneLen = 1000
)

// XMLBuilderService costruisce l'albero FatturaPA da vendita + cedente +
// cessionario. Non serializza e non persiste: restituisce il documento
// immutabile, l'ordine delle sezioni è quello dettato dallo schema.
type XMLBuilderService struct{}

// NewXMLBuilderService crea il servizio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// BuildContext raggruppa tutti i dati necessari alla costruzione del XML.
type BuildContext struct {
	Sale     *entity.Sale
	Seller   *entity.Structure
	Customer *entity.Customer

	// Identità del trasmittente (da configurazione SDI)
	TransmitterCountry string
	TransmitterID      string

	TransmissionID     string // ProgressivoInvio già generato
	TransmissionFormat string // FPR12 | FPA12

	// DocumentTypeOverride forza il TipoDocumento (precedenza massima).
	DocumentTypeOverride string

	// StampDutyChargedToCustomer: se true ImportoBollo viene emesso e il bollo
	// concorre al totale documento (impostazione tenant).
	StampDutyChargedToCustomer bool

	// Nota di credito: estremi della fattura originale collegata
	OriginalInvoiceNumber string
	OriginalInvoiceDate   *time.Time
}

// ResolveDocumentType determina il TipoDocumento: override esplicito >
// assegnazione già presente sulla vendita > inferenza (TD06 con ritenuta,
// TD04 con totale negativo o nota di credito, TD05 per nota di debito,
// altrimenti TD01).
func ResolveDocumentType(sale *entity.Sale, override string) string {
	if override != "" {
		return override
	}
	if sale.DocumentTypeCode != "" {
		return sale.DocumentTypeCode
	}
	switch {
	case sale.WithholdingTaxCents > 0:
		return pkgfpa.DocTypeParcella
	case sale.TotalGrossCents() < 0 || sale.Type == entity.SaleTypeCreditNote:
		return pkgfpa.DocTypeNotaCredito
	case sale.Type == entity.SaleTypeDebitNote:
		return pkgfpa.DocTypeNotaDebito
	default:
		return pkgfpa.DocTypeFattura
	}
}

// DocumentTotalCents calcola ImportoTotaleDocumento in centesimi:
// totale righe (lordo IVA) + cassa previdenziale + bollo (se a carico del
// cliente) − ritenuta d'acconto.
func DocumentTotalCents(sale *entity.Sale, stampChargedToCustomer bool) int64 {
	total := sale.TotalGrossCents() + sale.WelfareFundCents
	if sale.StampDutyApplied && stampChargedToCustomer {
		total += sale.StampDutyCents
	}
	return total - sale.WithholdingTaxCents
}

// Build valida le precondizioni e costruisce l'albero documento completo.
// Errori di validazione: *domain.MissingFieldError (mai ritentati).
func (s *XMLBuilderService) Build(ctx *BuildContext) (*domfpa.Element, error) {
	if ctx == nil || ctx.Sale == nil || ctx.Seller == nil || ctx.Customer == nil {
		return nil, fmt.Errorf("sdi: mancano vendita, struttura o cliente nel contesto")
	}
	if err := validate(ctx); err != nil {
		return nil, err
	}

	docType := ResolveDocumentType(ctx.Sale, ctx.DocumentTypeOverride)

	root := domfpa.El(domfpa.RootName,
		s.buildHeader(ctx),
		s.buildBody(ctx, docType),
	).WithAttrs(
		domfpa.Attr{Name: "xmlns:p", Value: domfpa.Namespace},
		domfpa.Attr{Name: "xmlns:ds", Value: domfpa.NamespaceDS},
		domfpa.Attr{Name: "xmlns:xsi", Value: domfpa.NamespaceXSI},
		domfpa.Attr{Name: "versione", Value: ctx.TransmissionFormat},
	)
	return root, nil
}

func validate(ctx *BuildContext) error {
	if !ctx.Seller.HasFiscalIdentity() {
		return &domain.MissingFieldError{Field: "cedente: partita IVA o codice fiscale"}
	}
	if !ctx.Customer.HasFiscalIdentity() {
		return &domain.MissingFieldError{Field: "cessionario: partita IVA, codice fiscale o id estero"}
	}
	// Checksum sui codici italiani: lo SDI scarta i codici malformati con
	// errore 00301/00306, meglio bloccarli prima dell'invio.
	if ctx.Seller.VATNumber != "" {
		if err := pkgfpa.ValidatePartitaIVA(ctx.Seller.VATNumber); err != nil {
			return &domain.MissingFieldError{Field: "cedente: " + err.Error()}
		}
	}
	if ctx.Customer.Country == "" || ctx.Customer.Country == "IT" {
		if ctx.Customer.VATNumber != "" {
			if err := pkgfpa.ValidatePartitaIVA(ctx.Customer.VATNumber); err != nil {
				return &domain.MissingFieldError{Field: "cessionario: " + err.Error()}
			}
		}
		if ctx.Customer.TaxCode != "" {
			if err := pkgfpa.ValidateCodiceFiscale(ctx.Customer.TaxCode); err != nil {
				return &domain.MissingFieldError{Field: "cessionario: " + err.Error()}
			}
		}
	}
	if len(ctx.Sale.Rows) == 0 {
		return &domain.MissingFieldError{Field: "vendita: almeno una riga"}
	}
	if !ctx.Sale.HasProgressiveNumber() {
		return &domain.MissingFieldError{Field: "vendita: numero progressivo"}
	}
	if ctx.TransmissionID == "" {
		return &domain.MissingFieldError{Field: "progressivo invio"}
	}
	return nil
}

// ── FatturaElettronicaHeader ──────────────────────────────────────────────────

func (s *XMLBuilderService) buildHeader(ctx *BuildContext) *domfpa.Element {
	return domfpa.El("FatturaElettronicaHeader",
		s.buildDatiTrasmissione(ctx),
		s.buildCedentePrestatore(ctx.Seller),
		s.buildCessionarioCommittente(ctx.Customer),
	)
}

func (s *XMLBuilderService) buildDatiTrasmissione(ctx *BuildContext) *domfpa.Element {
	country := ctx.TransmitterCountry
	if country == "" {
		country = "IT"
	}
	recipientCode := ctx.Customer.RecipientCode
	var pec *domfpa.Element
	if recipientCode == "" {
		// Senza codice destinatario: 0000000 e recapito via PEC (se nota)
		recipientCode = pkgfpa.DefaultRecipientCode
		pec = domfpa.TextOpt("PECDestinatario", ctx.Customer.PEC)
	}
	return domfpa.El("DatiTrasmissione",
		domfpa.El("IdTrasmittente",
			domfpa.Text("IdPaese", country),
			domfpa.Text("IdCodice", ctx.TransmitterID),
		),
		domfpa.Text("ProgressivoInvio", ctx.TransmissionID),
		domfpa.Text("FormatoTrasmissione", ctx.TransmissionFormat),
		domfpa.Text("CodiceDestinatario", recipientCode),
		pec,
	)
}

func (s *XMLBuilderService) buildCedentePrestatore(seller *entity.Structure) *domfpa.Element {
	country := seller.Country
	if country == "" {
		country = "IT"
	}
	var idFiscale *domfpa.Element
	if seller.VATNumber != "" {
		idFiscale = domfpa.El("IdFiscaleIVA",
			domfpa.Text("IdPaese", country),
			domfpa.Text("IdCodice", seller.VATNumber),
		)
	}
	regime := seller.FiscalRegime
	if regime == "" {
		regime = pkgfpa.RegimeOrdinario
	}

	var contatti *domfpa.Element
	if seller.Phone != "" || seller.Email != "" {
		contatti = domfpa.El("Contatti",
			domfpa.TextOpt("Telefono", seller.Phone),
			domfpa.TextOpt("Email", seller.Email),
		)
	}

	return domfpa.El("CedentePrestatore",
		domfpa.El("DatiAnagrafici",
			idFiscale,
			domfpa.TextOpt("CodiceFiscale", seller.TaxCode),
			domfpa.El("Anagrafica",
				domfpa.Text("Denominazione", seller.BusinessName),
			),
			domfpa.Text("RegimeFiscale", regime),
		),
		domfpa.El("Sede",
			domfpa.Text("Indirizzo", seller.Address),
			domfpa.TextOpt("NumeroCivico", seller.StreetNumber),
			domfpa.Text("CAP", seller.PostalCode),
			domfpa.Text("Comune", seller.City),
			domfpa.TextOpt("Provincia", seller.Province),
			domfpa.Text("Nazione", country),
		),
		contatti,
	)
}

func (s *XMLBuilderService) buildCessionarioCommittente(c *entity.Customer) *domfpa.Element {
	country := c.Country
	if country == "" {
		country = "IT"
	}

	var idFiscale *domfpa.Element
	switch {
	case c.VATNumber != "":
		idFiscale = domfpa.El("IdFiscaleIVA",
			domfpa.Text("IdPaese", country),
			domfpa.Text("IdCodice", c.VATNumber),
		)
	case c.ForeignTaxID != "":
		idFiscale = domfpa.El("IdFiscaleIVA",
			domfpa.Text("IdPaese", country),
			domfpa.Text("IdCodice", c.ForeignTaxID),
		)
	}

	// Ramo azienda (Denominazione) vs persona fisica (Nome/Cognome)
	var anagrafica *domfpa.Element
	if c.IsCompany() {
		anagrafica = domfpa.El("Anagrafica",
			domfpa.Text("Denominazione", c.CompanyName),
		)
	} else {
		anagrafica = domfpa.El("Anagrafica",
			domfpa.Text("Nome", c.FirstName),
			domfpa.Text("Cognome", c.LastName),
		)
	}

	return domfpa.El("CessionarioCommittente",
		domfpa.El("DatiAnagrafici",
			idFiscale,
			domfpa.TextOpt("CodiceFiscale", c.TaxCode),
			anagrafica,
		),
		domfpa.El("Sede",
			domfpa.Text("Indirizzo", c.Address),
			domfpa.TextOpt("NumeroCivico", c.StreetNumber),
			domfpa.Text("CAP", c.PostalCode),
			domfpa.Text("Comune", c.City),
			domfpa.TextOpt("Provincia", c.Province),
			domfpa.Text("Nazione", country),
		),
	)
}

// ── FatturaElettronicaBody ────────────────────────────────────────────────────

func (s *XMLBuilderService) buildBody(ctx *BuildContext, docType string) *domfpa.Element {
	return domfpa.El("FatturaElettronicaBody",
		domfpa.El("DatiGenerali",
			s.buildDatiGeneraliDocumento(ctx, docType),
			s.buildDatiFattureCollegate(ctx, docType),
		),
		s.buildDatiBeniServizi(ctx.Sale),
		s.buildDatiPagamento(ctx),
	)
}

// buildDatiGeneraliDocumento emette i figli nell'ordine esatto imposto dallo
// schema: TipoDocumento, Divisa, Data, Numero, DatiRitenuta, DatiBollo,
// DatiCassaPrevidenziale, ImportoTotaleDocumento, Causale.
func (s *XMLBuilderService) buildDatiGeneraliDocumento(ctx *BuildContext, docType string) *domfpa.Element {
	sale := ctx.Sale

	var ritenuta *domfpa.Element
	if sale.WithholdingTaxCents > 0 {
		tipo := sale.WithholdingTaxType
		if tipo == "" {
			tipo = pkgfpa.RitenutaPersoneFisiche
		}
		ritenuta = domfpa.El("DatiRitenuta",
			domfpa.Text("TipoRitenuta", tipo),
			domfpa.Text("ImportoRitenuta", pkgfpa.EuroString(sale.WithholdingTaxCents)),
			domfpa.Text("AliquotaRitenuta", pkgfpa.RateString(sale.WithholdingTaxRateCents)),
			domfpa.Text("CausalePagamento", "A"),
		)
	}

	var bollo *domfpa.Element
	if sale.StampDutyApplied {
		// BolloVirtuale="SI" obbligatorio; ImportoBollo solo se addebitato al cliente
		var importo *domfpa.Element
		if ctx.StampDutyChargedToCustomer {
			importo = domfpa.Text("ImportoBollo", pkgfpa.EuroString(sale.StampDutyCents))
		}
		bollo = domfpa.El("DatiBollo",
			domfpa.Text("BolloVirtuale", "SI"),
			importo,
		)
	}

	var cassa *domfpa.Element
	if sale.WelfareFundCents > 0 {
		cassa = domfpa.El("DatiCassaPrevidenziale",
			domfpa.Text("TipoCassa", "TC22"),
			domfpa.Text("AlCassa", pkgfpa.RateString(sale.WelfareFundRateCents)),
			domfpa.Text("ImportoContributoCassa", pkgfpa.EuroString(sale.WelfareFundCents)),
			domfpa.Text("ImponibileCassa", pkgfpa.EuroString(sale.WelfareFundTaxableCents)),
			domfpa.Text("AliquotaIVA", pkgfpa.RateString(sale.WelfareFundVATRateCents)),
		)
	}

	total := DocumentTotalCents(sale, ctx.StampDutyChargedToCustomer)

	return domfpa.El("DatiGeneraliDocumento",
		domfpa.Text("TipoDocumento", docType),
		domfpa.Text("Divisa", "EUR"),
		domfpa.Text("Data", sale.Date.Format("2006-01-02")),
		domfpa.Text("Numero", sale.ProgressiveNumber()),
		ritenuta,
		bollo,
		cassa,
		domfpa.Text("ImportoTotaleDocumento", pkgfpa.EuroString(total)),
		domfpa.TextOpt("Causale", truncate(sale.Causale, maxCausaleLen)),
	)
}

// buildDatiFattureCollegate emette il riferimento alla fattura originale,
// solo per note di credito con vendita originale collegata.
func (s *XMLBuilderService) buildDatiFattureCollegate(ctx *BuildContext, docType string) *domfpa.Element {
	if docType != pkgfpa.DocTypeNotaCredito || ctx.OriginalInvoiceNumber == "" {
		return nil
	}
	var data *domfpa.Element
	if ctx.OriginalInvoiceDate != nil {
		data = domfpa.Text("Data", ctx.OriginalInvoiceDate.Format("2006-01-02"))
	}
	return domfpa.El("DatiFattureCollegate",
		domfpa.Text("IdDocumento", ctx.OriginalInvoiceNumber),
		data,
	)
}

func (s *XMLBuilderService) buildDatiBeniServizi(sale *entity.Sale) *domfpa.Element {
	children := make([]*domfpa.Element, 0, len(sale.Rows)+4)
	for i, row := range sale.Rows {
		children = append(children, s.buildDettaglioLinee(i+1, row))
	}
	children = append(children, s.buildRiepiloghi(sale)...)
	return domfpa.El("DatiBeniServizi", children...)
}

func (s *XMLBuilderService) buildDettaglioLinee(num int, row *entity.SaleRow) *domfpa.Element {
	var sconto *domfpa.Element
	switch {
	case row.DiscountPercentCents > 0:
		sconto = domfpa.El("ScontoMaggiorazione",
			domfpa.Text("Tipo", "SC"),
			domfpa.Text("Percentuale", pkgfpa.RateString(row.DiscountPercentCents)),
		)
	case row.DiscountAmountCents > 0:
		sconto = domfpa.El("ScontoMaggiorazione",
			domfpa.Text("Tipo", "SC"),
			domfpa.Text("Importo", pkgfpa.EuroString(row.DiscountAmountCents)),
		)
	}

	var aliquota int64
	var natura string
	if row.VATRate != nil {
		aliquota = row.VATRate.PercentCents
		natura = row.VATRate.Nature
	}

	return domfpa.El("DettaglioLinee",
		domfpa.Text("NumeroLinea", fmt.Sprintf("%d", num)),
		domfpa.Text("Descrizione", truncate(row.Description, maxDescrizioneLen)),
		domfpa.Text("Quantita", row.Quantity.StringFixed(2)),
		domfpa.Text("PrezzoUnitario", pkgfpa.EuroString(row.UnitPriceNetCents)),
		sconto,
		domfpa.Text("PrezzoTotale", pkgfpa.EuroString(row.TotalNetCents)),
		domfpa.Text("AliquotaIVA", pkgfpa.RateString(aliquota)),
		domfpa.TextOpt("Natura", natura),
	)
}

// vatGroup raggruppa le righe per (aliquota, natura) per i DatiRiepilogo.
type vatGroup struct {
	rateCents int64
	nature    string
	baseCents int64
	taxCents  int64
}

// buildRiepiloghi emette un DatiRiepilogo per gruppo IVA distinto,
// nell'ordine di prima apparizione delle righe (deterministico).
func (s *XMLBuilderService) buildRiepiloghi(sale *entity.Sale) []*domfpa.Element {
	var order []string
	groups := make(map[string]*vatGroup)
	for _, row := range sale.Rows {
		var rate int64
		var nature string
		if row.VATRate != nil {
			rate = row.VATRate.PercentCents
			nature = row.VATRate.Nature
		}
		key := fmt.Sprintf("%d|%s", rate, nature)
		g, ok := groups[key]
		if !ok {
			g = &vatGroup{rateCents: rate, nature: nature}
			groups[key] = g
			order = append(order, key)
		}
		g.baseCents += row.TotalNetCents
		g.taxCents += row.VATCents()
	}

	out := make([]*domfpa.Element, 0, len(order))
	for _, key := range order {
		g := groups[key]
		// Ordine fisso: AliquotaIVA, Natura (se 0%), ImponibileImporto, Imposta
		out = append(out, domfpa.El("DatiRiepilogo",
			domfpa.Text("AliquotaIVA", pkgfpa.RateString(g.rateCents)),
			domfpa.TextOpt("Natura", g.nature),
			domfpa.Text("ImponibileImporto", pkgfpa.EuroString(g.baseCents)),
			domfpa.Text("Imposta", pkgfpa.EuroString(g.taxCents)),
		))
	}
	return out
}

func (s *XMLBuilderService) buildDatiPagamento(ctx *BuildContext) *domfpa.Element {
	sale := ctx.Sale
	if !sale.PaymentConditionSet {
		return nil
	}

	var scadenza *domfpa.Element
	if sale.FirstInstallmentDueDays != nil {
		due := sale.Date.AddDate(0, 0, *sale.FirstInstallmentDueDays)
		scadenza = domfpa.Text("DataScadenzaPagamento", due.Format("2006-01-02"))
	}

	total := DocumentTotalCents(sale, ctx.StampDutyChargedToCustomer)

	return domfpa.El("DatiPagamento",
		domfpa.Text("CondizioniPagamento", pkgfpa.CondizioniPagamentoCompleto),
		domfpa.El("DettaglioPagamento",
			domfpa.Text("ModalitaPagamento", pkgfpa.PaymentModeFromInternal(sale.PaymentMethod)),
			scadenza,
			domfpa.Text("ImportoPagamento", pkgfpa.EuroString(total)),
		),
	)
}

// truncate taglia una stringa al limite di lunghezza XSD, rispettando i rune.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
