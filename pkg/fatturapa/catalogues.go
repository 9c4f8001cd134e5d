// Package fatturapa contiene cataloghi, codici e helper allineati alle
// specifiche tecniche FatturaPA v1.2.1 (Agenzia delle Entrate / SDI).
package fatturapa

// =============================================================================
// Formato trasmissione (attributo "versione" della radice FatturaElettronica)
// =============================================================================

const (
	FormatoFPR12 = "FPR12" // Fattura verso privati (B2B/B2C)
	FormatoFPA12 = "FPA12" // Fattura verso Pubblica Amministrazione
)

// ValidTransmissionFormats formati di trasmissione ammessi.
var ValidTransmissionFormats = map[string]bool{
	FormatoFPR12: true,
	FormatoFPA12: true,
}

// =============================================================================
// TipoDocumento (specifiche tecniche 1.2.1 - tabella 2.1.1.1)
// =============================================================================

const (
	DocTypeFattura     = "TD01" // Fattura
	DocTypeNotaCredito = "TD04" // Nota di credito
	DocTypeNotaDebito  = "TD05" // Nota di debito
	DocTypeParcella    = "TD06" // Parcella (con ritenuta d'acconto)
	DocTypeAutofattura = "TD20" // Autofattura per regolarizzazione
)

// ValidDocumentTypeCodes codici TipoDocumento gestiti dal sistema.
var ValidDocumentTypeCodes = map[string]bool{
	DocTypeFattura: true, DocTypeNotaCredito: true, DocTypeNotaDebito: true,
	DocTypeParcella: true, DocTypeAutofattura: true,
}

// =============================================================================
// Natura IVA (tabella 2.2.1.2) - obbligatoria quando AliquotaIVA = 0.00
// =============================================================================

const (
	NaturaEscluse          = "N1"   // Escluse ex art. 15
	NaturaNonSoggette      = "N2.2" // Non soggette - altri casi
	NaturaNonImponibili    = "N3.5" // Non imponibili - a seguito di dichiarazioni d'intento
	NaturaEsenti           = "N4"   // Esenti
	NaturaRegimeMargine    = "N5"   // Regime del margine
	NaturaInversioneContab = "N6.9" // Inversione contabile - altri casi
	NaturaSplitPayment     = "N7"   // IVA assolta in altro stato UE
)

// ValidNatureCodes prefissi di Natura ammessi (N1..N7 con eventuale sottocodice).
var ValidNatureCodes = map[string]bool{
	"N1": true, "N2": true, "N2.1": true, "N2.2": true,
	"N3": true, "N3.1": true, "N3.2": true, "N3.3": true, "N3.4": true, "N3.5": true, "N3.6": true,
	"N4": true, "N5": true,
	"N6": true, "N6.1": true, "N6.2": true, "N6.3": true, "N6.4": true, "N6.5": true,
	"N6.6": true, "N6.7": true, "N6.8": true, "N6.9": true,
	"N7": true,
}

// =============================================================================
// RegimeFiscale (tabella 2.1.1.1) - codici di uso frequente
// =============================================================================

const (
	RegimeOrdinario   = "RF01" // Regime ordinario
	RegimeForfettario = "RF19" // Regime forfettario (L. 190/2014)
	RegimeMinimi      = "RF02" // Contribuenti minimi
	RegimeAltro       = "RF18" // Altro
)

// =============================================================================
// ModalitaPagamento (tabella 2.4.2.2) - mapping dai codici interni di vendita
// =============================================================================

const (
	PaymentModeContanti = "MP01" // Contanti
	PaymentModeAssegno  = "MP02" // Assegno
	PaymentModeBonifico = "MP05" // Bonifico bancario
	PaymentModeCarta    = "MP08" // Carta di pagamento
	PaymentModeRIDSepa  = "MP19" // SEPA Direct Debit
)

// CondizioniPagamentoCompleto TP02 = pagamento completo (unica condizione emessa).
const CondizioniPagamentoCompleto = "TP02"

// PaymentModeFromInternal traduce il metodo di pagamento interno della vendita
// nel codice ModalitaPagamento SDI. Metodo sconosciuto → MP01 (contanti),
// fallback documentato: il codice resta comunque valido per lo schema.
func PaymentModeFromInternal(method string) string {
	switch method {
	case "cash":
		return PaymentModeContanti
	case "check":
		return PaymentModeAssegno
	case "bank_transfer":
		return PaymentModeBonifico
	case "credit_card", "debit_card":
		return PaymentModeCarta
	case "sepa_debit":
		return PaymentModeRIDSepa
	default:
		return PaymentModeContanti
	}
}

// =============================================================================
// TipoRitenuta (tabella 2.1.1.5.1)
// =============================================================================

const (
	RitenutaPersoneFisiche    = "RT01" // Ritenuta persone fisiche
	RitenutaPersoneGiuridiche = "RT02" // Ritenuta persone giuridiche
)

// =============================================================================
// Codice destinatario / PEC
// =============================================================================

// DefaultRecipientCode valore di CodiceDestinatario quando il cliente non ha
// un codice SDI e la consegna avviene via PEC (o tramite cassetto fiscale).
const DefaultRecipientCode = "0000000"

// RecipientCodePA lunghezza codice destinatario per PA (6) e privati (7).
const (
	RecipientCodeLenPA      = 6
	RecipientCodeLenPrivato = 7
)
