package entity

import "time"

// Stati SDI della fattura elettronica. La macchina a stati è monotona:
//
//	draft → generated → sent → delivered → accepted | rejected
//
// rejected è raggiungibile da sent o delivered; accepted e rejected sono terminali.
const (
	SDIStatusDraft     = "draft"
	SDIStatusGenerated = "generated"
	SDIStatusSent      = "sent"
	SDIStatusDelivered = "delivered"
	SDIStatusAccepted  = "accepted"
	SDIStatusRejected  = "rejected"
)

// sdiStatusRank ordina gli stati per la verifica di monotonicità.
var sdiStatusRank = map[string]int{
	SDIStatusDraft:     0,
	SDIStatusGenerated: 1,
	SDIStatusSent:      2,
	SDIStatusDelivered: 3,
	SDIStatusAccepted:  4,
	SDIStatusRejected:  4,
}

// IsTerminalSDIStatus indica se lo stato non ammette ulteriori transizioni.
func IsTerminalSDIStatus(status string) bool {
	return status == SDIStatusAccepted || status == SDIStatusRejected
}

// CanTransitionSDI valida una transizione della macchina a stati SDI.
// Le transizioni non regrediscono mai; rejected è ammesso da sent e delivered.
func CanTransitionSDI(from, to string) bool {
	if from == to {
		return false
	}
	if IsTerminalSDIStatus(from) {
		return false
	}
	fromRank, okFrom := sdiStatusRank[from]
	toRank, okTo := sdiStatusRank[to]
	if !okFrom || !okTo {
		return false
	}
	if to == SDIStatusRejected {
		return from == SDIStatusSent || from == SDIStatusDelivered
	}
	return toRank == fromRank+1
}

// ElectronicInvoice è la fattura elettronica di una vendita (rapporto 1:1,
// il ciclo di vita è legato alla vendita). Mai cancellata fisicamente
// (solo soft delete, per audit).
//
// Invariante: XMLContent è immutabile dopo che SDIStatus esce da
// draft/generated — ogni correzione richiede una nota di credito o una
// fattura sostitutiva, mai una modifica in place.
type ElectronicInvoice struct {
	ID          string
	StructureID string
	SaleID      string

	XMLContent         string
	XMLVersion         string // "1.2.1"
	TransmissionID     string // ProgressivoInvio, 10 caratteri, UNIQUE
	TransmissionFormat string // FPR12 | FPA12

	SDIStatus          string
	SDIStatusUpdatedAt time.Time
	SDIExternalID      string // id assegnato dal provider di trasmissione
	SDIReceiptXML      string // ricevuta SDI (esito/consegna)
	SDIErrorMessages   string // messaggi di scarto grezzi

	XMLFilePath string // path su storage del file XML
	PDFFilePath string // copia di cortesia PDF (eliminata in anonimizzazione)

	// Conservazione sostitutiva
	PreservedAt           *time.Time
	PreservationHash      string // SHA-256 sui byte dei file archiviati
	PreservationPath      string
	PreservationExpiresAt *time.Time
	PreservationDeletedAt *time.Time // artefatto fisico eliminato, riga conservata

	// Anonimizzazione GDPR (terminale, irreversibile)
	AnonymizedAt *time.Time
	AnonymizedBy string

	SendAttempts      int
	LastSendAttemptAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time // soft delete
}

// XMLLocked indica se il contenuto XML è ormai immutabile (stato oltre generated).
func (e *ElectronicInvoice) XMLLocked() bool {
	rank, ok := sdiStatusRank[e.SDIStatus]
	return ok && rank > sdiStatusRank[SDIStatusGenerated]
}

// IsPreserved indica se la fattura è già in conservazione.
func (e *ElectronicInvoice) IsPreserved() bool {
	return e.PreservedAt != nil
}

// IsAnonymized indica se la fattura è già stata anonimizzata.
func (e *ElectronicInvoice) IsAnonymized() bool {
	return e.AnonymizedAt != nil
}
