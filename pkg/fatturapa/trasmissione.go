package fatturapa

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProgressivoInvio è l'identificativo di trasmissione SDI: 10 caratteri
// alfanumerici, univoco per coppia (IdPaese, IdCodice) del trasmittente.
//
// Algoritmo: ultime 5 cifre del timestamp YmdHis + 5 caratteri esadecimali
// maiuscoli derivati da un UUID fresco. Non è garantita l'unicità globale per
// chiamate concorrenti nello stesso secondo con suffisso casuale coincidente:
// la probabilità è trascurabile e il vincolo UNIQUE su transmission_id in DB
// è la vera garanzia di correttezza (insert fallito → il chiamante rigenera).
const TransmissionIDLength = 10

// NewTransmissionID genera un nuovo ProgressivoInvio a partire dall'istante now.
func NewTransmissionID(now time.Time) string {
	ts := now.Format("20060102150405") // YmdHis
	tsPart := ts[len(ts)-5:]

	token := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return tsPart + token[:5]
}
