package entity

import "time"

// Esiti di un tentativo di invio.
const (
	SendAttemptOK     = "ok"
	SendAttemptFailed = "failed"
)

// SendAttempt è una riga dell'audit trail di trasmissione
// (electronic_invoice_send_attempts): append-only, mai aggiornata né
// cancellata; AttemptNumber strettamente crescente per fattura.
type SendAttempt struct {
	ID            string
	InvoiceID     string
	AttemptNumber int
	Status        string // ok | failed
	RequestBody   string // payload inviato (XML)
	ResponseBody  string // risposta grezza del provider
	ErrorText     string
	CreatedAt     time.Time
}
