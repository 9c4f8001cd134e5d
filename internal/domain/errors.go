package domain

import "errors"

// Errori di dominio (senza dipendenze esterne).
var (
	ErrNotFound           = errors.New("risorsa non trovata")
	ErrUserNotFound       = errors.New("utente non trovato")
	ErrEmailAlreadyExists = errors.New("email già registrata")
	ErrInvalidInput       = errors.New("input non valido")
	ErrDuplicate          = errors.New("risorsa duplicata")
	ErrUnauthorized       = errors.New("non autorizzato")
	ErrForbidden          = errors.New("accesso negato")
	ErrConflict           = errors.New("conflitto con lo stato corrente")

	// Errori fiscali (precondizioni, mai ritentati automaticamente)
	ErrMissingFiscalData  = errors.New("dati fiscali obbligatori mancanti")
	ErrInvoiceNotAccepted = errors.New("la fattura non è in stato accepted")
	ErrInvoiceLocked      = errors.New("XML immutabile dopo la trasmissione")
	ErrAlreadyAnonymized  = errors.New("fattura già anonimizzata")
	ErrNoInvoicesInPeriod = errors.New("nessuna fattura conservata nel periodo")
	ErrInvalidTransition  = errors.New("transizione di stato SDI non ammessa")
)

// MissingFieldError segnala un campo fiscale mancante alla generazione XML.
// Espone il nome del campo per un messaggio utente actionable.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "campo fiscale mancante: " + e.Field
}

// Unwrap consente errors.Is(err, ErrMissingFiscalData).
func (e *MissingFieldError) Unwrap() error { return ErrMissingFiscalData }
