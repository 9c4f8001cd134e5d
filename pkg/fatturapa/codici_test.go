package fatturapa_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/palestra-cloud/gestionale-api/pkg/fatturapa"
)

// ──────────────────────────────────────────────────────────────────────────────
// Partita IVA: controllo di Luhn sulle 11 cifre.
// "01234567897": base 0123456789, cifra di controllo 7.
// ──────────────────────────────────────────────────────────────────────────────

func TestValidatePartitaIVA_Valida(t *testing.T) {
	assert.NoError(t, fatturapa.ValidatePartitaIVA("01234567897"))
	assert.NoError(t, fatturapa.ValidatePartitaIVA("00000000000"))
	// Con prefisso paese e spazi
	assert.NoError(t, fatturapa.ValidatePartitaIVA("IT01234567897"))
	assert.NoError(t, fatturapa.ValidatePartitaIVA("  01234567897  "))
}

func TestValidatePartitaIVA_CifraControlloErrata(t *testing.T) {
	assert.Error(t, fatturapa.ValidatePartitaIVA("01234567890"))
	assert.Error(t, fatturapa.ValidatePartitaIVA("01234567891"))
}

func TestValidatePartitaIVA_LunghezzaErrata(t *testing.T) {
	assert.Error(t, fatturapa.ValidatePartitaIVA(""))
	assert.Error(t, fatturapa.ValidatePartitaIVA("123"))
	assert.Error(t, fatturapa.ValidatePartitaIVA("012345678970"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Codice fiscale persona fisica: carattere di controllo su 16 caratteri.
// "RSSMRA85T10A562S" è il vettore di esempio delle specifiche.
// ──────────────────────────────────────────────────────────────────────────────

func TestValidateCodiceFiscale_Valido(t *testing.T) {
	assert.NoError(t, fatturapa.ValidateCodiceFiscale("RSSMRA85T10A562S"))
	// Minuscolo accettato
	assert.NoError(t, fatturapa.ValidateCodiceFiscale("rssmra85t10a562s"))
}

func TestValidateCodiceFiscale_CarattereControlloErrato(t *testing.T) {
	assert.Error(t, fatturapa.ValidateCodiceFiscale("RSSMRA85T10A562T"))
	assert.Error(t, fatturapa.ValidateCodiceFiscale("RSSMRA85T10A562Z"))
}

func TestValidateCodiceFiscale_LunghezzaErrata(t *testing.T) {
	assert.Error(t, fatturapa.ValidateCodiceFiscale(""))
	assert.Error(t, fatturapa.ValidateCodiceFiscale("RSSMRA85T10"))
}

// I soggetti diversi dalle persone fisiche hanno codice fiscale numerico:
// in quel caso vale la verifica di partita IVA.
func TestValidateCodiceFiscale_NumericoComePartitaIVA(t *testing.T) {
	assert.NoError(t, fatturapa.ValidateCodiceFiscale("01234567897"))
	assert.Error(t, fatturapa.ValidateCodiceFiscale("01234567890"))
}

func TestValidateCodiceFiscale_CarattereNonAmmesso(t *testing.T) {
	assert.Error(t, fatturapa.ValidateCodiceFiscale("RSSMRA85T10A56-S"))
}
