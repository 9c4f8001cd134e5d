package sdi_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palestra-cloud/gestionale-api/internal/infrastructure/sdi"
)

// Frammento FatturaPA minimo con i dati personali del cessionario.
const fatturaConDatiPersonali = `<?xml version="1.0" encoding="UTF-8"?>
<FatturaElettronica versione="FPR12">
  <FatturaElettronicaHeader>
    <DatiTrasmissione>
      <ProgressivoInvio>0304512ABC</ProgressivoInvio>
      <PECDestinatario>mario.rossi@pec.it</PECDestinatario>
    </DatiTrasmissione>
    <CedentePrestatore>
      <DatiAnagrafici>
        <IdFiscaleIVA><IdPaese>IT</IdPaese><IdCodice>01234567897</IdCodice></IdFiscaleIVA>
        <Anagrafica><Denominazione>Palestra Bella Vita SSD</Denominazione></Anagrafica>
      </DatiAnagrafici>
    </CedentePrestatore>
    <CessionarioCommittente>
      <DatiAnagrafici>
        <CodiceFiscale>RSSMRA85T10A562S</CodiceFiscale>
        <Anagrafica><Nome>Mario</Nome><Cognome>Rossi</Cognome></Anagrafica>
      </DatiAnagrafici>
      <Sede>
        <Indirizzo>Via Garibaldi</Indirizzo>
        <NumeroCivico>12</NumeroCivico>
        <Comune>Bologna</Comune>
      </Sede>
    </CessionarioCommittente>
  </FatturaElettronicaHeader>
  <FatturaElettronicaBody>
    <DatiBeniServizi>
      <DettaglioLinee>
        <Descrizione>Abbonamento annuale sala pesi Mario Rossi</Descrizione>
        <PrezzoTotale>500.00</PrezzoTotale>
      </DettaglioLinee>
    </DatiBeniServizi>
  </FatturaElettronicaBody>
</FatturaElettronica>`

func TestAnonymize_RimuoveDatiPersonaliCessionario(t *testing.T) {
	out, err := sdi.NewXMLAnonymizer().Anonymize([]byte(fatturaConDatiPersonali))
	require.NoError(t, err)
	s := string(out)

	assert.NotContains(t, s, "Mario")
	assert.NotContains(t, s, "Rossi")
	assert.NotContains(t, s, "RSSMRA85T10A562S")
	assert.NotContains(t, s, "mario.rossi@pec.it")
	assert.NotContains(t, s, "Via Garibaldi")
	assert.NotContains(t, s, "Bologna")
	assert.NotContains(t, s, "Abbonamento annuale")

	assert.Contains(t, s, sdi.AnonymizedText)
	assert.Contains(t, s, sdi.AnonymizedCode)
}

// I dati del cedente sono dati fiscali dell'emittente: restano.
func TestAnonymize_PreservaCedenteEImporti(t *testing.T) {
	out, err := sdi.NewXMLAnonymizer().Anonymize([]byte(fatturaConDatiPersonali))
	require.NoError(t, err)
	s := string(out)

	assert.Contains(t, s, "Palestra Bella Vita SSD")
	assert.Contains(t, s, "01234567897")
	assert.Contains(t, s, "500.00")
	assert.Contains(t, s, "0304512ABC")
}

// La struttura resta conforme allo schema: i nodi anonimizzati esistono
// ancora, cambia solo il testo.
func TestAnonymize_StrutturaIntatta(t *testing.T) {
	out, err := sdi.NewXMLAnonymizer().Anonymize([]byte(fatturaConDatiPersonali))
	require.NoError(t, err)
	s := string(out)

	for _, tag := range []string{"<CodiceFiscale>", "<Nome>", "<Cognome>", "<Indirizzo>", "<Descrizione>"} {
		assert.Contains(t, s, tag, "il nodo %s deve sopravvivere alla riscrittura", tag)
	}
}

// C14N: due riscritture dello stesso documento producono byte identici, così
// l'hash di conservazione ricalcolato è stabile.
func TestAnonymize_Deterministico(t *testing.T) {
	a := sdi.NewXMLAnonymizer()
	out1, err := a.Anonymize([]byte(fatturaConDatiPersonali))
	require.NoError(t, err)
	out2, err := a.Anonymize([]byte(fatturaConDatiPersonali))
	require.NoError(t, err)
	assert.Equal(t, out1, out2)

	// E anche idempotente: anonimizzare il risultato non lo cambia.
	out3, err := a.Anonymize(out1)
	require.NoError(t, err)
	assert.Equal(t, out1, out3)
}

func TestAnonymize_InputNonValido(t *testing.T) {
	a := sdi.NewXMLAnonymizer()

	_, err := a.Anonymize(nil)
	assert.Error(t, err)

	_, err = a.Anonymize([]byte("non è xml <<<"))
	assert.Error(t, err)
}

func TestAnonymize_NumeroCivicoSvuotato(t *testing.T) {
	out, err := sdi.NewXMLAnonymizer().Anonymize([]byte(fatturaConDatiPersonali))
	require.NoError(t, err)
	// Il civico viene svuotato, non sostituito dal placeholder.
	assert.False(t, strings.Contains(string(out), ">12<"), "il numero civico non deve sopravvivere")
}
