package sdi

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"
)

// Testo placeholder fisso per i nodi anonimizzati. La forma strutturale del
// documento resta intatta (conformità allo schema), cambia solo il testo.
const (
	AnonymizedText = "DATO ANONIMIZZATO"
	AnonymizedCode = "ANONIMIZZATO"
)

// anonymizePaths sono i percorsi etree dei nodi testo con dati personali del
// cessionario. I dati del cedente (la struttura) restano: sono dati fiscali
// dell'emittente, non dati personali del cliente.
var anonymizePaths = []struct {
	path string
	text string
}{
	{"//CessionarioCommittente//Anagrafica/Denominazione", AnonymizedText},
	{"//CessionarioCommittente//Anagrafica/Nome", AnonymizedText},
	{"//CessionarioCommittente//Anagrafica/Cognome", AnonymizedText},
	{"//CessionarioCommittente/DatiAnagrafici/CodiceFiscale", AnonymizedCode},
	{"//CessionarioCommittente/DatiAnagrafici/IdFiscaleIVA/IdCodice", AnonymizedCode},
	{"//CessionarioCommittente/Sede/Indirizzo", AnonymizedText},
	{"//CessionarioCommittente/Sede/NumeroCivico", ""},
	{"//CessionarioCommittente/Sede/Comune", AnonymizedText},
	{"//DatiTrasmissione/PECDestinatario", AnonymizedText},
	{"//DettaglioLinee/Descrizione", AnonymizedText},
}

// XMLAnonymizer riscrive in place i nodi testo con dati personali del XML
// conservato, lasciando invariata la struttura. L'output è canonicalizzato
// (C14N) così che la riscrittura sia deterministica e il nuovo hash di
// conservazione stabile.
type XMLAnonymizer struct{}

// NewXMLAnonymizer crea il servizio.
func NewXMLAnonymizer() *XMLAnonymizer {
	return &XMLAnonymizer{}
}

// Anonymize sostituisce i nodi testo indicati da anonymizePaths con il
// placeholder fisso e restituisce il documento canonicalizzato. Operazione
// one-way: il testo originale non è recuperabile dal risultato.
func (a *XMLAnonymizer) Anonymize(xmlContent []byte) ([]byte, error) {
	if len(xmlContent) == 0 {
		return nil, fmt.Errorf("sdi: XML vuoto")
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlContent); err != nil {
		return nil, fmt.Errorf("sdi: parse XML da anonimizzare: %w", err)
	}

	for _, p := range anonymizePaths {
		for _, el := range doc.FindElements(p.path) {
			el.SetText(p.text)
		}
	}

	rewritten, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("sdi: serializzare XML anonimizzato: %w", err)
	}

	// C14N: l'ordine degli attributi e le entità non dipendono più dal
	// serializzatore, quindi l'hash ricalcolato in conservazione è stabile.
	canonical, err := c14n.Canonicalize(xml.NewDecoder(bytes.NewReader(rewritten)))
	if err != nil {
		return nil, fmt.Errorf("sdi: canonicalizzare XML anonimizzato: %w", err)
	}
	return canonical, nil
}
