package sdi

import (
	_ "embed"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

// Livelli di severità degli errori SDI.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
)

// severityPriority ordina le severità per la priorità dei suggerimenti.
var severityPriority = map[string]int{
	SeverityCritical: 3,
	SeverityHigh:     2,
	SeverityMedium:   1,
}

// La tabella codice → metadati è dato di riferimento versionato, esterno alla
// logica: il SDI rivede periodicamente l'elenco dei controlli in modo
// indipendente dal resto del sistema.
//
//go:embed sdi_errors.json
var sdiErrorsJSON []byte

// ParsedError è un errore di scarto SDI strutturato e actionable.
type ParsedError struct {
	Code        string `json:"code"`        // codice SDI a 5 cifre, vuoto se non riconosciuto
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
	Severity    string `json:"severity"` // critical | high | medium
	AutoFixable bool   `json:"auto_fixable"`
	DocLink     string `json:"doc_link"`
	Raw         string `json:"raw"` // frammento originale del provider
}

// ErrorSummary aggregato per severità di una lista di errori parsati.
type ErrorSummary struct {
	Total       int  `json:"total"`
	Critical    int  `json:"critical"`
	High        int  `json:"high"`
	Medium      int  `json:"medium"`
	HasCritical bool `json:"has_critical"`
}

type errorMeta struct {
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
	Severity    string `json:"severity"`
	AutoFixable bool   `json:"auto_fixable"`
	DocLink     string `json:"doc_link"`
}

type errorCatalogue struct {
	Version string               `json:"version"`
	Source  string               `json:"source"`
	Errors  map[string]errorMeta `json:"errors"`
}

// ErrorClassifier traduce il testo di scarto grezzo del SDI in record
// strutturati. I codici non riconosciuti degradano a un record generico di
// severità media che conserva il testo originale.
type ErrorClassifier struct {
	catalogue errorCatalogue
}

// NewErrorClassifier carica la tabella di riferimento embedded.
func NewErrorClassifier() (*ErrorClassifier, error) {
	var cat errorCatalogue
	if err := json.Unmarshal(sdiErrorsJSON, &cat); err != nil {
		return nil, err
	}
	return &ErrorClassifier{catalogue: cat}, nil
}

// CatalogueVersion restituisce la versione della tabella di riferimento.
func (c *ErrorClassifier) CatalogueVersion() string {
	return c.catalogue.Version
}

// codePattern riconosce un codice errore SDI a 5 cifre nel frammento.
var codePattern = regexp.MustCompile(`\b(\d{5})\b`)

// ParseErrors spezza il testo grezzo su newline o punto e virgola, scarta i
// frammenti vuoti e produce un record per frammento, nell'ordine di
// apparizione.
func (c *ErrorClassifier) ParseErrors(rawText string) []ParsedError {
	fragments := splitFragments(rawText)
	out := make([]ParsedError, 0, len(fragments))
	for _, frag := range fragments {
		out = append(out, c.classify(frag))
	}
	return out
}

func (c *ErrorClassifier) classify(fragment string) ParsedError {
	if m := codePattern.FindStringSubmatch(fragment); m != nil {
		code := m[1]
		if meta, ok := c.catalogue.Errors[code]; ok {
			return ParsedError{
				Code:        code,
				Description: meta.Description,
				Suggestion:  meta.Suggestion,
				Severity:    meta.Severity,
				AutoFixable: meta.AutoFixable,
				DocLink:     meta.DocLink,
				Raw:         fragment,
			}
		}
	}
	// Codice non in tabella: record generico ma comunque leggibile,
	// che non perde il testo del provider.
	return ParsedError{
		Description: fragment,
		Suggestion:  "Errore non classificato: verificare i dati della fattura e contattare l'assistenza se il problema persiste.",
		Severity:    SeverityMedium,
		Raw:         fragment,
	}
}

func splitFragments(rawText string) []string {
	split := strings.FieldsFunc(rawText, func(r rune) bool {
		return r == '\n' || r == ';'
	})
	out := make([]string, 0, len(split))
	for _, s := range split {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// CanAutoFix è vero solo se ogni errore è individualmente auto-riparabile
// (congiunzione: un solo errore non riparabile blocca l'intero lotto).
// Lista vuota → false: nessuna evidenza su cui decidere.
func CanAutoFix(errs []ParsedError) bool {
	if len(errs) == 0 {
		return false
	}
	for _, e := range errs {
		if !e.AutoFixable {
			return false
		}
	}
	return true
}

// Summarize aggrega i conteggi per severità.
func Summarize(errs []ParsedError) ErrorSummary {
	s := ErrorSummary{Total: len(errs)}
	for _, e := range errs {
		switch e.Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityHigh:
			s.High++
		default:
			s.Medium++
		}
	}
	s.HasCritical = s.Critical > 0
	return s
}

// SortBySeverity ordina gli errori per priorità decrescente (critical prima),
// stabile sull'ordine di parsing a parità di severità.
func SortBySeverity(errs []ParsedError) {
	sort.SliceStable(errs, func(i, j int) bool {
		return severityPriority[errs[i].Severity] > severityPriority[errs[j].Severity]
	})
}
