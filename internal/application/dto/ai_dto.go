package dto

// AIRejectionAdviceDTO è il suggerimento del modello per uno scarto SDI non
// coperto dal catalogo dei codici. Non sostituisce il classificatore: arricchisce
// la risposta quando il testo di scarto non contiene codici riconosciuti.
type AIRejectionAdviceDTO struct {
	ProbableCause   string  `json:"probable_cause"`
	SuggestedFix    string  `json:"suggested_fix"`
	AffectedElement string  `json:"affected_element,omitempty"` // elemento XML FatturaPA indiziato
	ConfidenceScore float64 `json:"confidence_score"`           // 0.0–1.0
}
