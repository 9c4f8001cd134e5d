package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
	"github.com/palestra-cloud/gestionale-api/internal/application/ports"
)

// Verifica in fase di compilazione che GeminiService implementi LLMService.
var _ ports.LLMService = (*GeminiService)(nil)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s"

	// systemPrompt definisce il ruolo del modello e il formato di uscita.
	// response_mime_type=application/json obbliga Gemini a restituire JSON
	// puro, senza blocchi markdown da ripulire.
	systemPrompt = `Sei un esperto di fatturazione elettronica italiana (FatturaPA, Sistema di Interscambio).
Dato il testo grezzo di uno scarto SDI, restituisci ESCLUSIVAMENTE un oggetto JSON (senza testo aggiuntivo) con questa struttura esatta:
{
  "probable_cause": "<causa probabile dello scarto, in italiano>",
  "suggested_fix": "<correzione concreta da applicare prima del reinvio>",
  "affected_element": "<elemento XML FatturaPA indiziato, es. CedentePrestatore/DatiAnagrafici/IdFiscaleIVA, o stringa vuota>",
  "confidence_score": <numero decimale tra 0.0 e 1.0>
}

Regole:
- probable_cause e suggested_fix: massimo 200 caratteri ciascuno, in italiano.
- affected_element: path XML rispetto alla radice FatturaElettronica, vuoto se non determinabile.
- confidence_score: 0.9–1.0 = certezza alta, 0.7–0.89 = probabile, <0.7 = stima.`
)

// GeminiService adattatore che implementa LLMService chiamando la API REST di
// Google Gemini. Usa solo net/http della libreria standard per non aggiungere
// dipendenze esterne.
type GeminiService struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGeminiService costruisce l'adattatore. model di solito è "gemini-1.5-flash".
// Con apiKey vuota le chiamate restituiscono un errore descrittivo invece di
// fallire in produzione.
func NewGeminiService(apiKey, model string) *GeminiService {
	return &GeminiService{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 20 * time.Second, // timeout di rete; il caller impone anche WithTimeout
		},
	}
}

// ── Strutture interne per la API di Gemini ────────────────────────────────────

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  genConfig       `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type genConfig struct {
	ResponseMIMEType string  `json:"responseMimeType"` // "application/json" → JSON puro garantito
	Temperature      float32 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// llmAdvicePayload è il JSON che ci aspettiamo dal modello.
type llmAdvicePayload struct {
	ProbableCause   string  `json:"probable_cause"`
	SuggestedFix    string  `json:"suggested_fix"`
	AffectedElement string  `json:"affected_element"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// ── Implementazione della porta ───────────────────────────────────────────────

// SuggestRejectionFix invia il testo di scarto a Gemini e restituisce la
// correzione suggerita.
func (s *GeminiService) SuggestRejectionFix(
	ctx context.Context,
	rejectionText string,
) (*dto.AIRejectionAdviceDTO, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("AI: GEMINI_API_KEY non configurata")
	}

	userText := fmt.Sprintf("Testo di scarto SDI:\n%s", rejectionText)

	payload := geminiRequest{
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: systemPrompt}},
		},
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: userText}},
			},
		},
		GenerationConfig: genConfig{
			ResponseMIMEType: "application/json",
			Temperature:      0.2, // temperatura bassa per risposte più deterministiche
			MaxOutputTokens:  256,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("AI: serializzazione request: %w", err)
	}

	url := fmt.Sprintf(geminiBaseURL, s.model, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("AI: creazione HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("AI: timeout o cancellazione: %w", ctx.Err())
		}
		return nil, fmt.Errorf("AI: chiamata HTTP fallita: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("AI: lettura risposta: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// Provare a estrarre il messaggio di errore di Gemini
		var errResp geminiResponse
		if jsonErr := json.Unmarshal(rawBody, &errResp); jsonErr == nil && errResp.Error != nil {
			return nil, fmt.Errorf("AI: Gemini errore %d: %s", errResp.Error.Code, errResp.Error.Message)
		}
		return nil, fmt.Errorf("AI: Gemini HTTP %d", resp.StatusCode)
	}

	var gemResp geminiResponse
	if err := json.Unmarshal(rawBody, &gemResp); err != nil {
		return nil, fmt.Errorf("AI: deserializzazione risposta Gemini: %w", err)
	}

	if len(gemResp.Candidates) == 0 || len(gemResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("AI: Gemini ha restituito una risposta vuota")
	}

	rawJSON := strings.TrimSpace(gemResp.Candidates[0].Content.Parts[0].Text)

	var advice llmAdvicePayload
	if err := json.Unmarshal([]byte(rawJSON), &advice); err != nil {
		return nil, fmt.Errorf("AI: la risposta del modello non è JSON valido: %w (risposta: %s)", err, rawJSON)
	}

	return &dto.AIRejectionAdviceDTO{
		ProbableCause:   advice.ProbableCause,
		SuggestedFix:    advice.SuggestedFix,
		AffectedElement: advice.AffectedElement,
		ConfidenceScore: clampConfidence(advice.ConfidenceScore),
	}, nil
}

// clampConfidence forza il valore nel range [0, 1].
func clampConfidence(raw float64) float64 {
	if raw < 0 {
		return 0
	}
	if raw > 1 {
		return 1
	}
	return raw
}
