package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/palestra-cloud/gestionale-api/internal/application/dto"
	"github.com/palestra-cloud/gestionale-api/internal/application/ports"
)

// Verifica in fase di compilazione che AnthropicService implementi LLMService.
var _ ports.LLMService = (*AnthropicService)(nil)

const (
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion     = "2023-06-01"

	anthropicSystemPrompt = `Sei un esperto di fatturazione elettronica italiana (FatturaPA, Sistema di Interscambio).
Restituisci ESCLUSIVAMENTE un oggetto JSON valido (senza markdown, senza blocchi di codice` + " ```json" + `) con questa struttura esatta:
{
  "probable_cause": "<causa probabile dello scarto, in italiano, massimo 200 caratteri>",
  "suggested_fix": "<correzione concreta da applicare prima del reinvio, massimo 200 caratteri>",
  "affected_element": "<elemento XML FatturaPA indiziato, o stringa vuota>",
  "confidence_score": <numero decimale tra 0.0 e 1.0>
}

Regole:
- affected_element: path XML rispetto alla radice FatturaElettronica, vuoto se non determinabile.
- confidence_score: 0.9–1.0 = certezza alta, 0.7–0.89 = probabile, <0.7 = stima.
- Non includere testo fuori dal JSON. Solo l'oggetto JSON.`
)

// AnthropicService adattatore che implementa LLMService usando la API REST di
// Anthropic (Claude). Usa net/http della libreria standard; non richiede l'SDK
// ufficiale.
type AnthropicService struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewAnthropicService costruisce l'adattatore.
// model di solito è "claude-3-5-haiku-20241022".
// Con apiKey vuota le chiamate restituiscono un errore descrittivo invece di panic.
func NewAnthropicService(apiKey, model string) *AnthropicService {
	return &AnthropicService{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			// Timeout di rete 25 s; lo use case impone anche un context.WithTimeout di 10 s.
			Timeout: 25 * time.Second,
		},
	}
}

// ── Strutture interne del protocollo Anthropic Messages API ───────────────────

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// jsonBlockRe estrae il primo oggetto JSON dal testo anche se Claude lo
// avvolge in markdown. Cattura dal primo '{' all'ultimo '}'.
var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// ── Implementazione della porta ───────────────────────────────────────────────

// SuggestRejectionFix invia il testo di scarto a Claude e restituisce la
// correzione suggerita.
func (s *AnthropicService) SuggestRejectionFix(
	ctx context.Context,
	rejectionText string,
) (*dto.AIRejectionAdviceDTO, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("AI: ANTHROPIC_API_KEY non configurata")
	}

	userContent := fmt.Sprintf("Testo di scarto SDI:\n%s", rejectionText)

	payload := anthropicRequest{
		Model:     s.model,
		MaxTokens: 1024,
		System:    anthropicSystemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: userContent},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("AI: serializzazione request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicMessagesURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("AI: creazione HTTP request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")

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

	// Gestire gli errori HTTP della API di Anthropic
	if resp.StatusCode != http.StatusOK {
		var errResp anthropicResponse
		if jsonErr := json.Unmarshal(rawBody, &errResp); jsonErr == nil && errResp.Error != nil {
			return nil, fmt.Errorf("AI: Anthropic errore (%s): %s", errResp.Error.Type, errResp.Error.Message)
		}
		return nil, fmt.Errorf("AI: Anthropic HTTP %d: %s", resp.StatusCode, string(rawBody))
	}

	var anthResp anthropicResponse
	if err := json.Unmarshal(rawBody, &anthResp); err != nil {
		return nil, fmt.Errorf("AI: deserializzazione risposta Anthropic: %w", err)
	}

	if len(anthResp.Content) == 0 {
		return nil, fmt.Errorf("AI: Claude ha restituito una risposta vuota")
	}

	rawText := anthResp.Content[0].Text

	// Parsing difensivo: estrarre solo il blocco JSON anche se Claude
	// aggiunge testo attorno.
	cleanJSON := extractJSON(rawText)
	if cleanJSON == "" {
		return nil, fmt.Errorf("AI: nessun JSON valido nella risposta del modello (risposta: %s)", rawText)
	}

	var advice llmAdvicePayload
	if err := json.Unmarshal([]byte(cleanJSON), &advice); err != nil {
		return nil, fmt.Errorf("AI: parsing JSON del suggerimento: %w (JSON estratto: %s)", err, cleanJSON)
	}

	return &dto.AIRejectionAdviceDTO{
		ProbableCause:   advice.ProbableCause,
		SuggestedFix:    advice.SuggestedFix,
		AffectedElement: advice.AffectedElement,
		ConfidenceScore: clampConfidence(advice.ConfidenceScore),
	}, nil
}

// extractJSON estrae il primo oggetto JSON ben formato da un testo libero.
// Strategia in due passi:
//  1. Rimuovere i blocchi di codice markdown (```json … ``` o ``` … ```).
//  2. Regex per catturare il primo blocco { … }.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```"); idx != -1 {
		// Togliere la riga di apertura (```json o ```)
		after := text[idx+3:]
		if nl := strings.Index(after, "\n"); nl != -1 {
			after = after[nl+1:]
		}
		// Togliere la chiusura ```
		if close := strings.LastIndex(after, "```"); close != -1 {
			after = after[:close]
		}
		text = strings.TrimSpace(after)
	}

	// Se il testo risultante inizia già con '{', usarlo direttamente
	if strings.HasPrefix(text, "{") {
		return text
	}

	// Fallback: regex per estrarre il primo {...}
	match := jsonBlockRe.FindString(text)
	return strings.TrimSpace(match)
}
