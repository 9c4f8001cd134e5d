package sdi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/palestra-cloud/gestionale-api/internal/domain/entity"
)

// Codici di stato del provider SDI (campo sdi_stato).
const (
	ProviderStatusInviata       = "INVI" // inviata al SDI
	ProviderStatusPrenotata     = "PREN" // presa in carico, non ancora inviata
	ProviderStatusConsegnata    = "CONS" // consegnata al destinatario
	ProviderStatusAccettata     = "ACCE" // accettata dal destinatario
	ProviderStatusRifiutata     = "RIFI" // rifiutata dal destinatario
	ProviderStatusNonConsegnata = "NONC" // scartata dal SDI / non consegnabile
	ProviderStatusDecorrenza    = "DECO" // decorrenza termini: accettazione implicita
	ProviderStatusErrore        = "ERRO" // errore di elaborazione
)

// MapProviderStatus traduce il codice di stato del provider nello stato SDI
// interno. La mappa è chiusa ed esaustiva sui codici documentati; un codice
// sconosciuto degrada a "sent" (default sicuro: l'invio è avvenuto, lo stato
// vero arriverà al prossimo polling).
func MapProviderStatus(code string) string {
	switch code {
	case ProviderStatusInviata:
		return entity.SDIStatusSent
	case ProviderStatusPrenotata:
		return entity.SDIStatusGenerated
	case ProviderStatusConsegnata:
		return entity.SDIStatusDelivered
	case ProviderStatusAccettata, ProviderStatusDecorrenza:
		return entity.SDIStatusAccepted
	case ProviderStatusRifiutata, ProviderStatusNonConsegnata, ProviderStatusErrore:
		return entity.SDIStatusRejected
	default:
		return entity.SDIStatusSent
	}
}

// SendResult esito della consegna al provider SDI.
type SendResult struct {
	OK             bool   // false = fallimento di trasporto o di protocollo
	ExternalID     string // id assegnato dal provider
	ProviderStatus string // sdi_stato grezzo
	InternalStatus string // stato SDI interno mappato
	SDIID          string // sdi_identificativo (identificativo SDI ufficiale)
	Message        string // sdi_messaggio o corpo d'errore grezzo
	RawResponse    string
}

// StatusResult esito di una consulta stato.
type StatusResult struct {
	ProviderStatus string
	InternalStatus string
	Message        string
	ReceiptXML     string
}

// Gateway definisce la porta di uscita verso il canale SDI.
// L'implementazione concreta usa l'API HTTP del provider; nei test si inietta un fake.
type Gateway interface {
	// Send invia il XML grezzo. Il fallimento (rete, HTTP, protocollo) è un
	// risultato taggato (OK=false), mai un errore: l'invio è tipicamente
	// invocato da un job batch che deve proseguire con la fattura successiva.
	Send(ctx context.Context, xmlContent []byte) *SendResult

	// CheckStatus, DownloadPDF e DownloadReceipt restituiscono nil (non un
	// errore) quando la chiamata fallisce o l'esito non è ancora disponibile:
	// il chiamante tratta nil come "riprova più tardi".
	CheckStatus(ctx context.Context, externalID string) *StatusResult
	DownloadPDF(ctx context.Context, externalID string) []byte
	DownloadReceipt(ctx context.Context, externalID string) []byte
}

// ClientConfig configurazione del client HTTP del provider SDI.
type ClientConfig struct {
	Endpoint        string
	SandboxEndpoint string
	Username        string
	Password        string
	Sandbox         bool
}

// Client implementa Gateway sull'API REST del provider intermediario.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
}

var _ Gateway = (*Client)(nil)

// NewClient costruisce il client con timeout di rete generoso (60 s): il
// canale SDI può impiegare diversi secondi a rispondere. La verifica TLS è
// disattivata solo in sandbox, mai in produzione.
func NewClient(cfg ClientConfig) *Client {
	transport := &http.Transport{}
	if cfg.Sandbox {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   60 * time.Second,
			Transport: transport,
		},
	}
}

func (c *Client) baseURL() string {
	if c.cfg.Sandbox && c.cfg.SandboxEndpoint != "" {
		return c.cfg.SandboxEndpoint
	}
	return c.cfg.Endpoint
}

// providerResponse campi JSON consumati dalla risposta del provider.
type providerResponse struct {
	ID                string `json:"id"`
	SDIStato          string `json:"sdi_stato"`
	SDIIdentificativo string `json:"sdi_identificativo"`
	SDIMessaggio      string `json:"sdi_messaggio"`
}

// Send esegue POST {endpoint}/fatture con il corpo XML grezzo (non multipart)
// e Basic Auth. Timeout e fallimenti di rete sono trattati come un errore
// HTTP: tentativo fallito, mai stato in-flight ambiguo.
func (c *Client) Send(ctx context.Context, xmlContent []byte) *SendResult {
	url := c.baseURL() + "/fatture"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(xmlContent))
	if err != nil {
		return &SendResult{OK: false, Message: fmt.Sprintf("creazione request: %v", err)}
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &SendResult{OK: false, Message: fmt.Sprintf("chiamata HTTP fallita: %v", err)}
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // max 1 MB
	if err != nil {
		return &SendResult{OK: false, Message: fmt.Sprintf("lettura risposta: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &SendResult{
			OK:          false,
			Message:     fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(rawBody)),
			RawResponse: string(rawBody),
		}
	}

	var pr providerResponse
	if err := json.Unmarshal(rawBody, &pr); err != nil {
		return &SendResult{
			OK:          false,
			Message:     "risposta provider non parsabile: " + string(rawBody),
			RawResponse: string(rawBody),
		}
	}

	return &SendResult{
		OK:             true,
		ExternalID:     pr.ID,
		ProviderStatus: pr.SDIStato,
		InternalStatus: MapProviderStatus(pr.SDIStato),
		SDIID:          pr.SDIIdentificativo,
		Message:        pr.SDIMessaggio,
		RawResponse:    string(rawBody),
	}
}

// CheckStatus esegue GET {endpoint}/fatture/{id}. nil = riprova più tardi.
func (c *Client) CheckStatus(ctx context.Context, externalID string) *StatusResult {
	if externalID == "" {
		return nil
	}
	body := c.get(ctx, "/fatture/"+externalID)
	if body == nil {
		return nil
	}
	var pr providerResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil
	}
	return &StatusResult{
		ProviderStatus: pr.SDIStato,
		InternalStatus: MapProviderStatus(pr.SDIStato),
		Message:        pr.SDIMessaggio,
	}
}

// DownloadPDF esegue GET {endpoint}/fatture/{id}/pdf. nil = non disponibile.
func (c *Client) DownloadPDF(ctx context.Context, externalID string) []byte {
	if externalID == "" {
		return nil
	}
	return c.get(ctx, "/fatture/"+externalID+"/pdf")
}

// DownloadReceipt esegue GET {endpoint}/fatture/{id}/notifica (ricevuta SDI).
func (c *Client) DownloadReceipt(ctx context.Context, externalID string) []byte {
	if externalID == "" {
		return nil
	}
	return c.get(ctx, "/fatture/"+externalID+"/notifica")
}

func (c *Client) get(ctx context.Context, path string) []byte {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+path, nil)
	if err != nil {
		return nil
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil
	}
	return body
}
