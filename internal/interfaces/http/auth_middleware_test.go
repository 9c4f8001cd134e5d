package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/palestra-cloud/gestionale-api/internal/interfaces/http"
	pkgjwt "github.com/palestra-cloud/gestionale-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper di test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret   = "test-secret-key-for-unit-tests"
	testUserID      = "00000000-0000-0000-0000-000000000001"
	testStructureID = "00000000-0000-0000-0000-000000000002"
	testIssuer      = "gestionale-api-test"
	testExpMin      = 60
)

// buildTestApp costruisce una app Fiber minimale con:
//   - AuthMiddleware per il parsing del JWT e il caricamento dei locals
//   - RequireRole per l'autorizzazione
//   - Un handler dummy che risponde 200 se supera i middleware
func buildTestApp(allowedRoles ...string) *fiber.App {
	app := fiber.New(fiber.Config{
		// Silenziare gli errori interni nei test
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})
	// Rotta protetta: JWT + RBAC
	app.Get("/protected",
		apphttp.AuthMiddleware(testJWTSecret),
		apphttp.RequireRole(allowedRoles...),
		func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"ok":   true,
				"role": apphttp.GetRole(c),
			})
		},
	)
	return app
}

// tokenForRole genera un JWT con il ruolo indicato.
func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testStructureID, role, testIssuer, testExpMin)
	require.NoError(t, err, "deve generarsi un token JWT valido")
	return "Bearer " + tok
}

// doRequest lancia una GET /protected e restituisce la risposta.
func doRequest(t *testing.T, app *fiber.App, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// ──────────────────────────────────────────────────────────────────────────────
// Test RequireRole
// ──────────────────────────────────────────────────────────────────────────────

// Caso 1: l'utente ha il ruolo richiesto → deve passare (HTTP 200).
func TestRequireRole_AdminAccedeRottaAdmin(t *testing.T) {
	app := buildTestApp("admin")
	resp := doRequest(t, app, tokenForRole(t, "admin"))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode,
		"admin deve poter accedere a una rotta riservata ad admin")

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ok"], "la risposta deve includere ok:true")
	assert.Equal(t, "admin", body["role"], "il role deve essere admin")
}

// Caso 1b: l'utente ha uno dei ruoli ammessi (multi-ruolo) → HTTP 200.
func TestRequireRole_SegreteriaAccedeRottaAdminOSegreteria(t *testing.T) {
	app := buildTestApp("admin", "segreteria")
	resp := doRequest(t, app, tokenForRole(t, "segreteria"))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode,
		"segreteria deve poter accedere a una rotta che ammette admin o segreteria")
}

// Caso 2: l'utente ha un ruolo diverso da quello richiesto → HTTP 403.
func TestRequireRole_IstruttoreBloccatoSuRottaAdmin(t *testing.T) {
	app := buildTestApp("admin")
	resp := doRequest(t, app, tokenForRole(t, "istruttore"))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode,
		"istruttore non deve poter accedere a una rotta riservata ad admin")

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "FORBIDDEN",
		"la risposta di errore deve includere il codice FORBIDDEN")
}

// Caso 2b: segreteria bloccata su rotta solo istruttore → HTTP 403.
func TestRequireRole_SegreteriaBloccataSuRottaIstruttore(t *testing.T) {
	app := buildTestApp("istruttore")
	resp := doRequest(t, app, tokenForRole(t, "segreteria"))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// Caso 3: token senza claim role (token legacy) → HTTP 401.
func TestRequireRole_TokenSenzaRuolo_Restituisce401(t *testing.T) {
	app := buildTestApp("admin")
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testStructureID, "", testIssuer, testExpMin)
	require.NoError(t, err)

	resp := doRequest(t, app, "Bearer "+tok)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode,
		"un token senza role deve restituire 401")

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "MISSING_ROLE",
		"la risposta deve indicare il codice MISSING_ROLE")
}

// Caso 4: senza header Authorization → HTTP 401 MISSING_TOKEN.
func TestRequireRole_SenzaAuthHeader_Restituisce401(t *testing.T) {
	app := buildTestApp("admin")
	resp := doRequest(t, app, "") // senza header
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// Caso 5: token non valido / malformato → HTTP 401 INVALID_TOKEN.
func TestRequireRole_TokenNonValido_Restituisce401(t *testing.T) {
	app := buildTestApp("admin")
	resp := doRequest(t, app, "Bearer token.non.valido")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Test AuthMiddleware — estrazione dei claims dal token
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthMiddleware_EstraeClaims(t *testing.T) {
	app := fiber.New()
	app.Get("/me", apphttp.AuthMiddleware(testJWTSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":      apphttp.GetUserID(c),
			"structure_id": apphttp.GetStructureID(c),
			"role":         apphttp.GetRole(c),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", tokenForRole(t, "admin"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, testStructureID, body["structure_id"])
	assert.Equal(t, "admin", body["role"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Test pkg/jwt — integrità di generate/parse con role
// ──────────────────────────────────────────────────────────────────────────────

func TestJWT_GenerateAndParse_ConRole(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testStructureID, "segreteria", testIssuer, testExpMin)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	userID, structureID, role, err := pkgjwt.Parse(testJWTSecret, tok)
	require.NoError(t, err)

	assert.Equal(t, testUserID, userID)
	assert.Equal(t, testStructureID, structureID)
	assert.Equal(t, "segreteria", role)
}

func TestJWT_TokenScaduto_RestituisceErrore(t *testing.T) {
	// Token con scadenza -1 minuto (già scaduto)
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testStructureID, "admin", testIssuer, -1)
	require.NoError(t, err)

	_, _, _, err = pkgjwt.Parse(testJWTSecret, tok)
	assert.Error(t, err, "un token scaduto deve restituire errore")
}

func TestJWT_SecretErrato_RestituisceErrore(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testStructureID, "admin", testIssuer, testExpMin)
	require.NoError(t, err)

	_, _, _, err = pkgjwt.Parse("altro-secret", tok)
	assert.Error(t, err, "un secret errato deve invalidare la firma")
}
