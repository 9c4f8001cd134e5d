package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims include i claims JWT standard più i campi applicativi.
// Role permette al middleware RBAC di decidere senza toccare il DB.
type Claims struct {
	jwt.RegisteredClaims
	UserID      string `json:"user_id"`
	StructureID string `json:"structure_id"`
	Role        string `json:"role"` // "admin" | "segreteria" | "istruttore"
}

// Generate genera un token JWT firmato con userID, structureID e role.
func Generate(secret, userID, structureID, role, issuer string, expMinutes int) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vuoto")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		UserID:      userID,
		StructureID: structureID,
		Role:        role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse valida il token e restituisce userID, structureID e role.
// Errore se il token è invalido, scaduto o con firma errata.
func Parse(secret, tokenString string) (userID, structureID, role string, err error) {
	if secret == "" {
		return "", "", "", fmt.Errorf("jwt: secret vuoto")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("metodo di firma inatteso: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", "", "", err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", "", "", fmt.Errorf("claims non validi")
	}
	return claims.UserID, claims.StructureID, claims.Role, nil
}
