package entity

import "time"

// Ruoli validi per User.
const (
	RoleAdmin      = "admin"
	RoleSegreteria = "segreteria"
	RoleIstruttore = "istruttore"
)

// User rappresenta un utente del sistema (appartiene a una Structure).
type User struct {
	ID           string
	StructureID  string
	Email        string
	PasswordHash string // hash bcrypt, mai in chiaro nel dominio dopo la persistenza
	Name         string
	Role         string // admin, segreteria, istruttore
	Status       string // active, inactive, suspended
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
