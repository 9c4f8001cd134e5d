package dto

import "time"

// RegisterRequest payload di registrazione utente.
type RegisterRequest struct {
	StructureID string `json:"structure_id" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	Name        string `json:"name"`
	Role        string `json:"role"` // admin | segreteria | istruttore
}

// LoginRequest payload di login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse rappresentazione pubblica dell'utente (mai l'hash password).
type UserResponse struct {
	ID          string    `json:"id"`
	StructureID string    `json:"structure_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LoginResponse token JWT più l'utente autenticato.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}
