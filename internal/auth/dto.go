// AngelaMos | 2026
// dto.go

package auth

import (
	"time"
)

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

type RegisterRequest struct {
	Email         string `json:"email"                   validate:"required,email,max=255"`
	Password      string `json:"password"                validate:"required,min=6,max=128"`
	FirstName     string `json:"firstName"               validate:"required,notblank,max=100"`
	LastName      string `json:"lastName"                validate:"required,notblank,max=100"`
	Phone         string `json:"phone,omitempty"         validate:"omitempty,max=20"`
	Address       string `json:"address,omitempty"       validate:"omitempty,max=200"`
	City          string `json:"city,omitempty"          validate:"omitempty,max=100"`
	Region        string `json:"region,omitempty"        validate:"omitempty,max=100"`
	LicenseNumber string `json:"licenseNumber,omitempty" validate:"omitempty,max=50"`
}

type AuthResponse struct {
	UserID     int64     `json:"userId"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Token      string    `json:"token"`
	TokenType  string    `json:"tokenType"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Roles      []string  `json:"roles"`
	IsVerified bool      `json:"isVerified"`
	IsActive   bool      `json:"isActive"`
}
