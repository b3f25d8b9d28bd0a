package models

import "github.com/golang-jwt/jwt/v5"

// Identity role for platform administrators; everyone else is RoleStudent.
const RoleAdmin = "admin"

// Claims defines the structure of the JWT claims issued by the platform.
type Claims struct {
	StudentID string `json:"student_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the verified caller resolved from a bearer token.
type Identity struct {
	StudentID string `json:"student_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
