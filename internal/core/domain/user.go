package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of actor kinds known to the clinic.
type Role string

const (
	RolePatient  Role = "patient"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// ParseRole converts raw input into a Role. Unknown values are rejected.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RolePatient, RoleProvider, RoleAdmin:
		return r, nil
	default:
		return "", Invalid(fmt.Sprintf("unknown role %q", s))
	}
}

// SelfRegistrable reports whether the role may be chosen through public sign-up.
func (r Role) SelfRegistrable() bool {
	return r == RolePatient || r == RoleProvider
}

// User models an account in the system.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Actor is the authenticated caller of an operation, as asserted by its token.
type Actor struct {
	UserID int64
	Email  string
	Role   Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
