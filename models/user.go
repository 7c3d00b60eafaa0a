package models

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleDesk  Role = "desk"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleDesk
}

func ParseRole(v string) (Role, error) {
	r := Role(v)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", v)
	}
	return r, nil
}

// User is a staff account. Passwords live with the identity provider and
// are never part of this type.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Role         Role       `json:"role"`
	CreatedAt    time.Time  `json:"createdAt"`
	CreatedBy    string     `json:"createdBy"`
	IsFirstLogin bool       `json:"isFirstLogin"`
	IsActive     bool       `json:"isActive"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}
