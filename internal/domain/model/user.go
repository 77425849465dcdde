package model

import (
	"slices"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	HashedPassword string    `json:"-"` // Not exposed
	Roles          []string  `json:"roles"`
	CreatedAt      time.Time `json:"created_at"`
}

func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// Identity is the caller resolved from a bearer token. It lives only as
// long as the request that carried the token.
type Identity struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}
