package models

import "time"

// Role classifies marketplace users.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEngineer Role = "engineer"
	RoleClient   Role = "client"
	RoleCustomer Role = "customer"
	RoleSystem   Role = "system"
)

// SystemUsername is the reserved identity used as the author of automated
// chat messages.
const SystemUsername = "system"

// User represents a marketplace account.
type User struct {
	ID        int       `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Role      Role      `db:"role" json:"role"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
