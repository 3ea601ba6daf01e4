package models

import (
	"time"
)

const (
	AuthSourceLocal = "local"
	AuthSourceLDAP  = "ldap"
)

type User struct {
	ID           string `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	Email        string `gorm:"index"`
	FullName     string
	PasswordHash string // empty when no local password may be used
	IsSuperuser  bool   `gorm:"not null;default:false"`

	// Directory account the user was first materialized from
	ExternalID string `gorm:"index"`
	AuthSource string `gorm:"default:'local'"`

	// Normalized directory username the account was created for. It differs
	// from Username only when the stored name had to be made unique. Nil for
	// local accounts.
	MappedUsername *string `gorm:"uniqueIndex"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasUsablePassword reports whether the user can log in with a local password.
func (u *User) HasUsablePassword() bool {
	return u.PasswordHash != ""
}

// IsExternal returns true if the account was created by a directory login
func (u *User) IsExternal() bool {
	return u.AuthSource != AuthSourceLocal && u.AuthSource != ""
}
