// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Preferences is an opaque caller-defined document (JSON in practice).
// The core stores and returns it verbatim and never parses it.
type Preferences []byte

// EmptyPreferences is returned for users that have no document recorded.
var EmptyPreferences = Preferences("{}")

// Clone returns a copy that does not share the underlying array.
func (p Preferences) Clone() Preferences {
	if p == nil {
		return nil
	}
	return append(Preferences(nil), p...)
}

// String returns the document as text.
func (p Preferences) String() string { return string(p) }

// User represents an account and its preferences document.
type User struct {
	ID           int64  // PK, assigned by storage
	Username     string // unique, exact match
	Email        string
	PasswordHash string // opaque, compared only through a crypto.Verifier
	Preferences  Preferences
	CreatedAt    time.Time
}

// Clone returns a deep copy of the user.
func (u User) Clone() User {
	u.Preferences = u.Preferences.Clone()
	return u
}

// FridgeItem is a named inventory record owned by one user.
type FridgeItem struct {
	ID        int64 // synthetic row id, unambiguous handle for mutation
	UserID    int64 // FK -> users.id
	Name      string
	CreatedAt time.Time // set on insert and rename, bookkeeping only
}

// Recipe is a generated recipe text.
type Recipe struct {
	ID          uuid.UUID
	Ingredients []string
	Text        string
	CreatedAt   time.Time
	Cached      bool // served from cache without calling the generator
}
