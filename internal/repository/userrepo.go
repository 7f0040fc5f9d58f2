// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/sahilkamalny/flavorbot/internal/model"
)

// UserRepository provides durable access to users and their preferences document.
type UserRepository interface {
	// FindByUsername loads a user by exact username. Preferences are "{}" when none are recorded.
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	// Create inserts a new user. A duplicate username yields errs.ErrAlreadyExists.
	Create(ctx context.Context, username, email, passwordHash string) error
	// UsernameExists reports whether a user with this username is stored. Advisory only.
	UsernameExists(ctx context.Context, username string) (bool, error)
	// GetPreferences returns the stored document, or "{}" when none is recorded.
	GetPreferences(ctx context.Context, userID int64) (model.Preferences, error)
	// SetPreferences replaces the document wholesale.
	SetPreferences(ctx context.Context, userID int64, doc model.Preferences) error
}
