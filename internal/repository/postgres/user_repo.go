package postgres

import (
	"context"

	"github.com/sahilkamalny/flavorbot/internal/errs"
	"github.com/sahilkamalny/flavorbot/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// FindByUsername selects a user by exact username. A user without a
// recorded document carries "{}", as GetPreferences reports.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	const q = `
SELECT id, username, email, password_hash, COALESCE(preferences, ''), created_at
FROM users WHERE username=$1`
	var (
		u     model.User
		prefs string
	)
	err := r.db.Pool.QueryRow(ctx, q, username).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &prefs, &u.CreatedAt)
	if err != nil {
		return nil, wrapErr("find user", err)
	}
	u.Preferences = model.EmptyPreferences.Clone()
	if prefs != "" {
		u.Preferences = model.Preferences(prefs)
	}
	return &u, nil
}

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, username, email, passwordHash string) error {
	const q = `
INSERT INTO users (username, email, password_hash)
VALUES ($1, $2, $3)`
	_, err := r.db.Pool.Exec(ctx, q, username, email, passwordHash)
	return wrapErr("create user", err)
}

// UsernameExists reports whether the username is taken.
func (r *UserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE username=$1)`
	var exists bool
	if err := r.db.Pool.QueryRow(ctx, q, username).Scan(&exists); err != nil {
		return false, wrapErr("username exists", err)
	}
	return exists, nil
}

// GetPreferences returns the preferences document of an existing user.
// A user without a recorded document gets "{}"; a missing user is errs.ErrNotFound.
func (r *UserRepo) GetPreferences(ctx context.Context, userID int64) (model.Preferences, error) {
	const q = `SELECT COALESCE(preferences, '') FROM users WHERE id=$1`
	var prefs string
	if err := r.db.Pool.QueryRow(ctx, q, userID).Scan(&prefs); err != nil {
		return nil, wrapErr("get preferences", err)
	}
	if prefs == "" {
		return model.EmptyPreferences.Clone(), nil
	}
	return model.Preferences(prefs), nil
}

// SetPreferences replaces the preferences document. Last writer wins.
func (r *UserRepo) SetPreferences(ctx context.Context, userID int64, doc model.Preferences) error {
	const q = `UPDATE users SET preferences=$2 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, userID, string(doc))
	if err != nil {
		return wrapErr("set preferences", err)
	}
	if tag.RowsAffected() == 0 {
		return wrapErr("set preferences", errs.ErrNotFound)
	}
	return nil
}
