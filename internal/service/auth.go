// Package service contains application services for authentication, inventory and recipes.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	pkgcrypto "github.com/sahilkamalny/flavorbot/internal/crypto"
	"github.com/sahilkamalny/flavorbot/internal/errs"
	"github.com/sahilkamalny/flavorbot/internal/limiter"
	"github.com/sahilkamalny/flavorbot/internal/metrics"
	"github.com/sahilkamalny/flavorbot/internal/model"
	"github.com/sahilkamalny/flavorbot/internal/repository"
	"github.com/sahilkamalny/flavorbot/internal/session"
	"github.com/sahilkamalny/flavorbot/internal/validate"
)

// State is the externally visible authentication state.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// AuthService defines login, registration and session maintenance.
// It is the only writer of the session store.
type AuthService interface {
	// Login authenticates username with a credential produced by the active scheme.
	Login(ctx context.Context, username, suppliedHash string) (model.User, error)
	// Logout clears the session. Idempotent.
	Logout()
	// Register creates an account and logs it in.
	Register(ctx context.Context, username, email, passwordHash string) (model.User, error)
	// RefreshSession reloads the session user from storage by username.
	RefreshSession(ctx context.Context) (model.User, error)
	// UpdatePreferences persists doc for the session user, then refreshes the session.
	UpdatePreferences(ctx context.Context, doc model.Preferences) error
	// State reports Anonymous, Authenticating or Authenticated.
	State() State
	// CurrentUser returns a copy of the session user.
	CurrentUser() (model.User, bool)
}

type AuthServiceImpl struct {
	users    repository.UserRepository
	verifier pkgcrypto.Verifier
	sess     *session.Store
	lim      limiter.Limiter
	device   []byte
	val      *validate.Validator
	log      *zap.Logger

	// verified on lookup misses so unknown usernames cost as much as wrong passwords
	dummyHash string

	inflight atomic.Int32
}

var _ AuthService = (*AuthServiceImpl)(nil)

// NewAuthService constructs AuthService with required dependencies.
// A nil limiter disables throttling; a nil logger discards output.
func NewAuthService(users repository.UserRepository, verifier pkgcrypto.Verifier, sess *session.Store, lim limiter.Limiter, device []byte, log *zap.Logger) *AuthServiceImpl {
	if lim == nil {
		lim = limiter.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &AuthServiceImpl{
		users:    users,
		verifier: verifier,
		sess:     sess,
		lim:      lim,
		device:   device,
		val:      validate.New(),
		log:      log.Named("auth"),
	}
	if sch, ok := verifier.(pkgcrypto.Scheme); ok {
		if h, err := sch.Hash("flavorbot:no-such-user"); err == nil {
			s.dummyHash = h
		} else {
			s.log.Warn("prepare dummy hash", zap.Error(err))
		}
	}
	return s
}

// Login authenticates with rate limiting by (username, device).
// Unknown users and wrong credentials both yield errs.ErrInvalidCredentials;
// storage failures are returned as they are.
func (s *AuthServiceImpl) Login(ctx context.Context, username, suppliedHash string) (model.User, error) {
	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	allowed, retry, err := s.lim.Allow(ctx, username, s.device)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues(metrics.OutcomeError).Inc()
		return model.User{}, fmt.Errorf("login: %w", err)
	}
	if !allowed {
		metrics.LoginAttempts.WithLabelValues(metrics.OutcomeRateLimited).Inc()
		s.log.Info("login throttled", zap.String("username", username), zap.Duration("retry_after", retry))
		return model.User{}, errs.ErrRateLimited
	}

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		metrics.LoginAttempts.WithLabelValues(metrics.OutcomeError).Inc()
		return model.User{}, fmt.Errorf("login: %w", err)
	}
	var ok bool
	if err != nil {
		_ = s.verifier.Verify(suppliedHash, s.dummyHash)
	} else {
		ok = s.verifier.Verify(suppliedHash, u.PasswordHash)
	}
	if !ok {
		blocked, _, ferr := s.lim.Failure(ctx, username, s.device)
		if ferr != nil {
			s.log.Warn("record login failure", zap.String("username", username), zap.Error(ferr))
		}
		if blocked {
			metrics.LoginAttempts.WithLabelValues(metrics.OutcomeRateLimited).Inc()
			return model.User{}, errs.ErrRateLimited
		}
		metrics.LoginAttempts.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return model.User{}, errs.ErrInvalidCredentials
	}

	if err := s.lim.Success(ctx, username, s.device); err != nil {
		s.log.Warn("reset login limiter", zap.String("username", username), zap.Error(err))
	}
	su := sessionUser(u)
	s.sess.Set(su)
	metrics.LoginAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()
	metrics.SessionActive.Set(1)
	s.log.Info("logged in", zap.String("username", u.Username), zap.Int64("user_id", u.ID))
	return su, nil
}

// Logout drops the session.
func (s *AuthServiceImpl) Logout() {
	if u, ok := s.sess.Get(); ok {
		s.log.Info("logged out", zap.Int64("user_id", u.ID))
	}
	s.sess.Clear()
	metrics.SessionActive.Set(0)
}

// Register validates input, creates the user and logs it in.
// The username check is advisory; the UNIQUE constraint decides races.
func (s *AuthServiceImpl) Register(ctx context.Context, username, email, passwordHash string) (model.User, error) {
	in := validate.Registration{Username: username, Email: email, PasswordHash: passwordHash}
	if err := s.val.Struct(in); err != nil {
		metrics.Registrations.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return model.User{}, err
	}

	exists, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		metrics.Registrations.WithLabelValues(metrics.OutcomeError).Inc()
		return model.User{}, fmt.Errorf("register: %w", err)
	}
	if exists {
		metrics.Registrations.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		return model.User{}, fmt.Errorf("register %q: %w", username, errs.ErrAlreadyExists)
	}
	if err := s.users.Create(ctx, username, email, passwordHash); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			metrics.Registrations.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		} else {
			metrics.Registrations.WithLabelValues(metrics.OutcomeError).Inc()
		}
		return model.User{}, fmt.Errorf("register: %w", err)
	}
	metrics.Registrations.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.log.Info("registered", zap.String("username", username))

	return s.loginCreated(ctx, username, passwordHash)
}

// loginCreated completes registration with the credentials just written.
// The stored value is compared with the registered one directly because
// schemes like bcrypt verify plaintext, which the core never sees.
func (s *AuthServiceImpl) loginCreated(ctx context.Context, username, passwordHash string) (model.User, error) {
	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return model.User{}, fmt.Errorf("login after register: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(u.PasswordHash), []byte(passwordHash)) != 1 {
		return model.User{}, errs.ErrInvalidCredentials
	}
	su := sessionUser(u)
	s.sess.Set(su)
	metrics.SessionActive.Set(1)
	return su, nil
}

// RefreshSession replaces the cached user with the stored record.
// A vanished record leaves the session untouched.
func (s *AuthServiceImpl) RefreshSession(ctx context.Context) (model.User, error) {
	cur, ok := s.sess.Get()
	if !ok {
		return model.User{}, errs.ErrNoActiveSession
	}

	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	u, err := s.users.FindByUsername(ctx, cur.Username)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		s.log.Warn("session user vanished", zap.Int64("user_id", cur.ID))
		return model.User{}, errs.ErrUserVanished
	case err != nil:
		return model.User{}, fmt.Errorf("refresh session: %w", err)
	}
	su := sessionUser(u)
	if !s.sess.Replace(cur.ID, su) {
		// logged out or switched user while the lookup was in flight
		return model.User{}, errs.ErrNoActiveSession
	}
	return su, nil
}

// sessionUser copies u for the session. A missing document reads as "{}",
// the same value GetPreferences reports.
func sessionUser(u *model.User) model.User {
	c := u.Clone()
	if len(c.Preferences) == 0 {
		c.Preferences = model.EmptyPreferences.Clone()
	}
	return c
}

// UpdatePreferences persists doc verbatim, then refreshes the session even
// when persisting failed. Errors from both steps are joined.
func (s *AuthServiceImpl) UpdatePreferences(ctx context.Context, doc model.Preferences) error {
	cur, ok := s.sess.Get()
	if !ok {
		return errs.ErrNoActiveSession
	}
	var perr error
	if err := s.users.SetPreferences(ctx, cur.ID, doc); err != nil {
		perr = fmt.Errorf("persist preferences: %w", err)
	}
	_, rerr := s.RefreshSession(ctx)
	if err := errors.Join(perr, rerr); err != nil {
		return err
	}
	s.log.Debug("preferences updated", zap.Int64("user_id", cur.ID), zap.Int("bytes", len(doc)))
	return nil
}

func (s *AuthServiceImpl) State() State {
	if s.inflight.Load() > 0 {
		return Authenticating
	}
	if s.sess.IsActive() {
		return Authenticated
	}
	return Anonymous
}

func (s *AuthServiceImpl) CurrentUser() (model.User, bool) { return s.sess.Get() }
