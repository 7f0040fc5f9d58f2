package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sahilkamalny/flavorbot/internal/errs"
	"github.com/sahilkamalny/flavorbot/internal/limiter"
	"github.com/sahilkamalny/flavorbot/internal/model"
	"github.com/sahilkamalny/flavorbot/internal/repository"
)

/************ users ************/

type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	byName map[string]*model.User

	createErr   error
	findErr     error
	existsErr   error
	existsLies  bool // report "free" even when taken, to simulate the register race
	setPrefsErr error
	getPrefsErr error

	onFind    func() // runs before each lookup, outside the lock
	findCalls int
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers { return &fakeUsers{byName: map[string]*model.User{}} }

func (f *fakeUsers) FindByUsername(_ context.Context, username string) (*model.User, error) {
	if f.onFind != nil {
		f.onFind()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.byName[username]
	if !ok {
		return nil, fmt.Errorf("find user: %w", errs.ErrNotFound)
	}
	c := u.Clone()
	return &c, nil
}

func (f *fakeUsers) Create(_ context.Context, username, email, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.byName[username]; exists {
		return fmt.Errorf("create user: %w", errs.ErrAlreadyExists)
	}
	f.nextID++
	f.byName[username] = &model.User{
		ID:           f.nextID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	return nil
}

func (f *fakeUsers) UsernameExists(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	if f.existsLies {
		return false, nil
	}
	_, ok := f.byName[username]
	return ok, nil
}

func (f *fakeUsers) GetPreferences(_ context.Context, userID int64) (model.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getPrefsErr != nil {
		return nil, f.getPrefsErr
	}
	u := f.byIDLocked(userID)
	if u == nil {
		return nil, errs.ErrNotFound
	}
	if u.Preferences == nil {
		return model.EmptyPreferences.Clone(), nil
	}
	return u.Preferences.Clone(), nil
}

func (f *fakeUsers) SetPreferences(_ context.Context, userID int64, doc model.Preferences) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setPrefsErr != nil {
		return f.setPrefsErr
	}
	u := f.byIDLocked(userID)
	if u == nil {
		return errs.ErrNotFound
	}
	u.Preferences = doc.Clone()
	return nil
}

func (f *fakeUsers) byIDLocked(id int64) *model.User {
	for _, u := range f.byName {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (f *fakeUsers) seed(username, hash string) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u := &model.User{ID: f.nextID, Username: username, Email: username + "@x.com", PasswordHash: hash}
	f.byName[username] = u
	return u
}

func (f *fakeUsers) remove(username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byName, username)
}

func (f *fakeUsers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byName)
}

/************ items ************/

type fakeItems struct {
	mu     sync.Mutex
	nextID int64
	rows   []model.FridgeItem
	err    error
}

var _ repository.ItemRepository = (*fakeItems)(nil)

func (f *fakeItems) ListItems(_ context.Context, userID int64) ([]model.FridgeItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.FridgeItem, 0)
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeItems) AddItem(_ context.Context, userID int64, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nextID++
	f.rows = append(f.rows, model.FridgeItem{ID: f.nextID, UserID: userID, Name: name, CreatedAt: time.Now()})
	return nil
}

func (f *fakeItems) DeleteItem(_ context.Context, userID int64, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if i := f.firstLocked(userID, func(r model.FridgeItem) bool { return r.Name == name }); i >= 0 {
		f.rows = append(f.rows[:i], f.rows[i+1:]...)
		return true, nil
	}
	return false, nil
}

func (f *fakeItems) RenameItem(_ context.Context, userID int64, oldName, newName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if i := f.firstLocked(userID, func(r model.FridgeItem) bool { return r.Name == oldName }); i >= 0 {
		f.rows[i].Name = newName
		f.rows[i].CreatedAt = time.Now()
		return true, nil
	}
	return false, nil
}

func (f *fakeItems) DeleteItemByID(_ context.Context, userID, itemID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if i := f.firstLocked(userID, func(r model.FridgeItem) bool { return r.ID == itemID }); i >= 0 {
		f.rows = append(f.rows[:i], f.rows[i+1:]...)
		return true, nil
	}
	return false, nil
}

func (f *fakeItems) RenameItemByID(_ context.Context, userID, itemID int64, newName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if i := f.firstLocked(userID, func(r model.FridgeItem) bool { return r.ID == itemID }); i >= 0 {
		f.rows[i].Name = newName
		return true, nil
	}
	return false, nil
}

// firstLocked returns the index of the lowest-id matching row of userID, or -1.
func (f *fakeItems) firstLocked(userID int64, match func(model.FridgeItem) bool) int {
	best := -1
	for i, r := range f.rows {
		if r.UserID == userID && match(r) && (best < 0 || r.ID < f.rows[best].ID) {
			best = i
		}
	}
	return best
}

/************ limiter ************/

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, time.Minute, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

/************ generator ************/

type fakeGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []string
}

var _ Generator = (*fakeGenerator)(nil)

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.text, g.err
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}
