package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/sahilkamalny/flavorbot/internal/errs"
	"github.com/sahilkamalny/flavorbot/internal/model"
	"github.com/sahilkamalny/flavorbot/internal/session"
)

func newRecipes(t *testing.T, gen *fakeGenerator, cacheSize int) (*RecipeServiceImpl, *fakeUsers, *session.Store) {
	t.Helper()
	users := newFakeUsers()
	u := users.seed("alice", "H")
	sess := session.New()
	sess.Set(*u)
	return NewRecipeService(users, gen, sess, cacheSize, time.Minute, nil), users, sess
}

func TestRecipes_GenerateEmbedsPreferences(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{text: "  1. Crack eggs.  "}
	s, users, sess := newRecipes(t, gen, 0)
	u, _ := sess.Get()
	_ = users.SetPreferences(context.Background(), u.ID, model.Preferences(`{"spice":3}`))

	r, err := s.Generate(context.Background(), []string{" eggs ", "", "milk"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if r.Text != "1. Crack eggs." || r.ID == uuid.Nil || r.Cached {
		t.Fatalf("recipe=%+v", r)
	}
	if len(r.Ingredients) != 2 {
		t.Fatalf("ingredients=%v", r.Ingredients)
	}
	p := gen.prompts[0]
	if !strings.Contains(p, "ingredients: eggs, milk,") || !strings.Contains(p, `preferences: {"spice":3},`) {
		t.Fatalf("prompt=%q", p)
	}
}

func TestRecipes_UnsetPreferencesBecomeEmptyDocument(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{text: "ok"}
	s, _, _ := newRecipes(t, gen, 0)

	if _, err := s.Generate(context.Background(), []string{"rice"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(gen.prompts[0], "preferences: {},") {
		t.Fatalf("prompt=%q", gen.prompts[0])
	}
}

func TestRecipes_FailuresAreTyped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	gen := &fakeGenerator{err: errors.New("429 too many requests")}
	s, _, _ := newRecipes(t, gen, 8)
	if _, err := s.Generate(ctx, []string{"eggs"}); !errors.Is(err, errs.ErrGeneration) {
		t.Fatalf("want ErrGeneration, got %v", err)
	}

	gen.err = nil
	gen.text = "   "
	if _, err := s.Generate(ctx, []string{"eggs"}); !errors.Is(err, errs.ErrGeneration) {
		t.Fatalf("empty text must be ErrGeneration, got %v", err)
	}

	if _, err := s.Generate(ctx, []string{" ", ""}); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
	if gen.calls() != 2 {
		t.Fatalf("invalid input must not reach the generator")
	}
}

func TestRecipes_PreferencesErrorPropagates(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{text: "ok"}
	s, users, _ := newRecipes(t, gen, 0)
	users.getPrefsErr = errs.ErrStoreUnavailable

	if _, err := s.Generate(context.Background(), []string{"eggs"}); !errors.Is(err, errs.ErrStoreUnavailable) {
		t.Fatalf("want ErrStoreUnavailable, got %v", err)
	}
	if gen.calls() != 0 {
		t.Fatalf("generator must not run without preferences")
	}
}

func TestRecipes_RequiresSession(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{text: "ok"}
	s, _, sess := newRecipes(t, gen, 0)
	sess.Clear()

	if _, err := s.Generate(context.Background(), []string{"eggs"}); !errors.Is(err, errs.ErrNoActiveSession) {
		t.Fatalf("want ErrNoActiveSession, got %v", err)
	}
}

func TestRecipes_CacheKeyedByPreferences(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gen := &fakeGenerator{text: "omelette"}
	s, users, sess := newRecipes(t, gen, 8)

	first, err := s.Generate(ctx, []string{"eggs"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := s.Generate(ctx, []string{"eggs"})
	if err != nil {
		t.Fatalf("Generate cached: %v", err)
	}
	if !second.Cached || second.ID != first.ID || gen.calls() != 1 {
		t.Fatalf("want cache hit: %+v calls=%d", second, gen.calls())
	}

	u, _ := sess.Get()
	_ = users.SetPreferences(ctx, u.ID, model.Preferences(`{"diet":"vegan"}`))
	third, err := s.Generate(ctx, []string{"eggs"})
	if err != nil {
		t.Fatalf("Generate after prefs change: %v", err)
	}
	if third.Cached || gen.calls() != 2 {
		t.Fatalf("changed preferences must miss the cache")
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()
	p := BuildPrompt([]string{"eggs", "milk"}, model.Preferences(`{"a":1}`))
	if !strings.HasPrefix(p, "You are a professional chef. Using the following ingredients: eggs, milk, and based on the user's preferences: {\"a\":1}") {
		t.Fatalf("prompt=%q", p)
	}
	if !strings.Contains(p, "clearly numbered") {
		t.Fatalf("prompt missing formatting instructions")
	}
}
