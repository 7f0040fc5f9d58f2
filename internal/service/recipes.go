package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/sahilkamalny/flavorbot/internal/errs"
	"github.com/sahilkamalny/flavorbot/internal/metrics"
	"github.com/sahilkamalny/flavorbot/internal/model"
	"github.com/sahilkamalny/flavorbot/internal/repository"
	"github.com/sahilkamalny/flavorbot/internal/session"
	"github.com/sahilkamalny/flavorbot/internal/validate"
)

// Generator turns a prompt into recipe text. Implementations may be slow.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RecipeService generates recipes for the session user.
type RecipeService interface {
	// Generate builds a recipe from ingredients and the user's stored preferences.
	Generate(ctx context.Context, ingredients []string) (model.Recipe, error)
}

type RecipeServiceImpl struct {
	users repository.UserRepository
	gen   Generator
	sess  *session.Store
	cache *expirable.LRU[string, model.Recipe]
	val   *validate.Validator
	log   *zap.Logger
}

var _ RecipeService = (*RecipeServiceImpl)(nil)

// NewRecipeService constructs RecipeService. cacheSize <= 0 disables caching.
func NewRecipeService(users repository.UserRepository, gen Generator, sess *session.Store, cacheSize int, cacheTTL time.Duration, log *zap.Logger) *RecipeServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	s := &RecipeServiceImpl{users: users, gen: gen, sess: sess, val: validate.New(), log: log.Named("recipes")}
	if cacheSize > 0 {
		s.cache = expirable.NewLRU[string, model.Recipe](cacheSize, nil, cacheTTL)
	}
	return s
}

// Generate returns a recipe. Generator failures and empty answers are
// reported as errs.ErrGeneration.
func (s *RecipeServiceImpl) Generate(ctx context.Context, ingredients []string) (model.Recipe, error) {
	u, ok := s.sess.Get()
	if !ok {
		return model.Recipe{}, errs.ErrNoActiveSession
	}
	ingredients = cleanIngredients(ingredients)
	if err := s.val.Struct(validate.Recipe{Ingredients: ingredients}); err != nil {
		return model.Recipe{}, err
	}

	prefs, err := s.users.GetPreferences(ctx, u.ID)
	if err != nil {
		metrics.RecipeRequests.WithLabelValues(metrics.OutcomeError).Inc()
		return model.Recipe{}, fmt.Errorf("recipe preferences: %w", err)
	}

	key := cacheKey(u.ID, ingredients, prefs)
	if s.cache != nil {
		if r, hit := s.cache.Get(key); hit {
			metrics.RecipeRequests.WithLabelValues(metrics.OutcomeCached).Inc()
			r.Cached = true
			r.Ingredients = append([]string(nil), r.Ingredients...)
			return r, nil
		}
	}

	start := time.Now()
	text, err := s.gen.Generate(ctx, BuildPrompt(ingredients, prefs))
	metrics.RecipeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RecipeRequests.WithLabelValues(metrics.OutcomeError).Inc()
		s.log.Warn("generator failed", zap.Int64("user_id", u.ID), zap.Error(err))
		return model.Recipe{}, fmt.Errorf("%w: %w", errs.ErrGeneration, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.RecipeRequests.WithLabelValues(metrics.OutcomeError).Inc()
		return model.Recipe{}, fmt.Errorf("%w: empty response", errs.ErrGeneration)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return model.Recipe{}, err
	}
	r := model.Recipe{ID: id, Ingredients: ingredients, Text: text, CreatedAt: time.Now().UTC()}
	if s.cache != nil {
		s.cache.Add(key, r)
	}
	metrics.RecipeRequests.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.log.Info("recipe generated",
		zap.Int64("user_id", u.ID),
		zap.Int("ingredients", len(ingredients)),
		zap.Duration("took", time.Since(start)))
	r.Ingredients = append([]string(nil), ingredients...)
	return r, nil
}

// BuildPrompt renders the chef prompt. The preferences document is embedded verbatim.
func BuildPrompt(ingredients []string, prefs model.Preferences) string {
	var b strings.Builder
	b.WriteString("You are a professional chef. Using the following ingredients: ")
	b.WriteString(strings.Join(ingredients, ", "))
	b.WriteString(", and based on the user's preferences: ")
	b.WriteString(prefs.String())
	b.WriteString(", please generate a recipe. The recipe should include:\n")
	b.WriteString("The name of the dish (If it is possible)\n")
	b.WriteString("1. A list of ingredients.\n")
	b.WriteString("2. Clear, step-by-step instructions on how to prepare the recipe, with specific actions for each step.\n")
	b.WriteString("3. Cooking tips or suggestions where necessary.\n")
	b.WriteString("4. Serving suggestions to make the dish even better.\n")
	b.WriteString("Make sure to format the recipe with each step clearly numbered and include any necessary cooking times.")
	return b.String()
}

func cleanIngredients(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func cacheKey(userID int64, ingredients []string, prefs model.Preferences) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d\x00", userID)
	for _, s := range ingredients {
		h.Write([]byte(s))
		h.Write([]byte{0x1f})
	}
	h.Write([]byte{0})
	h.Write(prefs)
	return hex.EncodeToString(h.Sum(nil))
}
