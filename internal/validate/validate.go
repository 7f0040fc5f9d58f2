// Package validate checks caller-supplied input with struct tags.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/sahilkamalny/flavorbot/internal/errs"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Registration is the input of a new account.
type Registration struct {
	Username     string `validate:"required,min=3,max=25,username"`
	Email        string `validate:"required,email,max=254"`
	PasswordHash string `validate:"required"`
}

// Password is a plaintext password chosen at sign-up, checked before hashing.
type Password struct {
	Password string `validate:"required,min=8,password"`
}

// Item is the input of a fridge item name, already trimmed.
type Item struct {
	Name string `validate:"required,max=100,itemname"`
}

// Recipe is the input of a recipe request.
type Recipe struct {
	Ingredients []string `validate:"required,min=1,max=50,dive,required,max=100"`
}

// Validator wraps a configured validator instance.
type Validator struct {
	validate *validator.Validate
}

// New returns a validator with the custom tags registered.
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("username", validateUsername)
	_ = v.RegisterValidation("itemname", validateItemName)
	_ = v.RegisterValidation("password", validatePassword)
	return &Validator{validate: v}
}

// Struct validates s and maps failures onto errs.ErrInvalidInput.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	fields := FormatValidationError(err)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fields[k])
	}
	return fmt.Errorf("%w: %s", errs.ErrInvalidInput, strings.Join(parts, "; "))
}

// FormatValidationError turns validator errors into a field -> message map.
func FormatValidationError(err error) map[string]string {
	if err == nil {
		return nil
	}
	out := make(map[string]string)

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		out["error"] = "invalid input"
		return out
	}
	for _, e := range ve {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			out[field] = "is required"
		case "email":
			out[field] = "invalid email format"
		case "username":
			out[field] = "only letters, digits and underscore"
		case "itemname":
			out[field] = "only letters and spaces"
		case "password":
			out[field] = "needs upper and lower case letters, a digit and one of " + passwordSpecials
		case "max":
			out[field] = fmt.Sprintf("must be at most %s characters", e.Param())
		case "min":
			out[field] = fmt.Sprintf("must be at least %s characters", e.Param())
		default:
			out[field] = "invalid value"
		}
	}
	return out
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernameRe.MatchString(fl.Field().String())
}

const passwordSpecials = "@$!%*?&"

func validatePassword(fl validator.FieldLevel) bool {
	var upper, lower, digit, special bool
	for _, r := range fl.Field().String() {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return upper && lower && digit && special
}

func validateItemName(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if !unicode.IsLetter(r) && r != ' ' {
			return false
		}
	}
	return true
}
