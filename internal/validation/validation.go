package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"babylog/internal/models"
)

const (
	MinPasswordLength = 8
	MaxUsernameLength = 64
	MaxNameLength     = 100
)

// ValidationError reports a problem with a single form field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ValidateEmail checks that email is a bare address (no display name)
func ValidateEmail(email string) error {
	if email == "" {
		return fieldError("email", "Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fieldError("email", "Please enter a valid email address")
	}
	return nil
}

// ValidatePassword enforces the minimum password length
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fieldError("password", fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	return nil
}

// ValidateUsername checks a username is usable as a URL path segment
func ValidateUsername(username string) error {
	if username == "" {
		return fieldError("username", "Username is required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return fieldError("username", fmt.Sprintf("Username must be at most %d characters", MaxUsernameLength))
	}
	for _, r := range username {
		if unicode.IsSpace(r) || r == '/' || r == '?' || r == '#' {
			return fieldError("username", "Username may not contain spaces or /?#")
		}
	}
	return nil
}

// ValidateName checks a required display name such as a recipe name
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < 2 {
		return fieldError("name", "Name must be at least 2 characters")
	}
	if n > MaxNameLength {
		return fieldError("name", fmt.Sprintf("Name must be at most %d characters", MaxNameLength))
	}
	return nil
}

// ValidateOptionalName allows empty names (babies and families may be unnamed)
func ValidateOptionalName(field, name string) error {
	if utf8.RuneCountInString(strings.TrimSpace(name)) > MaxNameLength {
		return fieldError(field, fmt.Sprintf("Name must be at most %d characters", MaxNameLength))
	}
	return nil
}

// ValidateFeeding enforces the per-type amount rules: only the amount field
// matching the feeding type may be set, amounts are non-negative and a
// recipe may only be attached to bottle or solids feedings.
func ValidateFeeding(f *models.Feeding) error {
	if !f.FeedingType.Valid() {
		return fieldError("feeding_type", "Please choose breast, bottle or solids")
	}

	amounts := []struct {
		field string
		value *int
		owner models.FeedingType
	}{
		{"breast_duration", f.BreastDuration, models.FeedingBreast},
		{"bottle_amount", f.BottleAmount, models.FeedingBottle},
		{"solid_amount", f.SolidAmount, models.FeedingSolids},
	}
	for _, a := range amounts {
		if a.value == nil {
			continue
		}
		if a.owner != f.FeedingType {
			return fieldError(a.field, fmt.Sprintf("Not allowed for a %s feeding", f.FeedingType))
		}
		if *a.value < 0 {
			return fieldError(a.field, "Must not be negative")
		}
	}

	if f.RecipeID != nil && f.FeedingType == models.FeedingBreast {
		return fieldError("recipe_id", "Recipes only apply to bottle or solids feedings")
	}
	return nil
}

// ValidateChanging checks the optional poop amount
func ValidateChanging(c *models.Changing) error {
	if c.PoopAmount != nil && *c.PoopAmount < 0 {
		return fieldError("poop_amount", "Must not be negative")
	}
	return nil
}

// ValidateSleeping requires the end of a sleep to not precede its start
func ValidateSleeping(s *models.Sleeping) error {
	if s.StartTimestamp.IsZero() {
		return fieldError("start_timestamp", "Start time is required")
	}
	if s.EndTimestamp != nil && s.EndTimestamp.Before(s.StartTimestamp) {
		return fieldError("end_timestamp", "End time must not be before start time")
	}
	return nil
}

// ValidateNote requires some text and at most one linked event
func ValidateNote(n *models.Note) error {
	if strings.TrimSpace(n.Extra) == "" {
		return fieldError("extra", "Note text is required")
	}
	links := 0
	for _, id := range []*int64{n.FeedingID, n.ChangingID, n.SleepingID} {
		if id != nil {
			links++
		}
	}
	if links > 1 {
		return fieldError("link", "A note can annotate at most one event")
	}
	return nil
}

// ValidateRecipe checks a recipe before it is stored
func ValidateRecipe(r *models.Recipe) error {
	if err := ValidateName(r.Name); err != nil {
		return err
	}
	if r.Amount != nil && *r.Amount < 0 {
		return fieldError("amount", "Must not be negative")
	}
	return nil
}
