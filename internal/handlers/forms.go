package handlers

import (
	"bytes"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"babylog/internal/validation"
)

// renderTemplate executes name into a buffer before writing the response
func renderTemplate(w http.ResponseWriter, templates *template.Template, name string, data interface{}) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("Error rendering %s template: %v", name, err)
		http.Error(w, ErrInternalServerError, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// formValues copies the named fields of a parsed form
func formValues(r *http.Request, fields ...string) map[string]string {
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		values[f] = strings.TrimSpace(r.FormValue(f))
	}
	return values
}

// requestedFamilyID reads ?family_id=, ignoring malformed values
func requestedFamilyID(r *http.Request) *int64 {
	id, err := strconv.ParseInt(r.URL.Query().Get("family_id"), 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func parseOptionalInt(field, value string) (*int, error) {
	if value == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return nil, &validation.ValidationError{Field: field, Message: "Please enter a whole number"}
	}
	return &v, nil
}

func parseOptionalID(field, value string) (*int64, error) {
	if value == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil || v <= 0 {
		return nil, &validation.ValidationError{Field: field, Message: "Invalid selection"}
	}
	return &v, nil
}

func parseRequiredID(field, value string) (int64, error) {
	id, err := parseOptionalID(field, value)
	if err != nil {
		return 0, err
	}
	if id == nil {
		return 0, &validation.ValidationError{Field: field, Message: "This field is required"}
	}
	return *id, nil
}

// parseTimestamp reads a datetime-local value. Empty or unparsable input
// yields the zero time, which the care service replaces with now.
func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(dateTimeLayout, value, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func parseOptionalTimestamp(value string) *time.Time {
	t := parseTimestamp(value)
	if t.IsZero() {
		return nil
	}
	return &t
}

func parseOptionalDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, &validation.ValidationError{Field: field, Message: "Please enter a valid date"}
	}
	return &t, nil
}

// validationMessage returns the user-facing message of a validation error
func validationMessage(err error) (string, string, bool) {
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		return verr.Message, verr.Field, true
	}
	return "", "", false
}
