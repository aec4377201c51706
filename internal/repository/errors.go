package repository

import (
	"database/sql"
	"errors"
	"strings"

	"babylog/internal/database"
)

// Constraint errors translated from the dialect's unique-violation errors.
// Services map these onto their own user-facing errors.
var (
	ErrDuplicateUsername   = errors.New("username already exists")
	ErrDuplicateEmail      = errors.New("email already exists")
	ErrDuplicateFamilyCode = errors.New("family code already exists")
	ErrDuplicateMembership = errors.New("membership already exists")
)

// violatedColumn reports which of columns a unique violation was raised for.
// Only the constraint name is inspected: "users.email" on SQLite and MySQL,
// "users_email_key" on PostgreSQL. The offending value never is.
func violatedColumn(db database.DBTX, err error, columns ...string) string {
	target := db.UniqueViolationTarget(err)
	if target == "" {
		return ""
	}
	for _, c := range columns {
		if strings.Contains(target, c) {
			return c
		}
	}
	return ""
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableID(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func intFromNull(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func idFromNull(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// placeholders returns "?, ?, ..." with n markers for an IN clause
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
