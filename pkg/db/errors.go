package db

import (
	"strings"

	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
)

// SQLSTATE classes the repositories react to.
const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err is a unique constraint failure, limited to constraint when
// it is not empty. sqlite errors carry no constraint name and match any constraint.
func IsUniqueViolation(err error, constraint string) bool {
	return violates(err, sqlStateUniqueViolation, constraint, "UNIQUE constraint failed")
}

// IsForeignKeyViolation is IsUniqueViolation for foreign keys.
func IsForeignKeyViolation(err error, constraint string) bool {
	return violates(err, sqlStateForeignKeyViolation, constraint, "FOREIGN KEY constraint failed")
}

func violates(err error, state, constraint, sqliteText string) bool {
	if err == nil {
		return false
	}
	if pg, ok := pkgerrors.Postgres(err); ok {
		return pg.Code == state && (constraint == "" || pg.Constraint == constraint)
	}
	return strings.Contains(err.Error(), sqliteText)
}
