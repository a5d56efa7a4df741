package database

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// IsUniqueViolation detects database uniqueness constraint violations across vendors.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate")
}

// ViolatedColumn guesses which column a unique violation refers to by looking
// for the candidate names in the driver message.
func ViolatedColumn(err error, candidates ...string) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil {
		msg = strings.ToLower(pgErr.ConstraintName + " " + pgErr.Detail + " " + msg)
	}

	for _, c := range candidates {
		if strings.Contains(msg, strings.ToLower(c)) {
			return c
		}
	}
	return ""
}
