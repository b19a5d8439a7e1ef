package db

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Driver error codes the services react to.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"

	mysqlDuplicateEntry   = 1062
	mysqlLockWaitTimeout  = 1205
	mysqlDeadlockDetected = 1213
)

// IsUniqueViolation reports whether err came from a unique index, e.g. two
// users registered with the same email at once.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if pgCode(err) == pgUniqueViolation || mysqlNumber(err) == mysqlDuplicateEntry {
		return true
	}
	// sqlite has no typed error in the pure-go driver.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsRetryableConflict covers serialization failures and deadlocks, which the
// stock ledger may hit under concurrent reservations.
func IsRetryableConflict(err error) bool {
	switch pgCode(err) {
	case pgSerializationFailure, pgDeadlockDetected:
		return true
	}
	return mysqlNumber(err) == mysqlDeadlockDetected
}

// IsLockTimeout reports a row lock that could not be acquired in time.
func IsLockTimeout(err error) bool {
	return pgCode(err) == pgLockNotAvailable || mysqlNumber(err) == mysqlLockWaitTimeout
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func mysqlNumber(err error) uint16 {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number
	}
	return 0
}
