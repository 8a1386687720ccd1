// Package shared provides common utilities used across the codebase.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteCode returns the primary result code of a driver error, or 0 when
// err did not come from the driver. Extended codes such as
// SQLITE_BUSY_SNAPSHOT keep the primary code in their low byte.
func sqliteCode(err error) int {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() & 0xff
	}
	return 0
}

// IsSQLiteBusyError reports whether err is SQLITE_BUSY.
func IsSQLiteBusyError(err error) bool {
	if err == nil {
		return false
	}
	if code := sqliteCode(err); code != 0 {
		return code == sqlite3.SQLITE_BUSY
	}
	// Errors that lost their type on the way up, e.g. through fmt.Errorf("%v").
	return strings.Contains(err.Error(), "SQLITE_BUSY")
}

// IsSQLiteLockedError reports whether err is SQLITE_LOCKED or a
// "database is locked" message.
func IsSQLiteLockedError(err error) bool {
	if err == nil {
		return false
	}
	if code := sqliteCode(err); code == sqlite3.SQLITE_LOCKED {
		return true
	}
	return strings.Contains(err.Error(), "database is locked")
}

// IsSQLiteConflictError reports either contention error; both are retryable.
func IsSQLiteConflictError(err error) bool {
	return IsSQLiteBusyError(err) || IsSQLiteLockedError(err)
}
