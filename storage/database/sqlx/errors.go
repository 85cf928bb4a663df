package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// trapNoRowsErr swaps sql.ErrNoRows for the domain's not-found error.
func trapNoRowsErr(err, notFound error) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return err
}

// isUniqueViolation reports whether err is a unique or primary key constraint failure.
func isUniqueViolation(err error) bool {
	switch e := errors.Cause(err).(type) {
	case *pq.Error:
		return e.Code == "23505"
	case *sqlite.Error:
		return e.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || e.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
