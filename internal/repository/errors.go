// Package repository holds the MySQL data access layer.  Sentinel errors
// declared here let handlers and services tell failure kinds apart.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrForbidden is returned when the caller does not manage the
	// auditorium a resource belongs to.
	ErrForbidden = errors.New("forbidden")

	ErrNotFound           = errors.New("not found")
	ErrShowtimeNotFound   = errors.New("showtime not found")
	ErrAuditoriumNotFound = errors.New("auditorium not found")
	ErrScreenNotFound     = errors.New("screen not found")
	ErrShowNotFound       = errors.New("show not found")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already exists")
)

const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a MySQL unique constraint violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
