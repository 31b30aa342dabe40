package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auditorium-booking/internal/model"
)

// failingQueryer fails every read.
type failingQueryer struct{ err error }

func (q failingQueryer) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, q.err
}

func (q failingQueryer) QueryxContext(context.Context, string, ...interface{}) (*sqlx.Rows, error) {
	return nil, q.err
}

func (q failingQueryer) QueryRowxContext(context.Context, string, ...interface{}) *sqlx.Row {
	return nil
}

func TestConflictFromDuplicateNeedsTakenSeats(t *testing.T) {
	dup := &mysql.MySQLError{Number: mysqlDuplicateEntry, Message: "Duplicate entry for key 'uq_booking_seat'"}
	readErr := errors.New("connection reset")
	nb := NewBooking{ShowtimeID: 42, Seats: []model.SeatPosition{{Row: 3, Column: 4}}}

	err := conflictFromDuplicate(context.Background(), failingQueryer{err: readErr}, nb, dup)
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrSeatsUnavailable)
	assert.ErrorIs(t, err, readErr)
	assert.True(t, isDuplicateKey(err))

	var conflict *model.ConflictError
	assert.False(t, errors.As(err, &conflict))
}
