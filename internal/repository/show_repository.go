package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/auditorium-booking/internal/model"
)

// ShowRepo manages persistence for shows.
type ShowRepo struct {
	db *sqlx.DB
}

func NewShowRepo(db *sqlx.DB) *ShowRepo {
	return &ShowRepo{db: db}
}

const showColumns = `id, title, genre, organizer, duration_min, release_date, created_at`

// Create inserts a show and returns the stored row.
func (r *ShowRepo) Create(ctx context.Context, s model.Show) (model.Show, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO shows (title, genre, organizer, duration_min, release_date) VALUES (?, ?, ?, ?, ?)`,
		s.Title, s.Genre, s.Organizer, s.Duration, s.ReleaseDate.UTC())
	if err != nil {
		return model.Show{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Show{}, err
	}
	return r.GetByID(ctx, id)
}

// GetByID returns ErrShowNotFound if there is no matching row.
func (r *ShowRepo) GetByID(ctx context.Context, id int64) (model.Show, error) {
	var s model.Show
	err := r.db.GetContext(ctx, &s, `SELECT `+showColumns+` FROM shows WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrShowNotFound
	}
	return s, err
}

// List returns shows, optionally filtered by genre, newest release first.
func (r *ShowRepo) List(ctx context.Context, genre model.Genre) ([]model.Show, error) {
	out := []model.Show{}
	q := `SELECT ` + showColumns + ` FROM shows`
	var args []interface{}
	if genre != "" {
		q += ` WHERE genre = ?`
		args = append(args, genre)
	}
	q += ` ORDER BY release_date DESC, id DESC`
	err := r.db.SelectContext(ctx, &out, q, args...)
	return out, err
}
