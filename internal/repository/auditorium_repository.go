package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/iliyamo/auditorium-booking/internal/model"
)

// NewScreen describes one screen to create along with its auditorium.
type NewScreen struct {
	Rows            int
	Columns         int
	Price           int
	ProjectionType  model.ProjectionType
	SoundSystemType model.SoundSystemType
}

// NewAuditorium is the input of AuditoriumRepo.Create.
type NewAuditorium struct {
	Name      string
	Address   model.Address
	ManagerID string
	Screens   []NewScreen
}

// AuditoriumRepo covers auditoriums, their address, manager links, screens
// and the seat grid of every screen.
type AuditoriumRepo struct {
	db *sqlx.DB
}

func NewAuditoriumRepo(db *sqlx.DB) *AuditoriumRepo {
	return &AuditoriumRepo{db: db}
}

// seatInsertChunk bounds the rows of one multi-row seat INSERT.
const seatInsertChunk = 1000

// Create inserts the auditorium and everything it owns in a single
// transaction.  Screens are numbered 1..n in input order and each gets a
// full Rows x Columns seat grid.
func (r *AuditoriumRepo) Create(ctx context.Context, in NewAuditorium) (a model.Auditorium, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return a, err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, rbErr)
			}
			return
		}
		err = tx.Commit()
	}()

	res, err := tx.ExecContext(ctx, `INSERT INTO auditoriums (name) VALUES (?)`, strings.TrimSpace(in.Name))
	if err != nil {
		return a, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return a, err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO addresses (auditorium_id, lat, lng, address) VALUES (?, ?, ?, ?)`,
		id, in.Address.Lat, in.Address.Lng, in.Address.Address); err != nil {
		return a, err
	}
	if in.ManagerID != "" {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO auditorium_managers (auditorium_id, user_id) VALUES (?, ?)`, id, in.ManagerID); err != nil {
			return a, err
		}
	}

	if err = insertScreens(ctx, tx, id, in.Screens); err != nil {
		return a, err
	}
	a, err = readAuditorium(ctx, tx, id)
	return a, err
}

// insertScreens numbers screens 1..n in input order and gives each a full
// seat grid.
func insertScreens(ctx context.Context, tx *sqlx.Tx, auditoriumID int64, screens []NewScreen) error {
	for i, s := range screens {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO screens (auditorium_id, number, rows_count, cols_count, price, projection_type, sound_system_type)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			auditoriumID, i+1, s.Rows, s.Columns, s.Price, s.ProjectionType, s.SoundSystemType)
		if err != nil {
			return fmt.Errorf("create screen %d: %w", i+1, err)
		}
		screenID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if err = insertSeatGrid(ctx, tx, screenID, s.Rows, s.Columns); err != nil {
			return fmt.Errorf("create seats for screen %d: %w", i+1, err)
		}
	}
	return nil
}

func readAuditorium(ctx context.Context, tx *sqlx.Tx, id int64) (model.Auditorium, error) {
	var a model.Auditorium
	if err := tx.GetContext(ctx, &a, `SELECT id, name, created_at, updated_at FROM auditoriums WHERE id = ?`, id); err != nil {
		return a, err
	}
	var addr model.Address
	if err := tx.GetContext(ctx, &addr, `SELECT auditorium_id, lat, lng, address FROM addresses WHERE auditorium_id = ?`, id); err != nil {
		return a, err
	}
	a.Address = &addr
	if err := tx.SelectContext(ctx, &a.Screens, screenSelect+` WHERE auditorium_id = ? ORDER BY number`, id); err != nil {
		return a, err
	}
	return a, nil
}

// lockAuditorium takes the auditorium row lock or reports it missing.
func lockAuditorium(ctx context.Context, tx *sqlx.Tx, id int64) error {
	var exists int
	if err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM auditoriums WHERE id = ? FOR UPDATE`, id); err != nil {
		return err
	}
	if exists == 0 {
		return ErrAuditoriumNotFound
	}
	return nil
}

// clearScreens removes every screen of an auditorium together with its
// seats, showtimes, bookings and the tickets of those bookings.  It returns
// the ids of the removed showtimes.
func clearScreens(ctx context.Context, tx *sqlx.Tx, auditoriumID int64) ([]int64, error) {
	showtimeIDs := []int64{}
	if err := tx.SelectContext(ctx, &showtimeIDs,
		`SELECT st.id FROM showtimes st JOIN screens sc ON sc.id = st.screen_id WHERE sc.auditorium_id = ? ORDER BY st.id`,
		auditoriumID); err != nil {
		return nil, err
	}
	// Tickets are not owned by a screen; remove the ones whose bookings are
	// about to disappear.  Bookings go with them via fk_booking_ticket.
	steps := []string{
		`DELETE t FROM tickets t
		 JOIN bookings b ON b.ticket_id = t.id
		 JOIN screens sc ON sc.id = b.screen_id
		 WHERE sc.auditorium_id = ?`,
		`DELETE st FROM showtimes st JOIN screens sc ON sc.id = st.screen_id WHERE sc.auditorium_id = ?`,
		`DELETE s FROM seats s JOIN screens sc ON sc.id = s.screen_id WHERE sc.auditorium_id = ?`,
		`DELETE FROM screens WHERE auditorium_id = ?`,
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q, auditoriumID); err != nil {
			return nil, err
		}
	}
	return showtimeIDs, nil
}

// insertSeatGrid bulk inserts the seats of a rows x cols screen.
func insertSeatGrid(ctx context.Context, tx *sqlx.Tx, screenID int64, rows, cols int) error {
	positions := make([]model.SeatPosition, 0, rows*cols)
	for r := 1; r <= rows; r++ {
		for c := 1; c <= cols; c++ {
			positions = append(positions, model.SeatPosition{Row: r, Column: c})
		}
	}
	for _, chunk := range lo.Chunk(positions, seatInsertChunk) {
		var sb strings.Builder
		sb.WriteString("INSERT INTO seats (screen_id, row_no, col_no) VALUES ")
		args := make([]interface{}, 0, len(chunk)*3)
		for i, p := range chunk {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("(?, ?, ?)")
			args = append(args, screenID, p.Row, p.Column)
		}
		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return err
		}
	}
	return nil
}

const screenSelect = `SELECT id, auditorium_id, number, rows_count, cols_count, price, projection_type, sound_system_type FROM screens`

// GetByID returns the auditorium with its address and screens.
func (r *AuditoriumRepo) GetByID(ctx context.Context, id int64) (model.Auditorium, error) {
	var a model.Auditorium
	err := r.db.GetContext(ctx, &a, `SELECT id, name, created_at, updated_at FROM auditoriums WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, ErrAuditoriumNotFound
		}
		return a, err
	}
	var addr model.Address
	err = r.db.GetContext(ctx, &addr, `SELECT auditorium_id, lat, lng, address FROM addresses WHERE auditorium_id = ?`, id)
	switch {
	case err == nil:
		a.Address = &addr
	case !errors.Is(err, sql.ErrNoRows):
		return a, err
	}
	a.Screens, err = r.ListScreens(ctx, id)
	return a, err
}

// auditoriumRow is an auditorium joined with its address.
type auditoriumRow struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Lat       float64   `db:"lat"`
	Lng       float64   `db:"lng"`
	Address   string    `db:"address"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row auditoriumRow) toModel() model.Auditorium {
	return model.Auditorium{
		ID:        row.ID,
		Name:      row.Name,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		Address:   &model.Address{AuditoriumID: row.ID, Lat: row.Lat, Lng: row.Lng, Address: row.Address},
	}
}

const auditoriumWithAddress = `SELECT a.id, a.name, a.created_at, a.updated_at, ad.lat, ad.lng, ad.address
	FROM auditoriums a JOIN addresses ad ON ad.auditorium_id = a.id`

func (r *AuditoriumRepo) selectAuditoriums(ctx context.Context, query string, args ...interface{}) ([]model.Auditorium, error) {
	var rows []auditoriumRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return lo.Map(rows, func(row auditoriumRow, _ int) model.Auditorium { return row.toModel() }), nil
}

// SearchByBounds returns auditoriums whose address lies inside b.
func (r *AuditoriumRepo) SearchByBounds(ctx context.Context, b model.Bounds, limit int) ([]model.Auditorium, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.selectAuditoriums(ctx,
		auditoriumWithAddress+` WHERE ad.lat BETWEEN ? AND ? AND ad.lng BETWEEN ? AND ? ORDER BY a.id LIMIT ?`,
		b.SWLat, b.NELat, b.SWLng, b.NELng, limit)
}

// ListByManager returns the auditoriums a manager is linked to.
func (r *AuditoriumRepo) ListByManager(ctx context.Context, userID string) ([]model.Auditorium, error) {
	return r.selectAuditoriums(ctx,
		auditoriumWithAddress+` JOIN auditorium_managers m ON m.auditorium_id = a.id WHERE m.user_id = ? ORDER BY a.id`,
		userID)
}

// CountByManager counts the auditoriums a manager is linked to.
func (r *AuditoriumRepo) CountByManager(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM auditorium_managers WHERE user_id = ?`, userID)
	return n, err
}

// IsManager reports whether userID manages auditoriumID.
func (r *AuditoriumRepo) IsManager(ctx context.Context, auditoriumID int64, userID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM auditorium_managers WHERE auditorium_id = ? AND user_id = ?`, auditoriumID, userID)
	return n > 0, err
}

// Update renames the auditorium, moves its address and links ManagerID
// as an additional manager.  A non-empty Screens list replaces every
// screen; the old screens' showtimes, bookings and tickets are removed and
// their showtime ids returned.
func (r *AuditoriumRepo) Update(ctx context.Context, id int64, in NewAuditorium) (a model.Auditorium, removed []int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return a, nil, err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, rbErr)
			}
			return
		}
		err = tx.Commit()
	}()

	if err = lockAuditorium(ctx, tx, id); err != nil {
		return a, nil, err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE auditoriums SET name = ? WHERE id = ?`, strings.TrimSpace(in.Name), id); err != nil {
		return a, nil, err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO addresses (auditorium_id, lat, lng, address) VALUES (?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE lat = VALUES(lat), lng = VALUES(lng), address = VALUES(address)`,
		id, in.Address.Lat, in.Address.Lng, in.Address.Address); err != nil {
		return a, nil, err
	}
	if in.ManagerID != "" {
		if _, err = tx.ExecContext(ctx,
			`INSERT IGNORE INTO auditorium_managers (auditorium_id, user_id) VALUES (?, ?)`, id, in.ManagerID); err != nil {
			return a, nil, err
		}
	}
	if len(in.Screens) > 0 {
		if removed, err = clearScreens(ctx, tx, id); err != nil {
			return a, nil, err
		}
		if err = insertScreens(ctx, tx, id, in.Screens); err != nil {
			return a, nil, err
		}
	}
	a, err = readAuditorium(ctx, tx, id)
	return a, removed, err
}

// Delete removes an auditorium with its tickets, bookings, showtimes,
// screens, seats, address and manager links in one transaction.  It
// returns the ids of the removed showtimes.
func (r *AuditoriumRepo) Delete(ctx context.Context, id int64) (removed []int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, rbErr)
			}
			return
		}
		err = tx.Commit()
	}()

	if err = lockAuditorium(ctx, tx, id); err != nil {
		return nil, err
	}
	if removed, err = clearScreens(ctx, tx, id); err != nil {
		return nil, err
	}
	for _, q := range []string{
		`DELETE FROM addresses WHERE auditorium_id = ?`,
		`DELETE FROM auditorium_managers WHERE auditorium_id = ?`,
		`DELETE FROM auditoriums WHERE id = ?`,
	} {
		if _, err = tx.ExecContext(ctx, q, id); err != nil {
			return nil, err
		}
	}
	return removed, nil
}

// ListScreens returns an auditorium's screens ordered by number.
func (r *AuditoriumRepo) ListScreens(ctx context.Context, auditoriumID int64) ([]model.Screen, error) {
	out := []model.Screen{}
	err := r.db.SelectContext(ctx, &out, screenSelect+` WHERE auditorium_id = ? ORDER BY number`, auditoriumID)
	return out, err
}

// GetScreen fetches one screen.
func (r *AuditoriumRepo) GetScreen(ctx context.Context, id int64) (model.Screen, error) {
	var s model.Screen
	err := r.db.GetContext(ctx, &s, screenSelect+` WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrScreenNotFound
	}
	return s, err
}
