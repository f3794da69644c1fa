package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/library-reservation/internal/model"
)

// ReservationRepo provides data access to the reservations table.
// reservation_date is stored as a calendar date; created_at and updated_at
// are UTC timestamps supplied by the caller.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, user_id, book_id, reservation_date, kind, status, created_at, updated_at`

func scanReservation(s scanner, extra ...any) (model.Reservation, error) {
	var r model.Reservation
	dest := []any{&r.ID, &r.UserID, &r.BookID, &r.ReservationDate, &r.Kind, &r.Status, &r.CreatedAt, &r.UpdatedAt}
	err := s.Scan(append(dest, extra...)...)
	r.ReservationDate = r.ReservationDate.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r, err
}

// Create inserts a reservation and populates its ID.  A unique-index
// violation (second pending hold on a book) is reported as ErrDuplicate.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	if res.Kind == "" {
		res.Kind = model.KindReservation
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	res.UpdatedAt = res.CreatedAt
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO reservations (user_id, book_id, reservation_date, kind, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.UserID, res.BookID, res.ReservationDate.UTC(), res.Kind, res.Status, res.CreatedAt.UTC(), res.UpdatedAt.UTC())
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// GetByID returns the reservation or ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	res, err := scanReservation(row)
	if err != nil {
		return nil, notFound(err)
	}
	return &res, nil
}

// ListByBook returns the book's reservations in the given statuses, latest
// reservation date first.  With no statuses every reservation is returned.
func (r *ReservationRepo) ListByBook(ctx context.Context, bookID uint64, statuses ...string) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE book_id = ?`
	args := []any{bookID}
	if len(statuses) > 0 {
		q += ` AND status IN (?` + strings.Repeat(", ?", len(statuses)-1) + `)`
		for _, s := range statuses {
			args = append(args, s)
		}
	}
	q += ` ORDER BY reservation_date DESC, id DESC`
	return r.list(ctx, q, args...)
}

// ListByUser returns a user's reservations, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	return r.list(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID)
}

func (r *ReservationRepo) list(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// CountByBook counts the book's reservations in the given status.
func (r *ReservationRepo) CountByBook(ctx context.Context, bookID uint64, status string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE book_id = ? AND status = ?`, bookID, status).Scan(&n)
	return n, err
}

// UpdateStatus moves a reservation from one status to another.  The update
// only applies while the row is still in the from status; otherwise
// ErrNoChange is returned (or ErrNotFound if the row does not exist).
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, from, to string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, at.UTC(), id, from)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrNoChange
	}
	return nil
}

// ListPending returns every pending reservation joined with the book title
// and the user's email, oldest request first.
func (r *ReservationRepo) ListPending(ctx context.Context) ([]model.ReservationView, error) {
	const q = `SELECT r.id, r.user_id, r.book_id, r.reservation_date, r.kind, r.status, r.created_at, r.updated_at,
	                  b.title, COALESCE(u.email, '')
	           FROM reservations r
	           JOIN books b ON b.id = r.book_id
	           LEFT JOIN users u ON u.id = r.user_id
	           WHERE r.status = ?
	           ORDER BY r.created_at, r.id`
	rows, err := r.db.QueryContext(ctx, q, model.ReservationPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ReservationView, 0)
	for rows.Next() {
		var v model.ReservationView
		res, err := scanReservation(rows, &v.BookTitle, &v.UserEmail)
		if err != nil {
			return nil, err
		}
		v.Reservation = res
		out = append(out, v)
	}
	return out, rows.Err()
}
