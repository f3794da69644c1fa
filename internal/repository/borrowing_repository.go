package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/library-reservation/internal/model"
)

// BorrowingRepo provides data access to the borrowings table.  The schema
// allows at most one borrowed row per book; a second insert fails with
// ErrDuplicate.
type BorrowingRepo struct {
	db *sql.DB
}

// NewBorrowingRepo returns a new BorrowingRepo bound to the given database.
func NewBorrowingRepo(db *sql.DB) *BorrowingRepo { return &BorrowingRepo{db: db} }

const borrowingColumns = `id, user_id, book_id, borrow_date, due_date, return_date, status, created_at`

func scanBorrowing(s scanner, extra ...any) (model.Borrowing, error) {
	var (
		b        model.Borrowing
		returned sql.NullTime
	)
	dest := []any{&b.ID, &b.UserID, &b.BookID, &b.BorrowDate, &b.DueDate, &returned, &b.Status, &b.CreatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return b, err
	}
	b.BorrowDate = b.BorrowDate.UTC()
	b.DueDate = b.DueDate.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	if returned.Valid {
		t := returned.Time.UTC()
		b.ReturnDate = &t
	}
	return b, nil
}

// Create inserts a borrowing and populates its ID.
func (r *BorrowingRepo) Create(ctx context.Context, b *model.Borrowing) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = b.BorrowDate
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO borrowings (user_id, book_id, borrow_date, due_date, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		b.UserID, b.BookID, b.BorrowDate.UTC(), b.DueDate.UTC(), b.Status, b.CreatedAt.UTC())
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByID returns the borrowing or ErrNotFound.
func (r *BorrowingRepo) GetByID(ctx context.Context, id uint64) (*model.Borrowing, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+borrowingColumns+` FROM borrowings WHERE id = ?`, id)
	b, err := scanBorrowing(row)
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// ActiveByBook returns the book's borrowed row or ErrNotFound when the book
// is not on loan.
func (r *BorrowingRepo) ActiveByBook(ctx context.Context, bookID uint64) (*model.Borrowing, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+borrowingColumns+` FROM borrowings WHERE book_id = ? AND status = ? ORDER BY id DESC LIMIT 1`,
		bookID, model.BorrowingBorrowed)
	b, err := scanBorrowing(row)
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// MarkReturned closes a loan.  It only applies to borrowed rows; a second
// call returns ErrNoChange.
func (r *BorrowingRepo) MarkReturned(ctx context.Context, id uint64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE borrowings SET status = ?, return_date = ? WHERE id = ? AND status = ?`,
		model.BorrowingReturned, at.UTC(), id, model.BorrowingBorrowed)
	if err != nil {
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

// ListByUser returns a user's borrowings, newest first.
func (r *BorrowingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Borrowing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+borrowingColumns+` FROM borrowings WHERE user_id = ? ORDER BY borrow_date DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Borrowing, 0)
	for rows.Next() {
		b, err := scanBorrowing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListActive returns every borrowed row joined with book title and
// borrower email, soonest due first.
func (r *BorrowingRepo) ListActive(ctx context.Context) ([]model.BorrowingView, error) {
	return r.listViews(ctx, `WHERE br.status = ? ORDER BY br.due_date, br.id`, model.BorrowingBorrowed)
}

// ListDueBetween returns borrowed rows whose due date falls in [from, to).
func (r *BorrowingRepo) ListDueBetween(ctx context.Context, from, to time.Time) ([]model.BorrowingView, error) {
	return r.listViews(ctx, `WHERE br.status = ? AND br.due_date >= ? AND br.due_date < ? ORDER BY br.due_date, br.id`,
		model.BorrowingBorrowed, from.UTC(), to.UTC())
}

func (r *BorrowingRepo) listViews(ctx context.Context, tail string, args ...any) ([]model.BorrowingView, error) {
	q := `SELECT br.id, br.user_id, br.book_id, br.borrow_date, br.due_date, br.return_date, br.status, br.created_at,
	             b.title, COALESCE(u.email, '')
	      FROM borrowings br
	      JOIN books b ON b.id = br.book_id
	      LEFT JOIN users u ON u.id = br.user_id
	      ` + tail
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.BorrowingView, 0)
	for rows.Next() {
		var v model.BorrowingView
		b, err := scanBorrowing(rows, &v.BookTitle, &v.UserEmail)
		if err != nil {
			return nil, err
		}
		v.Borrowing = b
		out = append(out, v)
	}
	return out, rows.Err()
}
