package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/library-reservation/internal/model"
)

// BookRepo provides data access to the books table.
type BookRepo struct {
	db *sql.DB
}

// NewBookRepo returns a new BookRepo bound to the given database.
func NewBookRepo(db *sql.DB) *BookRepo { return &BookRepo{db: db} }

// BookFilter narrows List.  Empty fields are ignored.  Query matches title
// or author as a case-insensitive substring.
type BookFilter struct {
	Query  string
	Genre  string
	Status string
	Limit  int
	Offset int
}

const bookColumns = `id, title, author, genre, isbn, location, description, status, created_at, updated_at`

func scanBook(s scanner) (model.Book, error) {
	var b model.Book
	err := s.Scan(&b.ID, &b.Title, &b.Author, &b.Genre, &b.ISBN, &b.Location, &b.Description,
		&b.Status, &b.CreatedAt, &b.UpdatedAt)
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, err
}

// Create inserts a book.  New books always start available; the status is
// afterwards owned by the lifecycle manager.
func (r *BookRepo) Create(ctx context.Context, b *model.Book) error {
	now := time.Now().UTC()
	b.Status = model.BookAvailable
	b.CreatedAt, b.UpdatedAt = now, now
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO books (title, author, genre, isbn, location, description, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Title, b.Author, b.Genre, b.ISBN, b.Location, b.Description, b.Status, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByID returns the book or ErrNotFound.
func (r *BookRepo) GetByID(ctx context.Context, id uint64) (*model.Book, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	b, err := scanBook(row)
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// List returns books matching the filter ordered by title.
func (r *BookRepo) List(ctx context.Context, f BookFilter) ([]model.Book, error) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(author) LIKE ?)")
		args = append(args, like, like)
	}
	if g := strings.TrimSpace(f.Genre); g != "" {
		where = append(where, "genre = ?")
		args = append(args, g)
	}
	if s := strings.TrimSpace(f.Status); s != "" {
		where = append(where, "status = ?")
		args = append(args, s)
	}
	q := `SELECT ` + bookColumns + ` FROM books`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY title, id"
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q += " LIMIT ? OFFSET ?"
	args = append(args, limit, max(f.Offset, 0))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	books := make([]model.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// UpdateStatus sets the book's status.  It returns ErrNotFound when the book
// does not exist.
func (r *BookRepo) UpdateStatus(ctx context.Context, id uint64, status string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE books SET status = ?, updated_at = ? WHERE id = ?`, status, at.UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM books WHERE id = ?`, id).Scan(&one); err != nil {
			return notFound(err)
		}
	}
	return nil
}
