package model

import "time"

// Borrowing statuses.  returned is terminal.
const (
    BorrowingBorrowed = "borrowed"
    BorrowingReturned = "returned"
)

// Borrowing is a loan of a book to a user.  At most one borrowing per book
// may be in the borrowed state.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – borrower.
//  BookID     – borrowed book.
//  BorrowDate – when the loan started.
//  DueDate    – BorrowDate plus the loan period.
//  ReturnDate – when the book came back (nil while borrowed).
//  Status     – borrowed or returned.
//  CreatedAt  – creation timestamp.
type Borrowing struct {
    ID         uint64     `json:"id"`                    // borrowings.id
    UserID     uint64     `json:"user_id"`               // borrowings.user_id
    BookID     uint64     `json:"book_id"`               // borrowings.book_id
    BorrowDate time.Time  `json:"borrow_date"`           // borrowings.borrow_date
    DueDate    time.Time  `json:"due_date"`              // borrowings.due_date
    ReturnDate *time.Time `json:"return_date,omitempty"` // borrowings.return_date (nullable)
    Status     string     `json:"status"`                // borrowings.status
    CreatedAt  time.Time  `json:"created_at"`            // borrowings.created_at
}

// BorrowingView joins a borrowing with its book title and borrower email.
type BorrowingView struct {
    Borrowing
    BookTitle string `json:"book_title"`
    UserEmail string `json:"user_email"`
}
