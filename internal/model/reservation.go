package model

import "time"

// Reservation statuses.  pending is the only non-terminal state.
const (
    ReservationPending   = "pending"
    ReservationFulfilled = "fulfilled"
    ReservationCancelled = "cancelled"
)

// Reservation kinds.  A hold is a reservation placed through the waitlist
// path; its date is computed rather than chosen by the student.
const (
    KindReservation = "reservation"
    KindHold        = "hold"
)

// Reservation records a student's claim on a book for a pickup date.
// Reservations move from pending to fulfilled or cancelled by admin action
// and are never deleted.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – student who placed the reservation.
//  BookID          – reserved book.
//  ReservationDate – calendar day (UTC midnight) the book is claimed for.
//  Kind            – reservation or hold.
//  Status          – pending, fulfilled or cancelled.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Reservation struct {
    ID              uint64    `json:"id"`               // reservations.id
    UserID          uint64    `json:"user_id"`          // reservations.user_id
    BookID          uint64    `json:"book_id"`          // reservations.book_id
    ReservationDate time.Time `json:"reservation_date"` // reservations.reservation_date
    Kind            string    `json:"kind"`             // reservations.kind
    Status          string    `json:"status"`           // reservations.status
    CreatedAt       time.Time `json:"created_at"`       // reservations.created_at
    UpdatedAt       time.Time `json:"updated_at"`       // reservations.updated_at
}

// ReservationView is a pending reservation joined with the book title and the
// reserving user's email, as shown on the admin request list.
type ReservationView struct {
    Reservation
    BookTitle string `json:"book_title"`
    UserEmail string `json:"user_email"`
}
