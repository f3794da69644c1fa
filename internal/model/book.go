package model

import "time"

// Book statuses.  The status column is a projection of the latest
// reservation/borrowing state and is only written by the lifecycle manager.
const (
    BookAvailable = "available"
    BookBorrowed  = "borrowed"
    BookReserved  = "reserved"
)

// Book represents a catalog entry.  Books are created by an admin and are
// never deleted.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – book title.
//  Author      – author name(s).
//  Genre       – subject / genre.
//  ISBN        – ISBN-13 as printed.
//  Location    – call number / shelf location.
//  Description – free-form notes.
//  Status      – available, borrowed or reserved.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Book struct {
    ID          uint64    `json:"id"`          // books.id
    Title       string    `json:"title"`       // books.title
    Author      string    `json:"author"`      // books.author
    Genre       string    `json:"genre"`       // books.genre
    ISBN        string    `json:"isbn"`        // books.isbn
    Location    string    `json:"location"`    // books.location
    Description string    `json:"description"` // books.description
    Status      string    `json:"status"`      // books.status
    CreatedAt   time.Time `json:"created_at"`  // books.created_at
    UpdatedAt   time.Time `json:"updated_at"`  // books.updated_at
}
