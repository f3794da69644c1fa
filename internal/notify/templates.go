package notify

import (
    "fmt"
    "time"

    "github.com/iliyamo/library-reservation/internal/scheduling"
)

// Message is the user-facing text of one notification.
type Message struct {
    Title string
    Body  string
}

func ReservationConfirmed(bookTitle string, date time.Time) Message {
    return Message{
        Title: "Reservation Confirmed",
        Body:  fmt.Sprintf("Your reservation for %q on %s has been received and is awaiting approval.", bookTitle, scheduling.FormatDate(date)),
    }
}

// HoldScheduled embeds the queue position so the student knows how many
// readers are ahead of them.
func HoldScheduled(bookTitle string, date time.Time, position int) Message {
    return Message{
        Title: "Hold Placed",
        Body: fmt.Sprintf("You are number %d in the queue for %q. Your estimated pickup date is %s.",
            position, bookTitle, scheduling.FormatDate(date)),
    }
}

func ReservationDeclined(bookTitle string, date time.Time) Message {
    return Message{
        Title: "Reservation Declined",
        Body:  fmt.Sprintf("Your reservation for %q on %s was declined by the library.", bookTitle, scheduling.FormatDate(date)),
    }
}

func BookBorrowed(bookTitle string, due time.Time) Message {
    return Message{
        Title: "Book Borrowed",
        Body:  fmt.Sprintf("You borrowed %q. Please return it by %s.", bookTitle, scheduling.FormatDate(due)),
    }
}

func DueSoon(bookTitle string, due time.Time) Message {
    return Message{
        Title: "Return Reminder",
        Body:  fmt.Sprintf("%q is due back on %s.", bookTitle, scheduling.FormatDate(due)),
    }
}
