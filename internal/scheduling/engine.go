// Package scheduling holds the date rules that decide whether a reservation,
// hold or loan may proceed on a book.  Every function here is pure: callers
// load the book's reservations and active borrowing, pass the current time
// explicitly and act on the returned decision.
package scheduling

import (
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/library-reservation/internal/model"
)

const (
	// LoanPeriod is how long one borrower keeps a book.  Two reservations on
	// the same book must be at least this far apart.
	LoanPeriod = 7 * 24 * time.Hour

	// HoldBuffer is added to a hold's base date to leave room for checkout lag.
	HoldBuffer = 10 * 24 * time.Hour
)

const dateLayout = "2006-01-02"

// Decision is the outcome of a scheduling check.  Reason is user-visible and
// only set when Allowed is false.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(format string, args ...any) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// HoldSchedule is the pickup date and 1-based queue position computed for a
// new hold.
type HoldSchedule struct {
	HoldDate      time.Time
	QueuePosition int
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CheckDateConflict reports whether requested can be reserved given the
// book's reservations and its active borrowing (nil when none).
//
// A non-cancelled reservation conflicts when it lies strictly less than
// LoanPeriod away from requested, in either direction.  An active borrowing
// conflicts when requested falls before its due date.  Exactly LoanPeriod
// apart, or exactly on the due date, is allowed.
func CheckDateConflict(requested time.Time, reservations []model.Reservation, active *model.Borrowing) Decision {
	req := Day(requested)
	for _, r := range reservations {
		if r.Status == model.ReservationCancelled {
			continue
		}
		diff := req.Sub(Day(r.ReservationDate))
		if diff < 0 {
			diff = -diff
		}
		if diff < LoanPeriod {
			return deny("This date overlaps an existing reservation on %s.", Day(r.ReservationDate).Format(dateLayout))
		}
	}
	if active != nil && active.Status == model.BorrowingBorrowed {
		if req.Before(Day(active.DueDate)) {
			return deny("This book is borrowed until %s.", Day(active.DueDate).Format(dateLayout))
		}
	}
	return allow()
}

// ComputeHoldSchedule derives the hold date and queue position for a new
// hold.  pending holds the book's pending reservations; the latest date among
// them is used as the base regardless of input order.  Without pending
// reservations the active borrowing's start is the base, and failing that
// today.  The hold date is always base + HoldBuffer.
func ComputeHoldSchedule(pending []model.Reservation, active *model.Borrowing, today time.Time) HoldSchedule {
	var (
		base     time.Time
		position = 1
		found    bool
	)
	for _, r := range pending {
		if r.Status != model.ReservationPending {
			continue
		}
		d := Day(r.ReservationDate)
		if !found || d.After(base) {
			base = d
		}
		found = true
		position++
	}
	if !found {
		position = 1
		switch {
		case active != nil && active.Status == model.BorrowingBorrowed:
			base = Day(active.BorrowDate)
		default:
			base = Day(today)
		}
	}
	return HoldSchedule{HoldDate: base.Add(HoldBuffer), QueuePosition: position}
}

// EnforceSingleActiveHold allows a hold only when the book has no pending
// reservation at all.  The limit is per book, not per user.
func EnforceSingleActiveHold(pendingCount int) Decision {
	if pendingCount > 0 {
		return deny("Someone is already holding this book. Only one student can hold a book at a time.")
	}
	return allow()
}

// BusyDates returns the sorted, de-duplicated calendar dates of the
// non-cancelled reservations, formatted YYYY-MM-DD.
func BusyDates(reservations []model.Reservation) []string {
	seen := make(map[string]struct{}, len(reservations))
	out := make([]string, 0, len(reservations))
	for _, r := range reservations {
		if r.Status == model.ReservationCancelled {
			continue
		}
		s := Day(r.ReservationDate).Format(dateLayout)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// FormatDate renders t as YYYY-MM-DD in UTC.
func FormatDate(t time.Time) string {
	return Day(t).Format(dateLayout)
}
