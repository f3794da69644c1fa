// Package lifecycle drives reservations, holds and loans through their
// states.  It consults the scheduling rules, performs the writes in a fixed
// order and emits the user's notification.  Writes are not transactional:
// when a step fails after the primary write the caller receives a
// *PartialFailureError and nothing is rolled back.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/library-reservation/internal/lock"
	"github.com/iliyamo/library-reservation/internal/model"
	"github.com/iliyamo/library-reservation/internal/notify"
	"github.com/iliyamo/library-reservation/internal/repository"
	"github.com/iliyamo/library-reservation/internal/scheduling"
)

// BookStore is the subset of the book repository the manager needs.
type BookStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Book, error)
	UpdateStatus(ctx context.Context, id uint64, status string, at time.Time) error
}

// ReservationStore is the subset of the reservation repository the manager needs.
type ReservationStore interface {
	Create(ctx context.Context, r *model.Reservation) error
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	ListByBook(ctx context.Context, bookID uint64, statuses ...string) ([]model.Reservation, error)
	CountByBook(ctx context.Context, bookID uint64, status string) (int, error)
	UpdateStatus(ctx context.Context, id uint64, from, to string, at time.Time) error
}

// BorrowingStore is the subset of the borrowing repository the manager needs.
type BorrowingStore interface {
	Create(ctx context.Context, b *model.Borrowing) error
	GetByID(ctx context.Context, id uint64) (*model.Borrowing, error)
	ActiveByBook(ctx context.Context, bookID uint64) (*model.Borrowing, error)
	MarkReturned(ctx context.Context, id uint64, at time.Time) error
}

// Notifier writes a notification for a user.
type Notifier interface {
	Emit(ctx context.Context, userID uint64, m notify.Message) (*model.Notification, error)
}

// Manager owns every write to reservations, borrowings and Book.status.
type Manager struct {
	Books        BookStore
	Reservations ReservationStore
	Borrowings   BorrowingStore
	Notifier     Notifier
	Locker       lock.Locker

	// Clock supplies the current time; it is the only time source used.
	Clock func() time.Time
	Log   *log.Logger
}

// NewManager returns a Manager using the wall clock and a default logger.
func NewManager(books BookStore, reservations ReservationStore, borrowings BorrowingStore, notifier Notifier, locker lock.Locker) *Manager {
	if locker == nil {
		locker = lock.NewMemoryLocker()
	}
	return &Manager{
		Books:        books,
		Reservations: reservations,
		Borrowings:   borrowings,
		Notifier:     notifier,
		Locker:       locker,
		Clock:        time.Now,
		Log:          log.New("lifecycle"),
	}
}

// HoldResult is a newly placed hold together with its queue position.
type HoldResult struct {
	Reservation   *model.Reservation `json:"reservation"`
	QueuePosition int                `json:"queue_position"`
}

func (m *Manager) now() time.Time {
	return m.Clock().UTC().Truncate(time.Second)
}

// lockBook serializes the read-then-write sequences on one book across
// requests (and processes, with the redis locker).
func (m *Manager) lockBook(ctx context.Context, bookID uint64) (func(), error) {
	release, err := m.Locker.Lock(ctx, lock.BookKey(bookID))
	if err != nil {
		m.Log.Warnf("lock book %d: %v", bookID, err)
		return nil, fmt.Errorf("lock book %d: %w", bookID, err)
	}
	return release, nil
}

func (m *Manager) loadBook(ctx context.Context, id uint64) (*model.Book, error) {
	b, err := m.Books.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	return b, err
}

// activeBorrowing returns the book's borrowed loan or nil.
func (m *Manager) activeBorrowing(ctx context.Context, bookID uint64) (*model.Borrowing, error) {
	b, err := m.Borrowings.ActiveByBook(ctx, bookID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return b, err
}

// setBookStatus is the only writer of Book.status.
func (m *Manager) setBookStatus(ctx context.Context, bookID uint64, status string, at time.Time) error {
	if err := m.Books.UpdateStatus(ctx, bookID, status, at); err != nil {
		m.Log.Errorf("set book %d status %s: %v", bookID, status, err)
		return err
	}
	return nil
}

func (m *Manager) partial(op string, completed []string, failed string, err error) error {
	m.Log.Errorf("%s: %s failed after %v: %v", op, failed, completed, err)
	return &PartialFailureError{Operation: op, Completed: completed, Failed: failed, Err: err}
}

// Reserve books bookID for userID on date.  The date must not fall in the
// loan window of another non-cancelled reservation nor before the due date
// of the active loan.  Book.status is not touched.
func (m *Manager) Reserve(ctx context.Context, userID, bookID uint64, date time.Time) (*model.Reservation, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	book, err := m.loadBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	now := m.now()
	day := scheduling.Day(date)
	if day.Before(scheduling.Day(now)) {
		return nil, validationConflict("Reservation date cannot be in the past.")
	}

	release, err := m.lockBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := m.Reservations.ListByBook(ctx, bookID, model.ReservationPending, model.ReservationFulfilled)
	if err != nil {
		return nil, err
	}
	active, err := m.activeBorrowing(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if d := scheduling.CheckDateConflict(day, existing, active); !d.Allowed {
		return nil, validationConflict(d.Reason)
	}

	res := &model.Reservation{
		UserID:          userID,
		BookID:          bookID,
		ReservationDate: day,
		Kind:            model.KindReservation,
		Status:          model.ReservationPending,
		CreatedAt:       now,
	}
	if err := m.Reservations.Create(ctx, res); err != nil {
		m.Log.Errorf("reserve: insert reservation user=%d book=%d: %v", userID, bookID, err)
		return nil, err
	}
	if _, err := m.Notifier.Emit(ctx, userID, notify.ReservationConfirmed(book.Title, day)); err != nil {
		return res, m.partial("reserve", []string{"reservation created"}, "notification", err)
	}
	return res, nil
}

// PlaceHold queues userID for bookID.  Only one pending reservation may
// exist on a book when a hold is placed; the pickup date is computed.
func (m *Manager) PlaceHold(ctx context.Context, userID, bookID uint64) (*HoldResult, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	book, err := m.loadBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	release, err := m.lockBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	defer release()

	count, err := m.Reservations.CountByBook(ctx, bookID, model.ReservationPending)
	if err != nil {
		return nil, err
	}
	if d := scheduling.EnforceSingleActiveHold(count); !d.Allowed {
		return nil, queueConflict(d.Reason)
	}
	pending, err := m.Reservations.ListByBook(ctx, bookID, model.ReservationPending)
	if err != nil {
		return nil, err
	}
	active, err := m.activeBorrowing(ctx, bookID)
	if err != nil {
		return nil, err
	}
	now := m.now()
	sched := scheduling.ComputeHoldSchedule(pending, active, now)

	res := &model.Reservation{
		UserID:          userID,
		BookID:          bookID,
		ReservationDate: sched.HoldDate,
		Kind:            model.KindHold,
		Status:          model.ReservationPending,
		CreatedAt:       now,
	}
	if err := m.Reservations.Create(ctx, res); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, queueConflict(scheduling.EnforceSingleActiveHold(1).Reason)
		}
		m.Log.Errorf("hold: insert reservation user=%d book=%d: %v", userID, bookID, err)
		return nil, err
	}
	out := &HoldResult{Reservation: res, QueuePosition: sched.QueuePosition}
	if _, err := m.Notifier.Emit(ctx, userID, notify.HoldScheduled(book.Title, sched.HoldDate, sched.QueuePosition)); err != nil {
		return out, m.partial("hold", []string{"hold created"}, "notification", err)
	}
	return out, nil
}

// pendingReservation loads a reservation that must still be pending.
func (m *Manager) pendingReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := m.Reservations.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("reservation %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if res.Status != model.ReservationPending {
		return nil, fmt.Errorf("reservation %d is %s: %w", id, res.Status, ErrAlreadyTerminal)
	}
	return res, nil
}

// transition moves a reservation out of pending, mapping a lost race to
// ErrAlreadyTerminal.
func (m *Manager) transition(ctx context.Context, id uint64, to string, at time.Time) error {
	err := m.Reservations.UpdateStatus(ctx, id, model.ReservationPending, to, at)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNoChange):
		return fmt.Errorf("reservation %d: %w", id, ErrAlreadyTerminal)
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("reservation %d: %w", id, ErrNotFound)
	default:
		m.Log.Errorf("reservation %d -> %s: %v", id, to, err)
		return err
	}
}

// ApproveReservation fulfils a pending reservation: the reservation becomes
// fulfilled, a loan starts now for LoanPeriod, the book is marked borrowed
// and the student is notified of the due date.  The approval is refused
// without any write while another loan on the book is active.
func (m *Manager) ApproveReservation(ctx context.Context, reservationID uint64) (*model.Borrowing, error) {
	res, err := m.pendingReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	release, err := m.lockBook(ctx, res.BookID)
	if err != nil {
		return nil, err
	}
	defer release()

	book, err := m.loadBook(ctx, res.BookID)
	if err != nil {
		return nil, err
	}
	active, err := m.activeBorrowing(ctx, res.BookID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, validationConflict(fmt.Sprintf("This book is borrowed until %s.", scheduling.FormatDate(active.DueDate)))
	}

	now := m.now()
	if err := m.transition(ctx, res.ID, model.ReservationFulfilled, now); err != nil {
		return nil, err
	}
	done := []string{"reservation fulfilled"}

	loan := &model.Borrowing{
		UserID:     res.UserID,
		BookID:     res.BookID,
		BorrowDate: now,
		DueDate:    now.Add(scheduling.LoanPeriod),
		Status:     model.BorrowingBorrowed,
		CreatedAt:  now,
	}
	if err := m.Borrowings.Create(ctx, loan); err != nil {
		return nil, m.partial("approve", done, "create borrowing", err)
	}
	done = append(done, "borrowing created")

	if err := m.setBookStatus(ctx, res.BookID, model.BookBorrowed, now); err != nil {
		return loan, m.partial("approve", done, "book status", err)
	}
	done = append(done, "book borrowed")

	if _, err := m.Notifier.Emit(ctx, res.UserID, notify.BookBorrowed(book.Title, loan.DueDate)); err != nil {
		return loan, m.partial("approve", done, "notification", err)
	}
	return loan, nil
}

// RejectReservation cancels a pending reservation and tells the student.
func (m *Manager) RejectReservation(ctx context.Context, reservationID uint64) (*model.Reservation, error) {
	res, err := m.pendingReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	book, err := m.loadBook(ctx, res.BookID)
	if err != nil {
		return nil, err
	}
	now := m.now()
	if err := m.transition(ctx, res.ID, model.ReservationCancelled, now); err != nil {
		return nil, err
	}
	res.Status = model.ReservationCancelled
	res.UpdatedAt = now

	if _, err := m.Notifier.Emit(ctx, res.UserID, notify.ReservationDeclined(book.Title, res.ReservationDate)); err != nil {
		return res, m.partial("reject", []string{"reservation cancelled"}, "notification", err)
	}
	return res, nil
}

// ReturnBook closes a loan and makes the book available.  Returning a loan
// twice fails with ErrAlreadyTerminal and writes nothing.
func (m *Manager) ReturnBook(ctx context.Context, borrowingID uint64) (*model.Borrowing, error) {
	loan, err := m.Borrowings.GetByID(ctx, borrowingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("borrowing %d: %w", borrowingID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if loan.Status == model.BorrowingReturned {
		return nil, fmt.Errorf("borrowing %d: %w", borrowingID, ErrAlreadyTerminal)
	}

	release, err := m.lockBook(ctx, loan.BookID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := m.now()
	switch err := m.Borrowings.MarkReturned(ctx, loan.ID, now); {
	case errors.Is(err, repository.ErrNoChange):
		return nil, fmt.Errorf("borrowing %d: %w", borrowingID, ErrAlreadyTerminal)
	case err != nil:
		m.Log.Errorf("return borrowing %d: %v", borrowingID, err)
		return nil, err
	}
	loan.Status = model.BorrowingReturned
	loan.ReturnDate = &now

	if err := m.setBookStatus(ctx, loan.BookID, model.BookAvailable, now); err != nil {
		return loan, m.partial("return", []string{"borrowing returned"}, "book status", err)
	}
	return loan, nil
}
