// Package reminder runs the daily job that warns students about loans due
// the next day.  It only writes notifications; loan and book states are
// never changed here.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/robfig/cron/v3"

	"github.com/iliyamo/library-reservation/internal/model"
	"github.com/iliyamo/library-reservation/internal/notify"
	"github.com/iliyamo/library-reservation/internal/scheduling"
)

// DefaultSpec fires every day at 08:00 server time.
const DefaultSpec = "0 8 * * *"

// LoanLister returns active loans whose due date falls in [from, to).
type LoanLister interface {
	ListDueBetween(ctx context.Context, from, to time.Time) ([]model.BorrowingView, error)
}

// Notifier writes a notification for a user.
type Notifier interface {
	Emit(ctx context.Context, userID uint64, m notify.Message) (*model.Notification, error)
}

// Scheduler wraps a cron runner with the due-soon job.
type Scheduler struct {
	loans    LoanLister
	notifier Notifier
	cron     *cron.Cron
	timeout  time.Duration

	Clock func() time.Time
	Log   *log.Logger
}

// NewScheduler returns a Scheduler that has not been started.
func NewScheduler(loans LoanLister, notifier Notifier) *Scheduler {
	return &Scheduler{
		loans:    loans,
		notifier: notifier,
		cron:     cron.New(),
		timeout:  time.Minute,
		Clock:    time.Now,
		Log:      log.New("reminder"),
	}
}

// Start registers the job under spec (standard 5-field cron syntax) and
// starts the runner in its own goroutine.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("reminder spec %q: %w", spec, err)
	}
	s.cron.Start()
	s.Log.Infof("due-soon reminders scheduled (%s)", spec)
	return nil
}

// Stop stops the runner and waits up to ctx for a running job to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.Log.Warn("reminder job still running at shutdown")
	}
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	n, err := s.RunOnce(ctx)
	if err != nil {
		s.Log.Errorf("due-soon run: %v", err)
	}
	s.Log.Infof("due-soon run sent %d reminders", n)
}

// RunOnce notifies the borrower of every active loan due tomorrow and
// returns how many reminders were written.  A failed notification does not
// stop the others; all failures are returned joined.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	from := scheduling.Day(s.Clock()).Add(24 * time.Hour)
	to := from.Add(24 * time.Hour)

	loans, err := s.loans.ListDueBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("list due loans: %w", err)
	}
	var (
		sent int
		errs []error
	)
	for _, l := range loans {
		if _, err := s.notifier.Emit(ctx, l.UserID, notify.DueSoon(l.BookTitle, l.DueDate)); err != nil {
			errs = append(errs, fmt.Errorf("borrowing %d: %w", l.ID, err))
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}
