// Package notify writes user-facing notification records and fans them out
// to the message broker.
package notify

import (
    "context"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/gommon/log"

    "github.com/iliyamo/library-reservation/internal/model"
    "github.com/iliyamo/library-reservation/internal/queue"
)

// Store persists notifications.
type Store interface {
    Create(ctx context.Context, n *model.Notification) error
}

// Publisher delivers notification events to the broker.
type Publisher interface {
    PublishNotification(ctx context.Context, ev queue.NotificationEvent) error
}

// Emitter inserts notifications.  The insert is the only delivery guarantee;
// broker publishing runs in the background and never fails Emit.
type Emitter struct {
    store Store
    pub   Publisher
    now   func() time.Time
    log   *log.Logger

    wg sync.WaitGroup
}

// NewEmitter returns an Emitter.  pub may be nil when no broker is configured.
func NewEmitter(store Store, pub Publisher, now func() time.Time, logger *log.Logger) *Emitter {
    if now == nil {
        now = time.Now
    }
    if logger == nil {
        logger = log.New("notify")
    }
    return &Emitter{store: store, pub: pub, now: now, log: logger}
}

// Emit inserts an unread notification for userID.
func (e *Emitter) Emit(ctx context.Context, userID uint64, m Message) (*model.Notification, error) {
    n := &model.Notification{
        UserID:    userID,
        Title:     m.Title,
        Message:   m.Body,
        CreatedAt: e.now().UTC().Truncate(time.Second),
    }
    if err := e.store.Create(ctx, n); err != nil {
        e.log.Errorf("insert notification user=%d title=%q: %v", userID, m.Title, err)
        return nil, err
    }
    if e.pub != nil {
        e.publish(ctx, n)
    }
    return n, nil
}

func (e *Emitter) publish(ctx context.Context, n *model.Notification) {
    ev := queue.NotificationEvent{
        EventID:        uuid.NewString(),
        NotificationID: n.ID,
        UserID:         n.UserID,
        Title:          n.Title,
        Message:        n.Message,
        CreatedAt:      n.CreatedAt.Format(time.RFC3339),
    }
    e.wg.Add(1)
    go func() {
        defer e.wg.Done()
        // detached from the request so a finished response does not cancel it
        pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
        defer cancel()
        if err := e.pub.PublishNotification(pctx, ev); err != nil {
            e.log.Warnf("publish notification id=%d: %v", n.ID, err)
        }
    }()
}

// Wait blocks until in-flight publishes have finished.
func (e *Emitter) Wait() { e.wg.Wait() }
