package notify

import (
    "context"
    "errors"
    "io"
    "sync"
    "testing"
    "time"

    "github.com/labstack/gommon/log"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/library-reservation/internal/model"
    "github.com/iliyamo/library-reservation/internal/queue"
)

type memStore struct {
    rows []model.Notification
    err  error
}

func (s *memStore) Create(_ context.Context, n *model.Notification) error {
    if s.err != nil {
        return s.err
    }
    n.ID = uint64(len(s.rows) + 1)
    s.rows = append(s.rows, *n)
    return nil
}

type memPublisher struct {
    mu     sync.Mutex
    events []queue.NotificationEvent
    err    error
}

func (p *memPublisher) PublishNotification(_ context.Context, ev queue.NotificationEvent) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.events = append(p.events, ev)
    return p.err
}

func quietLogger() *log.Logger {
    l := log.New("test")
    l.SetOutput(io.Discard)
    return l
}

var fixedNow = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 15, 500, time.UTC) }

func TestEmit_InsertsUnreadAndPublishes(t *testing.T) {
    store := &memStore{}
    pub := &memPublisher{}
    e := NewEmitter(store, pub, fixedNow, quietLogger())

    n, err := e.Emit(context.Background(), 4, BookBorrowed("Dune", time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)))
    require.NoError(t, err)
    e.Wait()

    require.Len(t, store.rows, 1)
    assert.Equal(t, uint64(1), n.ID)
    assert.Equal(t, uint64(4), store.rows[0].UserID)
    assert.False(t, store.rows[0].IsRead)
    assert.Equal(t, "Book Borrowed", store.rows[0].Title)
    assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 15, 0, time.UTC), store.rows[0].CreatedAt)

    require.Len(t, pub.events, 1)
    assert.Equal(t, uint64(1), pub.events[0].NotificationID)
    assert.Equal(t, "2024-03-01T09:30:15Z", pub.events[0].CreatedAt)
    assert.NotEmpty(t, pub.events[0].EventID)
}

func TestEmit_PublishFailureDoesNotFail(t *testing.T) {
    store := &memStore{}
    e := NewEmitter(store, &memPublisher{err: errors.New("broker down")}, fixedNow, quietLogger())

    _, err := e.Emit(context.Background(), 1, DueSoon("Dune", fixedNow()))
    e.Wait()
    assert.NoError(t, err)
    assert.Len(t, store.rows, 1)
}

func TestEmit_StoreFailure(t *testing.T) {
    boom := errors.New("db down")
    pub := &memPublisher{}
    e := NewEmitter(&memStore{err: boom}, pub, fixedNow, quietLogger())

    _, err := e.Emit(context.Background(), 1, DueSoon("Dune", fixedNow()))
    e.Wait()
    assert.ErrorIs(t, err, boom)
    assert.Empty(t, pub.events)
}

func TestEmit_NilPublisher(t *testing.T) {
    store := &memStore{}
    e := NewEmitter(store, nil, fixedNow, quietLogger())
    _, err := e.Emit(context.Background(), 1, DueSoon("Dune", fixedNow()))
    assert.NoError(t, err)
}
