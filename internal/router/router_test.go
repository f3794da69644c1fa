package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	glog "github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-reservation/internal/config"
	"github.com/iliyamo/library-reservation/internal/database"
	"github.com/iliyamo/library-reservation/internal/handler"
	"github.com/iliyamo/library-reservation/internal/lifecycle"
	"github.com/iliyamo/library-reservation/internal/middleware"
	"github.com/iliyamo/library-reservation/internal/model"
	"github.com/iliyamo/library-reservation/internal/notify"
	"github.com/iliyamo/library-reservation/internal/repository"
	"github.com/iliyamo/library-reservation/internal/router"
	"github.com/iliyamo/library-reservation/internal/utils"
)

const secret = "test-secret"

// 2024-03-01 is "today" for every request.
var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type app struct {
	e       *echo.Echo
	manager *lifecycle.Manager
	users   *repository.UserRepo
	book    *model.Book
	student string
	other   string
	admin   string
}

func newApp(t *testing.T) *app {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, database.SQLiteDSN(filepath.Join(t.TempDir(), "library.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.DriverSQLite))

	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	books := repository.NewBookRepo(db)
	reservations := repository.NewReservationRepo(db)
	borrowings := repository.NewBorrowingRepo(db)
	notes := repository.NewNotificationRepo(db)

	quiet := glog.New("test")
	quiet.SetLevel(glog.OFF)
	emitter := notify.NewEmitter(notes, nil, func() time.Time { return fixedNow }, quiet)
	manager := lifecycle.NewManager(books, reservations, borrowings, emitter, nil)
	manager.Clock = func() time.Time { return fixedNow }
	manager.Log = quiet

	e := echo.New()
	e.Validator = handler.NewValidator()
	writeLimit := middleware.NewWriteLimiter(cfg.RateLimit, nil)
	catalog := handler.NewCatalogHandler(books, reservations)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), secret)
	router.RegisterCatalog(e, catalog, middleware.NewRedisCache(cfg.Cache, nil))
	router.RegisterStudent(e, handler.NewStudentHandler(manager, reservations, borrowings),
		handler.NewNotificationHandler(notes), secret, writeLimit)
	router.RegisterAdmin(e, handler.NewAdminHandler(manager, reservations, borrowings), catalog, secret, writeLimit)

	a := &app{e: e, manager: manager, users: users}
	a.student = a.token(t, "ada@uni.edu", model.RoleStudent)
	a.other = a.token(t, "bob@uni.edu", model.RoleStudent)
	a.admin = a.token(t, "desk@uni.edu", model.RoleAdmin)

	a.book = &model.Book{Title: "Dune", Author: "Frank Herbert", Genre: "sci-fi"}
	require.NoError(t, books.Create(context.Background(), a.book))
	return a
}

func (a *app) token(t *testing.T, email, role string) string {
	t.Helper()
	id, err := a.users.Create(context.Background(), email, "Test "+role, "password123", role, 4)
	require.NoError(t, err)
	tok, err := utils.NewAccessToken(secret, id, email, role, 15)
	require.NoError(t, err)
	return tok.Token
}

func (a *app) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func (a *app) bookPath(suffix string) string {
	return fmt.Sprintf("/v1/books/%d%s", a.book.ID, suffix)
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/readyz", "", nil).Code)
}

func TestAuthFlow(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodPost, "/v1/auth/register", "", echo.Map{
		"email": "New@uni.edu", "full_name": "New Reader", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	user := body["user"].(map[string]any)
	assert.Equal(t, "new@uni.edu", user["email"])
	assert.Equal(t, model.RoleStudent, user["role"])
	refresh := body["refresh"].(map[string]any)["token"].(string)
	assert.Len(t, refresh, 96)

	rec = a.do(http.MethodPost, "/v1/auth/register", "", echo.Map{
		"email": "new@uni.edu", "full_name": "Again", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/v1/auth/register", "", echo.Map{
		"email": "not-an-email", "full_name": "X", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "new@uni.edu", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "new@uni.edu", "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code)
	access := decode(t, rec)["access"].(map[string]any)["token"].(string)

	rec = a.do(http.MethodGet, "/v1/me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "New Reader", decode(t, rec)["full_name"])

	// refresh rotates: the old token stops working
	rec = a.do(http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/v1/me", "", nil).Code)
}

func TestCatalog(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodPost, "/v1/admin/books", a.admin, echo.Map{"title": "Emma", "author": "Jane Austen", "genre": "classic"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, model.BookAvailable, decode(t, rec)["status"])

	assert.Equal(t, http.StatusForbidden,
		a.do(http.MethodPost, "/v1/admin/books", a.student, echo.Map{"title": "Nope"}).Code)

	rec = a.do(http.MethodGet, "/v1/books?q=austen", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Emma")
	assert.NotContains(t, rec.Body.String(), "Dune")

	rec = a.do(http.MethodGet, a.bookPath(""), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dune", decode(t, rec)["title"])

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/v1/books/9999", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/books/abc", "", nil).Code)
}

func TestReservationLifecycle(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodPost, a.bookPath("/reservations"), a.student, echo.Map{"date": "2024-03-11"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resID := uint64(decode(t, rec)["id"].(float64))

	// inside the loan window of the first reservation
	rec = a.do(http.MethodPost, a.bookPath("/reservations"), a.other, echo.Map{"date": "2024-03-15"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "validation_conflict", decode(t, rec)["kind"])

	rec = a.do(http.MethodPost, a.bookPath("/reservations"), a.other, echo.Map{"date": "2024-02-01"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Reservation date cannot be in the past.", decode(t, rec)["error"])

	assert.Equal(t, http.StatusBadRequest,
		a.do(http.MethodPost, a.bookPath("/reservations"), a.other, echo.Map{"date": "11/03/2024"}).Code)
	assert.Equal(t, http.StatusForbidden,
		a.do(http.MethodPost, a.bookPath("/reservations"), a.admin, echo.Map{"date": "2024-04-01"}).Code)
	assert.Equal(t, http.StatusUnauthorized,
		a.do(http.MethodPost, a.bookPath("/reservations"), "", echo.Map{"date": "2024-04-01"}).Code)
	assert.Equal(t, http.StatusNotFound,
		a.do(http.MethodPost, "/v1/books/9999/reservations", a.other, echo.Map{"date": "2024-04-01"}).Code)

	rec = a.do(http.MethodGet, a.bookPath("/busy-dates"), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"2024-03-11"}, decode(t, rec)["dates"])

	rec = a.do(http.MethodGet, "/v1/admin/reservations/pending", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Dune", items[0].(map[string]any)["book_title"])
	assert.Equal(t, "ada@uni.edu", items[0].(map[string]any)["user_email"])

	// approve: reservation fulfilled, loan created, book borrowed
	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/admin/reservations/%d/approve", resID), a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loan := decode(t, rec)
	loanID := uint64(loan["id"].(float64))
	assert.Equal(t, model.BorrowingBorrowed, loan["status"])

	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/admin/reservations/%d/approve", resID), a.admin, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_terminal", decode(t, rec)["kind"])

	rec = a.do(http.MethodGet, a.bookPath(""), "", nil)
	assert.Equal(t, model.BookBorrowed, decode(t, rec)["status"])

	rec = a.do(http.MethodGet, "/v1/admin/borrowings/active", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"].([]any), 1)

	rec = a.do(http.MethodGet, "/v1/me/borrowings", a.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"].([]any), 1)

	rec = a.do(http.MethodGet, "/v1/me/notifications", a.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	notes := decode(t, rec)["items"].([]any)
	require.Len(t, notes, 2)
	titles := []any{notes[0].(map[string]any)["title"], notes[1].(map[string]any)["title"]}
	assert.ElementsMatch(t, []any{"Reservation Confirmed", "Book Borrowed"}, titles)

	// return is applied once
	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/admin/borrowings/%d/return", loanID), a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.BorrowingReturned, decode(t, rec)["status"])
	assert.Equal(t, http.StatusConflict,
		a.do(http.MethodPost, fmt.Sprintf("/v1/admin/borrowings/%d/return", loanID), a.admin, nil).Code)

	rec = a.do(http.MethodGet, a.bookPath(""), "", nil)
	assert.Equal(t, model.BookAvailable, decode(t, rec)["status"])

	assert.Equal(t, http.StatusNotFound,
		a.do(http.MethodPost, "/v1/admin/reservations/9999/approve", a.admin, nil).Code)
}

func TestRejectReservation(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodPost, a.bookPath("/reservations"), a.student, echo.Map{"date": "2024-03-11"})
	require.Equal(t, http.StatusCreated, rec.Code)
	resID := uint64(decode(t, rec)["id"].(float64))

	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/admin/reservations/%d/reject", resID), a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.ReservationCancelled, decode(t, rec)["status"])

	// the cancelled date is free again
	rec = a.do(http.MethodPost, a.bookPath("/reservations"), a.other, echo.Map{"date": "2024-03-12"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(http.MethodPost, fmt.Sprintf("/v1/admin/reservations/%d/reject", resID), a.admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHoldQueue(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodPost, a.bookPath("/holds"), a.student, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	hold := decode(t, rec)
	assert.Equal(t, float64(1), hold["queue_position"])
	assert.Equal(t, model.KindHold, hold["reservation"].(map[string]any)["kind"])

	rec = a.do(http.MethodPost, a.bookPath("/holds"), a.other, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "queue_conflict", decode(t, rec)["kind"])
}

type brokenNotifier struct{}

func (brokenNotifier) Emit(context.Context, uint64, notify.Message) (*model.Notification, error) {
	return nil, errors.New("notifications table unavailable")
}

func TestPartialFailureIsMultiStatus(t *testing.T) {
	a := newApp(t)
	a.manager.Notifier = brokenNotifier{}

	rec := a.do(http.MethodPost, a.bookPath("/reservations"), a.student, echo.Map{"date": "2024-03-11"})
	require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "reserve", body["operation"])
	assert.Equal(t, "notification", body["failed"])
	assert.Equal(t, []any{"reservation created"}, body["completed"])
	assert.NotNil(t, body["result"])

	// the reservation itself was kept
	rec = a.do(http.MethodGet, "/v1/me/reservations", a.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"].([]any), 1)
}

func TestNotificationOwnership(t *testing.T) {
	a := newApp(t)

	require.Equal(t, http.StatusCreated,
		a.do(http.MethodPost, a.bookPath("/holds"), a.student, nil).Code)

	rec := a.do(http.MethodGet, "/v1/me/notifications?unread=true", a.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]any)
	require.Len(t, items, 1)
	note := items[0].(map[string]any)
	assert.Equal(t, "Hold Placed", note["title"])
	path := fmt.Sprintf("/v1/me/notifications/%d/read", uint64(note["id"].(float64)))

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, path, a.other, nil).Code)
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodPost, path, a.student, nil).Code)

	rec = a.do(http.MethodGet, "/v1/me/notifications/unread-count", a.student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["unread"])
}
