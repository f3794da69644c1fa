package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/library-reservation/internal/model"
    "github.com/iliyamo/library-reservation/internal/repository"
    "github.com/iliyamo/library-reservation/internal/scheduling"
)

// CatalogHandler serves the public book catalog and the admin add-book
// endpoint.
type CatalogHandler struct {
    Books        *repository.BookRepo
    Reservations *repository.ReservationRepo
}

func NewCatalogHandler(books *repository.BookRepo, reservations *repository.ReservationRepo) *CatalogHandler {
    return &CatalogHandler{Books: books, Reservations: reservations}
}

type createBookReq struct {
    Title       string `json:"title" validate:"required,max=255"`
    Author      string `json:"author" validate:"required,max=255"`
    Genre       string `json:"genre" validate:"max=100"`
    ISBN        string `json:"isbn" validate:"omitempty,isbn"`
    Location    string `json:"location" validate:"max=100"`
    Description string `json:"description"`
}

// ListBooks handles GET /v1/books?q=&genre=&status=&limit=&offset=.
func (h *CatalogHandler) ListBooks(c echo.Context) error {
    status := strings.ToLower(strings.TrimSpace(c.QueryParam("status")))
    switch status {
    case "", model.BookAvailable, model.BookBorrowed, model.BookReserved:
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
    }
    limit, _ := strconv.Atoi(c.QueryParam("limit"))
    offset, _ := strconv.Atoi(c.QueryParam("offset"))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    books, err := h.Books.List(ctx, repository.BookFilter{
        Query:  c.QueryParam("q"),
        Genre:  c.QueryParam("genre"),
        Status: status,
        Limit:  limit,
        Offset: offset,
    })
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list books failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": books, "count": len(books)})
}

// GetBook handles GET /v1/books/:id.
func (h *CatalogHandler) GetBook(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    book, err := h.Books.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, book)
}

// BusyDates handles GET /v1/books/:id/busy-dates: the calendar days already
// claimed by pending or fulfilled reservations, for date pickers.
func (h *CatalogHandler) BusyDates(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if _, err := h.Books.GetByID(ctx, id); err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    res, err := h.Reservations.ListByBook(ctx, id, model.ReservationPending, model.ReservationFulfilled)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"book_id": id, "dates": scheduling.BusyDates(res)})
}

// CreateBook handles POST /v1/admin/books.  New books start available.
func (h *CatalogHandler) CreateBook(c echo.Context) error {
    var req createBookReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    book := &model.Book{
        Title:       strings.TrimSpace(req.Title),
        Author:      strings.TrimSpace(req.Author),
        Genre:       strings.TrimSpace(req.Genre),
        ISBN:        strings.TrimSpace(req.ISBN),
        Location:    strings.TrimSpace(req.Location),
        Description: req.Description,
    }
    if err := h.Books.Create(ctx, book); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create book failed"})
    }
    return c.JSON(http.StatusCreated, book)
}
