package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/party-booking/internal/model"
	"github.com/iliyamo/party-booking/internal/service"
)

// Bookings is the part of service.BookingService the HTTP layer uses.
type Bookings interface {
	Catalog() []model.PackageDefinition
	Quote(date, tier string) (service.Quote, error)
	Create(ctx context.Context, d service.Draft, allowDoubleBooking bool) (service.CreateResult, error)
	List(ctx context.Context) service.Result
	Get(ctx context.Context, id string) (model.Reservation, error)
	MarkPaid(ctx context.Context, id string) (model.Reservation, []service.WriteOutcome, error)
	Delete(ctx context.Context, id string) ([]service.WriteOutcome, error)
	Sync(ctx context.Context) service.SyncReport
	Calendar(ctx context.Context, year int, month time.Month, today time.Time) ([]model.CalendarDay, error)
}

// BookingHandler serves the catalogue, reservations and calendar.
type BookingHandler struct {
	svc Bookings
	loc *time.Location
	now func() time.Time
}

// NewBookingHandler returns a handler; loc decides what "today" is on the
// calendar.
func NewBookingHandler(svc Bookings, loc *time.Location) *BookingHandler {
	if svc == nil {
		panic("nil Bookings passed to NewBookingHandler")
	}
	if loc == nil {
		loc = time.Local
	}
	return &BookingHandler{svc: svc, loc: loc, now: time.Now}
}

type createReq struct {
	service.Draft
	AllowDoubleBooking bool `json:"allowDoubleBooking"`
}

// Packages lists the catalogue.
func (h *BookingHandler) Packages(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"items": h.svc.Catalog()})
}

// Pricing quotes ?package= on ?date=.
func (h *BookingHandler) Pricing(c echo.Context) error {
	date := strings.TrimSpace(c.QueryParam("date"))
	tier := strings.TrimSpace(c.QueryParam("package"))
	if date == "" || tier == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date and package are required"})
	}
	q, err := h.svc.Quote(date, tier)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, q)
}

// List returns the reconciled reservations with conflicts, unavailable
// sources and the write-back plan.
func (h *BookingHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.List(c.Request().Context()))
}

// Get returns one reservation.
func (h *BookingHandler) Get(c echo.Context) error {
	r, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Create books a party.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	res, err := h.svc.Create(c.Request().Context(), req.Draft, req.AllowDoubleBooking)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// MarkPaid settles a reservation in full.
func (h *BookingHandler) MarkPaid(c echo.Context) error {
	r, outcomes, err := h.svc.MarkPaid(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": r, "outcomes": outcomes})
}

// Delete removes a reservation from every backend.
func (h *BookingHandler) Delete(c echo.Context) error {
	outcomes, err := h.svc.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"outcomes": outcomes})
}

// Sync runs the write-back plan.
func (h *BookingHandler) Sync(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Sync(c.Request().Context()))
}

// Calendar returns the month grid for /:year/:month.
func (h *BookingHandler) Calendar(c echo.Context) error {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1900 || year > 9999 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid year"})
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil || month < 1 || month > 12 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid month"})
	}
	days, err := h.svc.Calendar(c.Request().Context(), year, time.Month(month), h.now().In(h.loc))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"year": year, "month": month, "days": days})
}
