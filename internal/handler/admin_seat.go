package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-prompt-service/internal/fetcher"
	"github.com/iliyamo/table-prompt-service/internal/model"
	"github.com/iliyamo/table-prompt-service/internal/queue"
	"github.com/iliyamo/table-prompt-service/internal/repository"
)

// seatParams parses the :number/:code pair and enforces table scope.
// The *echo.HTTPError convention lets callers return the error as-is.
func seatParams(c echo.Context) (uint32, string, *echo.HTTPError) {
	number, err := paramUint32(c, "number")
	if err != nil || number == 0 {
		return 0, "", echo.NewHTTPError(http.StatusBadRequest, "invalid table number")
	}
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if code == "" {
		return 0, "", echo.NewHTTPError(http.StatusBadRequest, "invalid seat code")
	}
	if !inScope(c, number) {
		return 0, "", echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}
	return number, code, nil
}

// ListSeats handles GET /v1/tables/:number/seats, serving the cached
// per-table seat list when warm. The derived display status rides along
// so terminals never re-implement the enablement/occupancy combination.
func (h *AdminHandler) ListSeats(c echo.Context) error {
	number, err := paramUint32(c, "number")
	if err != nil || number == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table number"})
	}
	ctx := c.Request().Context()
	key := fetcher.SeatKey(number)

	var seats []model.Seat
	if !h.Store.Read(ctx, key, &seats) {
		t, err := h.Tables.GetByNumber(ctx, number)
		if err != nil {
			if errors.Is(err, repository.ErrTableNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		seats, err = h.Seats.GetByTable(ctx, t.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if seats == nil {
			seats = []model.Seat{}
		}
		_ = h.Store.Write(ctx, key, seats)
	}

	type seatView struct {
		model.Seat
		Status string `json:"status"`
	}
	out := make([]seatView, len(seats))
	for i, s := range seats {
		out[i] = seatView{Seat: s, Status: s.DisplayStatus()}
	}
	return c.JSON(http.StatusOK, out)
}

// SetSeatActive handles PATCH /v1/tables/:number/seats/:code/active.
// Enablement is independent of occupancy: disabling a seat does not
// evict whoever sits there.
func (h *AdminHandler) SetSeatActive(c echo.Context) error {
	number, code, herr := seatParams(c)
	if herr != nil {
		return herr
	}
	var body struct {
		IsActive bool   `json:"is_active"`
		Version  uint32 `json:"version"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	seat, err := h.Seats.GetByTableAndCode(ctx, number, code)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	err = h.Mut.Do(ctx, "set seat active", fetcher.SeatKey(number),
		h.updateCachedSeats(ctx, fetcher.SeatKey(number), func(seats []model.Seat) []model.Seat {
			for i := range seats {
				if seats[i].Code == code {
					seats[i].IsActive = body.IsActive
					seats[i].Version++
				}
			}
			return seats
		}),
		func(ctx context.Context) error {
			return h.Seats.SetActiveCAS(ctx, seat.ID, body.IsActive, body.Version)
		},
	)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "version conflict, refetch and retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.publish(ctx, queue.ResourceSeats)
	return c.NoContent(http.StatusNoContent)
}

// SetSeatOccupant handles PUT /v1/tables/:number/seats/:code/occupant.
// A null user_id vacates the seat; assigning over an occupied seat is
// allowed for staff (re-seating a guest by hand).
func (h *AdminHandler) SetSeatOccupant(c echo.Context) error {
	number, code, herr := seatParams(c)
	if herr != nil {
		return herr
	}
	var body struct {
		UserID *uint64 `json:"user_id"` // null vacates the seat
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	seat, err := h.Seats.GetByTableAndCode(ctx, number, code)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if body.UserID != nil {
		if _, err := h.Users.GetByID(ctx, *body.UserID); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
	}

	err = h.Mut.Do(ctx, "set seat occupant", fetcher.SeatKey(number),
		h.updateCachedSeats(ctx, fetcher.SeatKey(number), func(seats []model.Seat) []model.Seat {
			for i := range seats {
				if seats[i].Code == code {
					seats[i].OccupantID = body.UserID
					if body.UserID == nil {
						seats[i].IsDealer = false
						seats[i].DealerHandsLeft = nil
					}
					seats[i].Version++
				}
			}
			return seats
		}),
		func(ctx context.Context) error {
			return h.Seats.SetOccupant(ctx, seat.ID, body.UserID)
		},
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.publish(ctx, queue.ResourceSeats)
	return c.NoContent(http.StatusNoContent)
}

// SetSeatDealer handles PATCH /v1/tables/:number/seats/:code/dealer,
// marking the seat's occupant as dealer with an optional hands-left
// counter. The seat must be occupied.
func (h *AdminHandler) SetSeatDealer(c echo.Context) error {
	number, code, herr := seatParams(c)
	if herr != nil {
		return herr
	}
	var body struct {
		IsDealer  bool    `json:"is_dealer"`
		HandsLeft *uint32 `json:"hands_left"`
		Version   uint32  `json:"version"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	seat, err := h.Seats.GetByTableAndCode(ctx, number, code)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	err = h.Mut.Do(ctx, "set seat dealer", fetcher.SeatKey(number),
		h.updateCachedSeats(ctx, fetcher.SeatKey(number), func(seats []model.Seat) []model.Seat {
			for i := range seats {
				if seats[i].Code == code {
					seats[i].IsDealer = body.IsDealer
					seats[i].DealerHandsLeft = body.HandsLeft
					seats[i].Version++
				}
			}
			return seats
		}),
		func(ctx context.Context) error {
			return h.Seats.SetDealerCAS(ctx, seat.ID, body.IsDealer, body.HandsLeft, body.Version)
		},
	)
	if err != nil {
		if errors.Is(err, repository.ErrSeatVacant) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "seat has no occupant"})
		}
		if errors.Is(err, repository.ErrVersionConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "version conflict, refetch and retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.publish(ctx, queue.ResourceSeats)
	return c.NoContent(http.StatusNoContent)
}
