package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-prompt-service/internal/model"
	"github.com/iliyamo/table-prompt-service/internal/queue"
	"github.com/iliyamo/table-prompt-service/internal/repository"
)

// CreateTable handles POST /v1/tables. Only floor-wide admin roles may
// create tables; seats are minted alongside with codes A, B, C, ...
func (h *AdminHandler) CreateTable(c echo.Context) error {
	if roleOf(c) == model.RoleTableAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	var body struct {
		Number    uint32 `json:"number"`
		SeatCount int    `json:"seat_count"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Number == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "number must be positive"})
	}
	if body.SeatCount < model.MinSeats || body.SeatCount > model.MaxSeats {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "seat_count out of range",
			"min":   model.MinSeats,
			"max":   model.MaxSeats,
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	table := &model.Table{Number: body.Number, IsActive: true}
	err := h.Mut.Do(ctx, "create table", queue.ResourceTables,
		h.updateCachedTables(ctx, func(tables []model.Table) []model.Table {
			return append(tables, *table)
		}),
		func(ctx context.Context) error {
			return h.Tables.Create(ctx, table, body.SeatCount)
		},
	)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "table number already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create table"})
	}
	h.publish(ctx, queue.ResourceTables)
	h.publish(ctx, queue.ResourceSeats)
	return c.JSON(http.StatusCreated, table)
}

// ListTables handles GET /v1/tables, serving the cached snapshot when
// warm and warming it from SQL otherwise.
func (h *AdminHandler) ListTables(c echo.Context) error {
	ctx := c.Request().Context()

	var tables []model.Table
	if !h.Store.Read(ctx, queue.ResourceTables, &tables) {
		var err error
		tables, err = h.Tables.ListWithSeats(ctx)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if tables == nil {
			tables = []model.Table{}
		}
		_ = h.Store.Write(ctx, queue.ResourceTables, tables)
	}
	return c.JSON(http.StatusOK, tables)
}

// GetTable handles GET /v1/tables/:number.
func (h *AdminHandler) GetTable(c echo.Context) error {
	number, err := paramUint32(c, "number")
	if err != nil || number == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table number"})
	}
	ctx := c.Request().Context()

	var tables []model.Table
	if h.Store.Read(ctx, queue.ResourceTables, &tables) {
		for i := range tables {
			if tables[i].Number == number {
				return c.JSON(http.StatusOK, tables[i])
			}
		}
	}
	t, err := h.Tables.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, repository.ErrTableNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, t)
}

// SetTableActive handles PATCH /v1/tables/:number/active. The write is
// compare-and-set on the caller's version; a stale version gets 409 and
// the caller must refetch. Occupied seats are untouched by disabling.
func (h *AdminHandler) SetTableActive(c echo.Context) error {
	number, err := paramUint32(c, "number")
	if err != nil || number == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table number"})
	}
	if !inScope(c, number) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
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

	table, err := h.Tables.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, repository.ErrTableNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	err = h.Mut.Do(ctx, "set table active", queue.ResourceTables,
		h.updateCachedTables(ctx, func(tables []model.Table) []model.Table {
			for i := range tables {
				if tables[i].Number == number {
					tables[i].IsActive = body.IsActive
					tables[i].Version++
				}
			}
			return tables
		}),
		func(ctx context.Context) error {
			return h.Tables.SetActiveCAS(ctx, table.ID, body.IsActive, body.Version)
		},
	)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "version conflict, refetch and retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.publish(ctx, queue.ResourceTables)
	return c.NoContent(http.StatusNoContent)
}

// AssignPrompt handles POST /v1/tables/:number/prompt, pointing the
// table's active prompt at the given prompt (null clears it). Also
// compare-and-set on version.
func (h *AdminHandler) AssignPrompt(c echo.Context) error {
	number, err := paramUint32(c, "number")
	if err != nil || number == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table number"})
	}
	if !inScope(c, number) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	var body struct {
		PromptID *uint64 `json:"prompt_id"` // null clears the assignment
		Version  uint32  `json:"version"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	table, err := h.Tables.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, repository.ErrTableNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if body.PromptID != nil {
		p, err := h.Prompts.GetByID(ctx, *body.PromptID)
		if err != nil {
			if errors.Is(err, repository.ErrPromptNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "prompt not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if !p.IsActive {
			return c.JSON(http.StatusConflict, echo.Map{"error": "prompt is not active"})
		}
	}

	err = h.Mut.Do(ctx, "assign prompt", queue.ResourceTables,
		h.updateCachedTables(ctx, func(tables []model.Table) []model.Table {
			for i := range tables {
				if tables[i].Number == number {
					tables[i].ActivePromptID = body.PromptID
					tables[i].Version++
				}
			}
			return tables
		}),
		func(ctx context.Context) error {
			return h.Tables.AssignPromptCAS(ctx, table.ID, body.PromptID, body.Version)
		},
	)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "version conflict, refetch and retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.publish(ctx, queue.ResourceTables)
	return c.NoContent(http.StatusNoContent)
}
