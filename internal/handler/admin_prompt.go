package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-prompt-service/internal/model"
	"github.com/iliyamo/table-prompt-service/internal/queue"
	"github.com/iliyamo/table-prompt-service/internal/repository"
)

// authorTableID resolves the table row a TABLE_ADMIN author is pinned
// to, or nil for floor-wide roles. The repository uses it to force the
// prompt's target to the author's own table.
func (h *AdminHandler) authorTableID(c echo.Context, ctx context.Context) (*uint64, error) {
	scope := tableScope(c)
	if scope == nil {
		return nil, nil
	}
	t, err := h.Tables.GetByNumber(ctx, *scope)
	if err != nil {
		return nil, err
	}
	return &t.ID, nil
}

// CreatePrompt handles POST /v1/prompts. A null table_number makes the
// prompt a broadcast to every table; table admins are pinned to their
// own table regardless of what they ask for.
func (h *AdminHandler) CreatePrompt(c echo.Context) error {
	var body struct {
		Text        string  `json:"text"`
		TableNumber *uint32 `json:"table_number"` // null = all tables
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.Text = strings.TrimSpace(body.Text)
	if body.Text == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "text required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var tableID *uint64
	if body.TableNumber != nil {
		t, err := h.Tables.GetByNumber(ctx, *body.TableNumber)
		if err != nil {
			if errors.Is(err, repository.ErrTableNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		tableID = &t.ID
	}
	author, err := h.authorTableID(c, ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "scope lookup failed"})
	}

	prompt := &model.Prompt{Text: body.Text, TableID: tableID, IsActive: true}
	if err := h.Prompts.Create(ctx, prompt, author); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create prompt failed"})
	}
	h.publish(ctx, queue.ResourcePrompts)
	return c.JSON(http.StatusCreated, prompt)
}

// ListPrompts handles GET /v1/prompts. The cached snapshot carries only
// active prompts; asking for the full history always hits SQL.
func (h *AdminHandler) ListPrompts(c echo.Context) error {
	activeOnly := c.QueryParam("active") != "false"
	ctx := c.Request().Context()

	var prompts []model.Prompt
	if activeOnly && h.Store.Read(ctx, queue.ResourcePrompts, &prompts) {
		return c.JSON(http.StatusOK, prompts)
	}
	prompts, err := h.Prompts.List(ctx, activeOnly)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if prompts == nil {
		prompts = []model.Prompt{}
	}
	return c.JSON(http.StatusOK, prompts)
}

// UpdatePrompt handles PUT /v1/prompts/:id. Table admins may only edit
// prompts targeting their own table.
func (h *AdminHandler) UpdatePrompt(c echo.Context) error {
	id, err := paramUint64(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		Text        string  `json:"text"`
		TableNumber *uint32 `json:"table_number"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.Text = strings.TrimSpace(body.Text)
	if body.Text == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "text required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var tableID *uint64
	if body.TableNumber != nil {
		t, err := h.Tables.GetByNumber(ctx, *body.TableNumber)
		if err != nil {
			if errors.Is(err, repository.ErrTableNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		tableID = &t.ID
	}
	author, err := h.authorTableID(c, ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "scope lookup failed"})
	}

	prompt := &model.Prompt{ID: id, Text: body.Text, TableID: tableID}
	if err := h.Prompts.Update(ctx, prompt, author); err != nil {
		switch {
		case errors.Is(err, repository.ErrPromptNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "prompt not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.publish(ctx, queue.ResourcePrompts)
	return c.JSON(http.StatusOK, prompt)
}

// SetPromptActive handles PATCH /v1/prompts/:id/active. Deactivating a
// prompt does not clear table assignments pointing at it; dispatch of a
// deactivated prompt is rejected at assignment time instead.
func (h *AdminHandler) SetPromptActive(c echo.Context) error {
	id, err := paramUint64(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Prompts.SetActive(ctx, id, body.IsActive); err != nil {
		if errors.Is(err, repository.ErrPromptNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "prompt not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.publish(ctx, queue.ResourcePrompts)
	return c.NoContent(http.StatusNoContent)
}

// DispatchPromptAll handles POST /v1/prompts/:id/dispatch-all, pointing
// every table's active prompt at the given prompt in one statement.
// Floor-wide roles only.
func (h *AdminHandler) DispatchPromptAll(c echo.Context) error {
	if roleOf(c) == model.RoleTableAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	id, err := paramUint64(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Prompts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPromptNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "prompt not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !p.IsActive {
		return c.JSON(http.StatusConflict, echo.Map{"error": "prompt is not active"})
	}
	if !p.Broadcast() {
		return c.JSON(http.StatusConflict, echo.Map{"error": "prompt targets a single table"})
	}

	err = h.Mut.Do(ctx, "dispatch prompt", queue.ResourceTables,
		h.updateCachedTables(ctx, func(tables []model.Table) []model.Table {
			for i := range tables {
				tables[i].ActivePromptID = &id
				tables[i].Version++
			}
			return tables
		}),
		func(ctx context.Context) error {
			return h.Tables.AssignPromptAll(ctx, id)
		},
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "dispatch failed"})
	}
	h.publish(ctx, queue.ResourceTables)
	return c.NoContent(http.StatusNoContent)
}
